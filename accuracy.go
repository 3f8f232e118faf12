package sits

import (
	"context"

	"github.com/hugr-lab/sits-go/models"
)

var (
	sitsAccuracy       = sitsFunc("sits_accuracy")
	sitsKFoldValidate  = sitsFunc("sits_kfold_validate")
	sitsValidate       = sitsFunc("sits_validate")
	sitsSamplingDesign = sitsFunc("sits_sampling_design")
)

// Accuracy assesses a classification (sits_accuracy). Time series give a
// *models.ConfusionMatrix, classified cubes a *models.Accuracy.
func (s *Session) Accuracy(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, sitsAccuracy, models.ResolveAccuracy, args)
}

// KFoldValidate cross-validates an ML method on a set of time series
// (sits_kfold_validate).
func (s *Session) KFoldValidate(ctx context.Context, args ...any) (*models.ConfusionMatrix, error) {
	return invoke(ctx, s, sitsKFoldValidate, models.NewConfusionMatrix, args)
}

// Validate validates an ML method with a separate validation set
// (sits_validate).
func (s *Session) Validate(ctx context.Context, args ...any) (*models.ConfusionMatrix, error) {
	return invoke(ctx, s, sitsValidate, models.NewConfusionMatrix, args)
}

// SamplingDesign computes a stratified sample allocation for a classified
// cube (sits_sampling_design).
func (s *Session) SamplingDesign(ctx context.Context, args ...any) (*models.Matrix, error) {
	return invoke(ctx, s, sitsSamplingDesign, plain(models.NewMatrix), args)
}
