package sits

import (
	"context"

	"github.com/hugr-lab/sits-go/call"
	"github.com/hugr-lab/sits-go/models"
)

var (
	sitsTrain       = sitsFunc("sits_train")
	sitsTuning      = sitsFunc("sits_tuning")
	sitsModelExport = sitsFunc("sits_model_export")

	sitsRfor     = call.Closure("sits::sits_rfor")
	sitsSvm      = call.Closure("sits::sits_svm")
	sitsXGBoost  = call.Closure("sits::sits_xgboost")
	sitsMLP      = call.Closure("sits::sits_mlp")
	sitsTempCNN  = call.Closure("sits::sits_tempcnn")
	sitsResNet   = call.Closure("sits::sits_resnet")
	sitsLightTAE = call.Closure("sits::sits_lighttae")
	sitsTAE      = call.Closure("sits::sits_tae")
)

// Train trains a classification model on a set of time series (sits_train).
// The ml_method argument takes a method created by Rfor, MLP, etc.
func (s *Session) Train(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return invoke(ctx, s, sitsTrain, plain(models.NewMLMethod), args)
}

// Rfor returns an untrained random forest method (sits_rfor).
func (s *Session) Rfor(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsRfor.Make(ctx, s.rt, args...)
}

// Svm returns an untrained support vector machine method (sits_svm).
func (s *Session) Svm(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsSvm.Make(ctx, s.rt, args...)
}

// XGBoost returns an untrained extreme gradient boosting method
// (sits_xgboost).
func (s *Session) XGBoost(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsXGBoost.Make(ctx, s.rt, args...)
}

// MLP returns an untrained multilayer perceptron method (sits_mlp).
func (s *Session) MLP(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsMLP.Make(ctx, s.rt, args...)
}

// TempCNN returns an untrained temporal CNN method (sits_tempcnn).
func (s *Session) TempCNN(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsTempCNN.Make(ctx, s.rt, args...)
}

// ResNet returns an untrained residual network method (sits_resnet).
func (s *Session) ResNet(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsResNet.Make(ctx, s.rt, args...)
}

// LightTAE returns an untrained lightweight temporal attention encoder
// method (sits_lighttae).
func (s *Session) LightTAE(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsLightTAE.Make(ctx, s.rt, args...)
}

// TAE returns an untrained temporal attention encoder method (sits_tae).
func (s *Session) TAE(ctx context.Context, args ...any) (*models.MLMethod, error) {
	return sitsTAE.Make(ctx, s.rt, args...)
}

// Tuning runs a random search over hyperparameters (sits_tuning). One row
// per trial; the parameters of each trial are nested in the params column.
func (s *Session) Tuning(ctx context.Context, args ...any) (*models.NestedFrame, error) {
	return invoke(ctx, s, sitsTuning, models.NewNestedFrame, args)
}

// ModelExport exports a trained model for use outside the toolkit
// (sits_model_export).
func (s *Session) ModelExport(ctx context.Context, args ...any) (*models.Structure, error) {
	return invoke(ctx, s, sitsModelExport, plain(models.NewStructure), args)
}
