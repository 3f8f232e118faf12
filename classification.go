package sits

import (
	"context"
	"fmt"

	"github.com/hugr-lab/sits-go/call"
	"github.com/hugr-lab/sits-go/expr"
	"github.com/hugr-lab/sits-go/models"
	"github.com/hugr-lab/sits-go/robj"
)

var (
	sitsClassify            = sitsFunc("sits_classify")
	sitsSmooth              = sitsFunc("sits_smooth")
	sitsLabelClassification = sitsFunc("sits_label_classification")
	sitsUncertainty         = sitsFunc("sits_uncertainty")
	sitsReclassify          = sitsFunc("sits_reclassify", call.WithConverter("rules", rulesConverter))
)

// Classify classifies a cube or a set of time series with a trained model
// (sits_classify). Cubes give a probability cube, time series a
// *models.TimeSeriesClassification.
func (s *Session) Classify(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, sitsClassify, models.Resolve, args)
}

// Smooth applies Bayesian smoothing to a probability cube (sits_smooth).
func (s *Session) Smooth(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsSmooth, models.NewCube, args)
}

// LabelClassification labels a probability cube by maximum probability
// (sits_label_classification).
func (s *Session) LabelClassification(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsLabelClassification, models.NewCube, args)
}

// Uncertainty computes an uncertainty cube from a probability cube
// (sits_uncertainty).
func (s *Session) Uncertainty(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsUncertainty, models.NewCube, args)
}

// Reclassify relabels a classified cube with rules evaluated against a mask
// cube (sits_reclassify). The rules argument is an *expr.ExpressionList
// keyed by the new label.
func (s *Session) Reclassify(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsReclassify, models.NewCube, args)
}

// rulesConverter renders reclassification rules as unevaluated source, which
// puts the call in template mode.
func rulesConverter(v any) (robj.Value, error) {
	switch r := v.(type) {
	case *expr.ExpressionList:
		if r.Len() == 0 {
			return nil, fmt.Errorf("%w: empty rule list", expr.ErrNoExpression)
		}
		return expr.Source(r)
	case string:
		return robj.NewExpression(r), nil
	case *robj.Expression:
		return r, nil
	}
	return nil, fmt.Errorf("%w: rules must be an expression list, got %T", expr.ErrUnsupportedOperand, v)
}
