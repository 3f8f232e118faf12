package sits

import (
	"context"

	"github.com/hugr-lab/sits-go/call"
	"github.com/hugr-lab/sits-go/models"
	"github.com/hugr-lab/sits-go/robj"
)

var sitsApply = sitsFunc("sits_apply")

// applyLiterals are the sits_apply arguments whose string values are data,
// not band formulas.
var applyLiterals = map[string]bool{
	"output_dir": true,
}

// Apply computes new bands from band formulas (sits_apply). String values
// of named arguments are formulas over band names, except output_dir:
//
//	s.Apply(ctx, cube, call.Kw("NDVI", "(B08 - B04) / (B08 + B04)"), call.Kw("output_dir", dir))
//
// expr trees are accepted too. Cubes give a *models.Cube, time series a
// *models.TimeSeries.
func (s *Session) Apply(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, sitsApply, models.Resolve, formulas(args))
}

func formulas(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
		kw, ok := a.(call.KwArg)
		if !ok || applyLiterals[kw.Name] {
			continue
		}
		if src, ok := kw.Value.(string); ok {
			out[i] = call.Kw(kw.Name, robj.NewExpression(src))
		}
	}
	return out
}
