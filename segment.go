package sits

import (
	"context"
	"fmt"

	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/models"
	"github.com/hugr-lab/sits-go/robj"
)

var (
	sitsSegment = sitsFunc("sits_segment")
	sitsSlic    = sitsFunc("sits_slic")
)

// Segment segments a cube into a vector cube (sits_segment). The seg_fn
// argument takes a closure created by Slic.
func (s *Session) Segment(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsSegment, models.NewCube, args)
}

// Slic returns a SLIC segmentation function (sits_slic).
func (s *Session) Slic(ctx context.Context, args ...any) (*robj.Closure, error) {
	return invoke(ctx, s, sitsSlic, plain(asClosure), args)
}

func asClosure(v robj.Value) (*robj.Closure, error) {
	c, ok := v.(*robj.Closure)
	if !ok {
		return nil, fmt.Errorf("%w: expected a closure, got %s", convert.ErrUndecodable, robj.TypeName(v))
	}
	return c, nil
}
