package sits

import (
	"context"

	"github.com/hugr-lab/sits-go/models"
)

var (
	sitsCube       = sitsFunc("sits_cube")
	sitsRegularize = sitsFunc("sits_regularize")
	sitsCubeCopy   = sitsFunc("sits_cube_copy")
	sitsMosaic     = sitsFunc("sits_mosaic")
)

// Cube creates a data cube from a cloud collection or local files
// (sits_cube).
func (s *Session) Cube(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsCube, models.NewCube, args)
}

// Regularize builds a regular data cube from an irregular one
// (sits_regularize).
func (s *Session) Regularize(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsRegularize, models.NewCube, args)
}

// CubeCopy copies the images of a cube to a local directory (sits_cube_copy).
func (s *Session) CubeCopy(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsCubeCopy, models.NewCube, args)
}

// Mosaic merges the tiles of a cube into a single image (sits_mosaic).
func (s *Session) Mosaic(ctx context.Context, args ...any) (*models.Cube, error) {
	return invoke(ctx, s, sitsMosaic, models.NewCube, args)
}
