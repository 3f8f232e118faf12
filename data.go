package sits

import (
	"context"
	"time"

	"github.com/hugr-lab/sits-go/call"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/models"
)

var (
	sitsBands           = sitsFunc("sits_bands")
	sitsTimeline        = sitsFunc("sits_timeline")
	sitsLabels          = sitsFunc("sits_labels")
	sitsBbox            = sitsFunc("sits_bbox")
	sitsSelect          = sitsFunc("sits_select")
	sitsMerge           = sitsFunc("sits_merge")
	sitsMixtureModel    = sitsFunc("sits_mixture_model")
	sitsLabelsSummary   = sitsFunc("sits_labels_summary")
	sitsListCollections = call.New("sits::sits_list_collections", call.Discard)
	baseSummary         = call.New("base::summary", call.Value)
)

// Bands returns the band names of a cube, time series or model (sits_bands).
func (s *Session) Bands(ctx context.Context, args ...any) ([]string, error) {
	return invoke(ctx, s, sitsBands, plain(convert.Strings), args)
}

// Timeline returns the dates of a cube, time series or model (sits_timeline).
func (s *Session) Timeline(ctx context.Context, args ...any) ([]time.Time, error) {
	return invoke(ctx, s, sitsTimeline, plain(convert.Dates), args)
}

// Labels returns the labels of a time series, cube or model (sits_labels).
func (s *Session) Labels(ctx context.Context, args ...any) ([]string, error) {
	return invoke(ctx, s, sitsLabels, plain(convert.Strings), args)
}

// Bbox returns the bounding box of a cube or time series (sits_bbox).
func (s *Session) Bbox(ctx context.Context, args ...any) (*models.Frame, error) {
	return invoke(ctx, s, sitsBbox, models.NewFrame, args)
}

// Select selects bands, dates or tiles (sits_select). The result is wrapped
// according to its class.
func (s *Session) Select(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, sitsSelect, models.Resolve, args)
}

// Merge merges two cubes or two sets of time series (sits_merge).
func (s *Session) Merge(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, sitsMerge, models.Resolve, args)
}

// MixtureModel runs a multiple endmember spectral mixture analysis
// (sits_mixture_model).
func (s *Session) MixtureModel(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, sitsMixtureModel, models.Resolve, args)
}

// ListCollections prints the collections available in each cloud service
// (sits_list_collections). The listing is written by the runtime.
func (s *Session) ListCollections(ctx context.Context, args ...any) error {
	_, err := sitsListCollections.Invoke(ctx, s.rt, args...)
	return err
}

// Summary summarizes a sits object (summary).
func (s *Session) Summary(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, baseSummary, models.Resolve, args)
}

// LabelsSummary returns the label distribution of a set of time series
// (sits_labels_summary).
//
// Deprecated: Use Summary.
func (s *Session) LabelsSummary(ctx context.Context, args ...any) (models.Object, error) {
	return invoke(ctx, s, sitsLabelsSummary, models.Resolve, args)
}
