package sits

import (
	"context"

	"github.com/hugr-lab/sits-go/models"
)

var (
	sitsGetData            = sitsFunc("sits_get_data")
	sitsPredictors         = sitsFunc("sits_predictors")
	sitsSomMap             = sitsFunc("sits_som_map")
	sitsSomEvaluateCluster = sitsFunc("sits_som_evaluate_cluster")
	sitsSomCleanSamples    = sitsFunc("sits_som_clean_samples")
	sitsPatterns           = sitsFunc("sits_patterns")
	sitsSgolay             = sitsFunc("sits_sgolay")
	sitsWhittaker          = sitsFunc("sits_whittaker")
	sitsClusterFrequency   = sitsFunc("sits_cluster_frequency")
)

// GetData extracts time series from a cube at the given samples
// (sits_get_data).
func (s *Session) GetData(ctx context.Context, args ...any) (*models.TimeSeries, error) {
	return invoke(ctx, s, sitsGetData, models.NewTimeSeries, args)
}

// Predictors returns the time series values as a flat predictor table
// (sits_predictors).
func (s *Session) Predictors(ctx context.Context, args ...any) (*models.Frame, error) {
	return invoke(ctx, s, sitsPredictors, models.NewFrame, args)
}

// SomMap builds a self-organizing map of the samples (sits_som_map). The map
// stays a foreign structure.
func (s *Session) SomMap(ctx context.Context, args ...any) (*models.Structure, error) {
	return invoke(ctx, s, sitsSomMap, plain(models.NewStructure), args)
}

// SomEvaluateCluster evaluates the clusters of a SOM map
// (sits_som_evaluate_cluster).
func (s *Session) SomEvaluateCluster(ctx context.Context, args ...any) (*models.Frame, error) {
	return invoke(ctx, s, sitsSomEvaluateCluster, models.NewFrame, args)
}

// SomCleanSamples removes or flags noisy samples using a SOM map
// (sits_som_clean_samples).
func (s *Session) SomCleanSamples(ctx context.Context, args ...any) (*models.TimeSeries, error) {
	return invoke(ctx, s, sitsSomCleanSamples, models.NewTimeSeries, args)
}

// Patterns computes one representative time series per label
// (sits_patterns).
func (s *Session) Patterns(ctx context.Context, args ...any) (*models.Patterns, error) {
	return invoke(ctx, s, sitsPatterns, models.NewPatterns, args)
}

// Sgolay applies a Savitzky-Golay filter (sits_sgolay).
func (s *Session) Sgolay(ctx context.Context, args ...any) (*models.TimeSeries, error) {
	return invoke(ctx, s, sitsSgolay, models.NewTimeSeries, args)
}

// Whittaker applies a Whittaker smoother (sits_whittaker).
func (s *Session) Whittaker(ctx context.Context, args ...any) (*models.TimeSeries, error) {
	return invoke(ctx, s, sitsWhittaker, models.NewTimeSeries, args)
}

// ClusterFrequency returns the label frequency per cluster
// (sits_cluster_frequency).
func (s *Session) ClusterFrequency(ctx context.Context, args ...any) (*models.Table, error) {
	return invoke(ctx, s, sitsClusterFrequency, plain(models.NewTable), args)
}
