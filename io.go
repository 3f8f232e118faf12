package sits

import (
	"context"
	"fmt"
	"os"

	"github.com/hugr-lab/sits-go/call"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/models"
)

var (
	baseReadRDS = call.New("base::readRDS", call.Value)
	baseSaveRDS = call.New("base::saveRDS", call.Discard)
	baseSetSeed = call.New("base::set.seed", call.Discard)
	sitsToCSV   = sitsFunc("sits_to_csv")
)

// ReadRDS reads a serialized cube or set of time series. Other objects fail
// with models.ErrUnsupportedObject.
//
// In-process sessions check that file exists first. Remote sessions resolve
// file on the server, which reports missing files.
func (s *Session) ReadRDS(ctx context.Context, file string) (models.Object, error) {
	if !s.remote {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("failed to read RDS: %w", err)
		}
	}
	return invoke(ctx, s, baseReadRDS, models.ResolveRDS, []any{convert.Path(file)})
}

// SaveRDS serializes object, a wrapper or any encodable value, to file.
func (s *Session) SaveRDS(ctx context.Context, object any, file string) error {
	_, err := baseSaveRDS.Invoke(ctx, s.rt, object, call.Kw("file", convert.Path(file)))
	return err
}

// ToCSV writes the samples of a set of time series as CSV (sits_to_csv) and
// returns them as a frame.
func (s *Session) ToCSV(ctx context.Context, args ...any) (*models.Frame, error) {
	return invoke(ctx, s, sitsToCSV, models.NewFrame, args)
}

// Dataset loads a dataset shipped with the toolkit, e.g.
// "samples_modis_ndvi" or "cerrado_2classes".
func (s *Session) Dataset(ctx context.Context, name string) (models.Object, error) {
	if !isIdentifier(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDataset, name)
	}
	v, err := s.rt.Eval(ctx, "sits::"+name, nil)
	if err != nil {
		return nil, err
	}
	return models.Resolve(v, s.mem)
}

// SetSeed seeds the runtime random number generator.
func (s *Session) SetSeed(ctx context.Context, seed int) error {
	_, err := baseSetSeed.Invoke(ctx, s.rt, seed)
	return err
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		ok := r == '.' || r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9'
		if !ok {
			return false
		}
	}
	return true
}
