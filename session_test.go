package sits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"google.golang.org/grpc"

	"github.com/hugr-lab/sits-go/bridge"
	"github.com/hugr-lab/sits-go/call"
	"github.com/hugr-lab/sits-go/expr"
	"github.com/hugr-lab/sits-go/flight"
	"github.com/hugr-lab/sits-go/models"
	"github.com/hugr-lab/sits-go/robj"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder captures the last template evaluated by the runtime.
type recorder struct {
	mu     sync.Mutex
	source string
	env    []robj.Named
	result robj.Value
}

func (r *recorder) eval(ctx context.Context, src string, env []robj.Named) (robj.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source, r.env = src, env
	return r.result, nil
}

func dataFrame(t *testing.T, names []string, cols []robj.Value, class ...string) *robj.List {
	t.Helper()
	df, err := robj.NewDataFrame(names, cols, class...)
	if err != nil {
		t.Fatalf("NewDataFrame failed: %v", err)
	}
	return df
}

func cube(t *testing.T) *robj.List {
	return dataFrame(t,
		[]string{"source", "collection", "tile"},
		[]robj.Value{robj.NewCharacter("BDC", "BDC"), robj.NewCharacter("MOD13Q1-6.1", "MOD13Q1-6.1"), robj.NewCharacter("012010", "013010")},
		"raster_cube", "tbl_df", "tbl", "data.frame",
	)
}

func timeSeries(t *testing.T, class ...string) *robj.List {
	if len(class) == 0 {
		class = []string{"sits", "tbl_df", "tbl", "data.frame"}
	}
	return dataFrame(t,
		[]string{"longitude", "latitude", "label"},
		[]robj.Value{robj.NewDouble(-55.1, -55.2, -55.3), robj.NewDouble(-11.1, -11.2, -11.3), robj.NewCharacter("Forest", "Pasture", "Forest")},
		class...,
	)
}

func confusionMatrix() *robj.List {
	tbl := robj.NewInteger(40, 2, 3, 55)
	tbl.Class = []string{"table"}
	tbl.Dim = []int{2, 2}
	tbl.DimNames = [][]string{{"Cerrado", "Forest"}, {"Cerrado", "Forest"}}

	overall := robj.NewDouble(0.95, 0.9)
	overall.Names = []string{"Accuracy", "Kappa"}

	cm := robj.NewNamedList([]string{"table", "overall"}, []robj.Value{tbl, overall})
	cm.Class = []string{"confusionMatrix"}
	return cm
}

func newSession(t *testing.T, rt bridge.Runtime) *Session {
	t.Helper()
	s, err := NewSession(Config{Runtime: rt, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func named(args []robj.Named, name string) robj.Value {
	for _, n := range args {
		if n.Name == name {
			return n.Value
		}
	}
	return nil
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"empty", Config{}},
		{"runtime and address", Config{Runtime: bridge.NewLocal(), Address: "localhost:1"}},
		{"token without address", Config{Runtime: bridge.NewLocal(), Token: "secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSession(tt.config); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_bands", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return robj.NewCharacter("NDVI"), nil
	})

	s, err := NewSession(Config{Runtime: rt, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if _, err := NewSession(Config{Runtime: bridge.NewLocal(), Logger: quietLogger()}); !errors.Is(err, bridge.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
	if cur, err := bridge.Current(); err != nil || cur != s.Runtime() {
		t.Errorf("session context is not the current one (%v)", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close must be a no-op, got %v", err)
	}
	if _, err := s.Bands(context.Background(), robj.NewNull()); !errors.Is(err, bridge.ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if _, err := bridge.Current(); !errors.Is(err, bridge.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after close, got %v", err)
	}

	again := newSession(t, bridge.NewLocal())
	if again.Runtime() == s.Runtime() {
		t.Error("expected a fresh context")
	}
}

func TestDataOperations(t *testing.T) {
	timeline := robj.NewDouble(17897, 17913)
	timeline.Class = []string{"Date"}

	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_bands", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return robj.NewCharacter("NDVI", "EVI"), nil
	})
	rt.Register("sits::sits_timeline", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return timeline, nil
	})
	rt.Register("sits::sits_labels", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return robj.NewCharacter("Forest", "Pasture"), nil
	})
	rt.Register("sits::sits_list_collections", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return nil, nil
	})
	s := newSession(t, rt)
	ctx := context.Background()

	bands, err := s.Bands(ctx, cube(t))
	if err != nil || !slices.Equal(bands, []string{"NDVI", "EVI"}) {
		t.Errorf("unexpected bands %v (%v)", bands, err)
	}
	dates, err := s.Timeline(ctx, cube(t))
	if err != nil || len(dates) != 2 || dates[0].Format("2006-01-02") != "2019-01-01" {
		t.Errorf("unexpected timeline %v (%v)", dates, err)
	}
	labels, err := s.Labels(ctx, timeSeries(t))
	if err != nil || !slices.Equal(labels, []string{"Forest", "Pasture"}) {
		t.Errorf("unexpected labels %v (%v)", labels, err)
	}
	if err := s.ListCollections(ctx, call.Kw("source", "BDC")); err != nil {
		t.Errorf("ListCollections failed: %v", err)
	}
}

func TestWrappersRoundTrip(t *testing.T) {
	var (
		cubeValue = cube(t)
		gotCube   robj.Value
	)
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_cube", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return cubeValue, nil
	})
	rt.Register("sits::sits_get_data", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		gotCube = args[0]
		return timeSeries(t), nil
	})
	rt.Register("sits::sits_classify", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		if robj.Inherits(args[0], "raster_cube") {
			return cubeValue, nil
		}
		return timeSeries(t, "predicted", "sits", "tbl_df", "tbl", "data.frame"), nil
	})
	s := newSession(t, rt)
	ctx := context.Background()

	c, err := s.Cube(ctx, call.Kw("source", "BDC"), call.Kw("collection", "MOD13Q1-6.1"))
	if err != nil {
		t.Fatalf("Cube failed: %v", err)
	}
	defer c.Release()
	tiles, err := c.Tiles()
	if err != nil || !slices.Equal(tiles, []string{"012010", "013010"}) {
		t.Errorf("unexpected tiles %v (%v)", tiles, err)
	}

	head, err := c.Head(1)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	defer head.Release()
	ts, err := s.GetData(ctx, head, call.Kw("samples", "samples.csv"))
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	defer ts.Release()
	if gotCube != robj.Value(cubeValue) {
		t.Error("the runtime must receive the retained cube handle")
	}

	tests := []struct {
		name string
		data any
		want string
	}{
		{"cube", c, "*models.Cube"},
		{"time series", ts, "*models.TimeSeriesClassification"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := s.Classify(ctx, tt.data, call.Kw("ml_model", robj.NewNull()))
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			got := ""
			switch o := obj.(type) {
			case *models.Cube:
				got = "*models.Cube"
				o.Release()
			case *models.TimeSeriesClassification:
				got = "*models.TimeSeriesClassification"
				o.Release()
			}
			if got != tt.want {
				t.Errorf("expected %s, got %T", tt.want, obj)
			}
		})
	}
}

func TestTrainWithClosure(t *testing.T) {
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_rfor", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return &robj.Closure{Name: "sits_rfor"}, nil
	})
	rt.Register("sits::sits_train", func(ctx context.Context, args []robj.Value, params []robj.Named) (robj.Value, error) {
		fn, ok := named(params, "ml_method").(*robj.Closure)
		if !ok || fn.Name != "sits_rfor" {
			return nil, errors.New("ml_method is not the rfor closure")
		}
		model := &robj.Closure{Name: "rfor_model"}
		model.Class = []string{"rfor_model", "sits_model", "function"}
		return model, nil
	})
	s := newSession(t, rt)
	ctx := context.Background()

	rfor, err := s.Rfor(ctx, call.Kw("num_trees", 100))
	if err != nil {
		t.Fatalf("Rfor failed: %v", err)
	}
	if rfor.Name() != "sits_rfor" || rfor.Trained() {
		t.Errorf("unexpected method %q (trained=%v)", rfor.Name(), rfor.Trained())
	}
	model, err := s.Train(ctx, timeSeries(t), call.Kw("ml_method", rfor))
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !model.Trained() {
		t.Error("expected a trained model")
	}
	if _, err := s.Svm(ctx); !errors.Is(err, bridge.ErrFunctionNotFound) {
		t.Errorf("expected ErrFunctionNotFound for an unregistered method, got %v", err)
	}
}

func TestTuning(t *testing.T) {
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_tuning", func(ctx context.Context, args []robj.Value, params []robj.Named) (robj.Value, error) {
		if named(params, "trials") == nil {
			return nil, errors.New("trials is missing")
		}
		trial := func(lr float64) robj.Value {
			return dataFrame(t, []string{"learning_rate"}, []robj.Value{robj.NewDouble(lr)}, "tbl_df", "tbl", "data.frame")
		}
		return dataFrame(t,
			[]string{"accuracy", "kappa", "params"},
			[]robj.Value{robj.NewDouble(0.93, 0.88), robj.NewDouble(0.9, 0.84), robj.NewList(trial(0.001), trial(0.01))},
			"tbl_df", "tbl", "data.frame",
		), nil
	})
	s := newSession(t, rt)

	res, err := s.Tuning(context.Background(), timeSeries(t), call.Kw("trials", 2))
	if err != nil {
		t.Fatalf("Tuning failed: %v", err)
	}
	defer res.Release()
	if res.NumRows() != 2 {
		t.Fatalf("expected 2 trials, got %d", res.NumRows())
	}
	p, err := res.Nested("params", 1)
	if err != nil {
		t.Fatalf("Nested failed: %v", err)
	}
	defer p.Release()
	if got := p.(*array.Struct).Field(0).(*array.Float64).Value(0); got != 0.01 {
		t.Errorf("expected learning rate 0.01, got %v", got)
	}
}

func TestApplyFormulas(t *testing.T) {
	rec := &recorder{result: cube(t)}
	s := newSession(t, bridge.NewLocal(bridge.WithEvalFunc(rec.eval), bridge.WithLocalLogger(quietLogger())))

	obj, err := s.Apply(context.Background(), cube(t),
		call.Kw("NDVI", "(B08 - B04) / (B08 + B04)"),
		call.Kw("output_dir", "/tmp/cubes"),
	)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, ok := obj.(*models.Cube); !ok {
		t.Errorf("expected *models.Cube, got %T", obj)
	}

	want := "sits::sits_apply(.arg1, NDVI = (B08 - B04) / (B08 + B04), output_dir = .arg2)"
	if rec.source != want {
		t.Errorf("got template\n%s\nwant\n%s", rec.source, want)
	}
	dir, ok := named(rec.env, ".arg2").(*robj.Character)
	if !ok || dir.Values[0] != "/tmp/cubes" {
		t.Errorf("output_dir must be bound as a value, got %#v", named(rec.env, ".arg2"))
	}
}

func TestReclassifyRules(t *testing.T) {
	rec := &recorder{result: cube(t)}
	s := newSession(t, bridge.NewLocal(bridge.WithEvalFunc(rec.eval), bridge.WithLocalLogger(quietLogger())))
	ctx := context.Background()

	rules := expr.NewList().
		Add("Old_Deforestation", expr.V("mask").In("Clear_Cut", "Mining")).
		Add("Water", expr.V("mask").Eq("Water"))
	if _, err := s.Reclassify(ctx, cube(t), call.Kw("mask", cube(t)), call.Kw("rules", rules)); err != nil {
		t.Fatalf("Reclassify failed: %v", err)
	}
	for _, part := range []string{
		"sits::sits_reclassify(.arg1, mask = .arg2, rules = list(",
		`"Old_Deforestation" = mask %in% c('Clear_Cut', 'Mining')`,
		`"Water" = (mask == 'Water')`,
	} {
		if !strings.Contains(rec.source, part) {
			t.Errorf("template %q does not contain %q", rec.source, part)
		}
	}

	rec.source = ""
	_, err := s.Reclassify(ctx, cube(t), call.Kw("rules", 42))
	if !errors.Is(err, expr.ErrUnsupportedOperand) {
		t.Errorf("expected ErrUnsupportedOperand, got %v", err)
	}
	if rec.source != "" {
		t.Error("invalid rules must not reach the runtime")
	}
}

func TestAccuracy(t *testing.T) {
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_accuracy", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return confusionMatrix(), nil
	})
	rt.Register("sits::sits_kfold_validate", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return confusionMatrix(), nil
	})
	s := newSession(t, rt)
	ctx := context.Background()

	obj, err := s.Accuracy(ctx, timeSeries(t, "predicted", "sits", "tbl_df", "tbl", "data.frame"))
	if err != nil {
		t.Fatalf("Accuracy failed: %v", err)
	}
	cm, ok := obj.(*models.ConfusionMatrix)
	if !ok {
		t.Fatalf("expected *models.ConfusionMatrix, got %T", obj)
	}
	defer cm.Release()
	if acc, ok := cm.Accuracy(); !ok || acc != 0.95 {
		t.Errorf("expected accuracy 0.95, got %v", acc)
	}

	kfold, err := s.KFoldValidate(ctx, timeSeries(t), call.Kw("folds", 5))
	if err != nil {
		t.Fatalf("KFoldValidate failed: %v", err)
	}
	defer kfold.Release()
	if kfold.Table().Total() != 100 {
		t.Errorf("expected 100 samples, got %d", kfold.Table().Total())
	}
}

func TestReadRDS(t *testing.T) {
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("base::readRDS", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		path := args[0].(*robj.Character).Values[0]
		if strings.HasSuffix(path, "model.rds") {
			return robj.NewDouble(1), nil
		}
		return timeSeries(t), nil
	})
	s := newSession(t, rt)
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"samples.rds", "model.rds"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("RDS"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	obj, err := s.ReadRDS(ctx, filepath.Join(dir, "samples.rds"))
	if err != nil {
		t.Fatalf("ReadRDS failed: %v", err)
	}
	if ts, ok := obj.(*models.TimeSeries); !ok {
		t.Errorf("expected *models.TimeSeries, got %T", obj)
	} else {
		ts.Release()
	}

	if _, err := s.ReadRDS(ctx, filepath.Join(dir, "model.rds")); !errors.Is(err, models.ErrUnsupportedObject) {
		t.Errorf("expected ErrUnsupportedObject, got %v", err)
	}
	if _, err := s.ReadRDS(ctx, filepath.Join(dir, "missing.rds")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestDatasetAndSeed(t *testing.T) {
	var seed int
	rec := &recorder{result: timeSeries(t)}
	rt := bridge.NewLocal(bridge.WithEvalFunc(rec.eval), bridge.WithLocalLogger(quietLogger()))
	rt.Register("base::set.seed", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		seed = args[0].(*robj.Integer).Values[0]
		return nil, nil
	})
	s := newSession(t, rt)
	ctx := context.Background()

	obj, err := s.Dataset(ctx, "samples_modis_ndvi")
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	if _, ok := obj.(*models.TimeSeries); !ok {
		t.Errorf("expected *models.TimeSeries, got %T", obj)
	}
	if rec.source != "sits::samples_modis_ndvi" {
		t.Errorf("unexpected source %q", rec.source)
	}
	if _, err := s.Dataset(ctx, "x; system('rm')"); !errors.Is(err, ErrInvalidDataset) {
		t.Errorf("expected ErrInvalidDataset, got %v", err)
	}

	if err := s.SetSeed(ctx, 42); err != nil || seed != 42 {
		t.Errorf("expected seed 42, got %d (%v)", seed, err)
	}
}

func TestFilter(t *testing.T) {
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_get_data", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		return timeSeries(t), nil
	})
	s := newSession(t, rt)
	ctx := context.Background()

	ts, err := s.GetData(ctx, cube(t))
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	defer ts.Release()

	forest, err := s.Filter(ctx, ts.Frame, expr.V("label").Eq("Forest"))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	defer forest.Release()
	if forest.NumRows() != 2 || forest.ForeignHandle() != ts.ForeignHandle() {
		t.Errorf("expected 2 rows with the parent handle, got %d", forest.NumRows())
	}

	s.Close()
	if _, err := s.Filter(ctx, ts.Frame, expr.V("label").Eq("Forest")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func remoteServer(t *testing.T, rt bridge.Runtime) string {
	t.Helper()
	auth := flight.BearerAuth(func(token string) (string, error) {
		if token != "secret" {
			return "", errors.New("unknown token")
		}
		return "analyst", nil
	})
	config := flight.ServerConfig{Runtime: rt, Auth: auth, Logger: quietLogger()}
	g := grpc.NewServer(flight.ServerOptions(config)...)
	srv, err := flight.NewServer(g, config)
	if err != nil {
		t.Fatalf("flight.NewServer failed: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go g.Serve(lis)
	t.Cleanup(func() {
		g.Stop()
		srv.Close()
	})
	return lis.Addr().String()
}

func remoteSession(t *testing.T, rt bridge.Runtime) *Session {
	t.Helper()
	s, err := NewSession(Config{Address: remoteServer(t, rt), Token: "secret", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRemoteSession(t *testing.T) {
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("sits::sits_bands", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		if !robj.Inherits(args[0], "raster_cube") {
			return nil, errors.New("expected a cube")
		}
		return robj.NewCharacter("B04", "B08"), nil
	})
	s := remoteSession(t, rt)

	bands, err := s.Bands(context.Background(), cube(t))
	if err != nil || !slices.Equal(bands, []string{"B04", "B08"}) {
		t.Errorf("unexpected bands %v (%v)", bands, err)
	}
}

func TestRemoteReadRDS(t *testing.T) {
	const serverPath = "/srv/sits/samples.rds"
	rt := bridge.NewLocal(bridge.WithLocalLogger(quietLogger()))
	rt.Register("base::readRDS", func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error) {
		if path := args[0].(*robj.Character).Values[0]; path != serverPath {
			return nil, fmt.Errorf("cannot open file '%s': No such file or directory", path)
		}
		return timeSeries(t), nil
	})
	s := remoteSession(t, rt)
	ctx := context.Background()

	if _, err := os.Stat(serverPath); err == nil {
		t.Skipf("%s exists locally", serverPath)
	}
	obj, err := s.ReadRDS(ctx, serverPath)
	if err != nil {
		t.Fatalf("ReadRDS failed: %v", err)
	}
	if ts, ok := obj.(*models.TimeSeries); !ok {
		t.Errorf("expected *models.TimeSeries, got %T", obj)
	} else {
		ts.Release()
	}

	_, err = s.ReadRDS(ctx, "/srv/sits/missing.rds")
	if err == nil || !strings.Contains(err.Error(), "No such file") {
		t.Errorf("expected the server error, got %v", err)
	}
}
