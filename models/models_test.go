package models

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/robj"
	"github.com/paulmach/orb"
)

func samples(t *testing.T, class ...string) *robj.List {
	t.Helper()
	idx := robj.NewDouble(17897, 17913)
	idx.Class = []string{"Date"}
	series := func(a, b float64) robj.Value {
		df, err := robj.NewDataFrame([]string{"Index", "NDVI"}, []robj.Value{idx, robj.NewDouble(a, b)})
		if err != nil {
			t.Fatalf("NewDataFrame failed: %v", err)
		}
		return df
	}
	if len(class) == 0 {
		class = []string{"sits", "tbl_df", "tbl", "data.frame"}
	}
	df, err := robj.NewDataFrame(
		[]string{"longitude", "latitude", "label", "time_series"},
		[]robj.Value{
			robj.NewDouble(-55.1, -55.2, -55.3),
			robj.NewDouble(-11.1, -11.2, -11.3),
			robj.NewCharacter("Forest", "Pasture", "Forest"),
			robj.NewList(series(0.8, 0.9), series(0.3, 0.4), series(0.7, 0.8)),
		},
		class...,
	)
	if err != nil {
		t.Fatalf("NewDataFrame failed: %v", err)
	}
	return df
}

func TestResolvePriority(t *testing.T) {
	tests := []struct {
		name  string
		class []string
		want  string
	}{
		{"classification", []string{"predicted", "sits", "tbl_df", "tbl", "data.frame"}, "*models.TimeSeriesClassification"},
		{"time series", []string{"sits", "tbl_df", "tbl", "data.frame"}, "*models.TimeSeries"},
		{"cube", []string{"raster_cube", "tbl_df", "tbl", "data.frame"}, "*models.Cube"},
		{"sf samples", []string{"sf", "tbl_df", "tbl", "data.frame"}, "*models.TimeSeriesSF"},
		{"sf", []string{"sf", "data.frame"}, "*models.FrameSF"},
		{"tibble", []string{"tbl_df", "tbl", "data.frame"}, "*models.Frame"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Resolve(samples(t, tt.class...), nil)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got := reflect.TypeOf(obj).String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	v := robj.NewList()
	v.Class = []string{"unknown_tag"}

	obj, err := Resolve(v, nil)
	if obj != nil {
		t.Errorf("expected no wrapper, got %T", obj)
	}
	if !errors.Is(err, ErrUnsupportedObject) {
		t.Fatalf("expected ErrUnsupportedObject, got %v", err)
	}
	var ue *UnsupportedObjectError
	if !errors.As(err, &ue) || !reflect.DeepEqual(ue.Tags, []string{"unknown_tag"}) {
		t.Errorf("expected tags in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown_tag") {
		t.Errorf("expected message to name the tag, got %q", err.Error())
	}
}

func TestSelectTypedNil(t *testing.T) {
	_, err := Select((*robj.List)(nil))
	if !errors.Is(err, ErrUnsupportedObject) {
		t.Fatalf("expected ErrUnsupportedObject, got %v", err)
	}
	var ue *UnsupportedObjectError
	if !errors.As(err, &ue) || !reflect.DeepEqual(ue.Tags, []string{"NULL"}) {
		t.Errorf("expected NULL tag, got %v", err)
	}
}

func TestSelectAccuracy(t *testing.T) {
	cm := robj.NewList()
	cm.Class = []string{"confusionMatrix"}
	if _, err := SelectAccuracy(cm); err != nil {
		t.Errorf("expected confusionMatrix rule, got %v", err)
	}
	if _, err := SelectAccuracy(samples(t)); !errors.Is(err, ErrUnsupportedObject) {
		t.Errorf("expected ErrUnsupportedObject for samples, got %v", err)
	}
}

func TestResolveRDS(t *testing.T) {
	obj, err := ResolveRDS(samples(t), nil)
	if err != nil {
		t.Fatalf("ResolveRDS failed: %v", err)
	}
	if _, ok := obj.(*TimeSeries); !ok {
		t.Errorf("expected *TimeSeries, got %T", obj)
	}
	_, err = ResolveRDS(samples(t, "tbl_df", "tbl", "data.frame"), nil)
	if !errors.Is(err, ErrUnsupportedObject) {
		t.Errorf("expected ErrUnsupportedObject for plain tibble, got %v", err)
	}
}

func TestWrapperPassthrough(t *testing.T) {
	handle := samples(t)
	ts, err := NewTimeSeries(handle, nil)
	if err != nil {
		t.Fatalf("NewTimeSeries failed: %v", err)
	}
	defer ts.Release()

	v, err := convert.Encode(ts)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if v != robj.Value(handle) {
		t.Error("expected encoding to return the retained handle")
	}
}

func TestDerivedFramesKeepHandle(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	handle := samples(t)
	ts, err := NewTimeSeries(handle, mem)
	if err != nil {
		t.Fatalf("NewTimeSeries failed: %v", err)
	}
	defer ts.Release()

	if ts.Derived() {
		t.Error("fresh frame must not be derived")
	}

	head, err := ts.Head(2)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	defer head.Release()
	if head.NumRows() != 2 || !head.Derived() {
		t.Errorf("unexpected head: rows=%d derived=%v", head.NumRows(), head.Derived())
	}
	if head.ForeignHandle() != robj.Value(handle) {
		t.Error("head lost the handle")
	}

	picked, err := ts.Take([]int{2, 0})
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	defer picked.Release()
	labels, err := picked.Labels()
	if err != nil {
		t.Fatalf("Labels failed: %v", err)
	}
	if !reflect.DeepEqual(labels, []string{"Forest", "Forest"}) {
		t.Errorf("unexpected labels %v", labels)
	}
	lon, _ := picked.Column("longitude")
	if got := lon.(*array.Float64).Value(0); got != -55.3 {
		t.Errorf("expected row 2 first, got longitude %v", got)
	}
	if v, _ := convert.Encode(picked); v != robj.Value(handle) {
		t.Error("derived frame must encode as the parent handle")
	}

	if _, err := ts.Take([]int{5}); err == nil {
		t.Error("expected out of range error")
	}

	whole, err := ts.Head(10)
	if err != nil {
		t.Fatalf("Head beyond length failed: %v", err)
	}
	defer whole.Release()
	if whole.NumRows() != 3 {
		t.Errorf("expected the whole frame, got %d rows", whole.NumRows())
	}
}

func TestDerivedFrameBounds(t *testing.T) {
	ts, err := NewTimeSeries(samples(t), nil)
	if err != nil {
		t.Fatalf("NewTimeSeries failed: %v", err)
	}
	defer ts.Release()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"negative head", func() error { _, err := ts.Head(-1); return err }},
		{"negative start", func() error { _, err := ts.Slice(-1, 2); return err }},
		{"reversed", func() error { _, err := ts.Slice(2, 1); return err }},
		{"past end", func() error { _, err := ts.Slice(0, 4); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestTimeSeriesNested(t *testing.T) {
	ts, err := NewTimeSeries(samples(t), nil)
	if err != nil {
		t.Fatalf("NewTimeSeries failed: %v", err)
	}
	defer ts.Release()

	s, err := ts.Series(1)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	defer s.Release()
	st := s.(*array.Struct)
	if st.Len() != 2 {
		t.Fatalf("expected 2 observations, got %d", st.Len())
	}
	if got := st.Field(1).(*array.Float64).Value(0); got != 0.3 {
		t.Errorf("expected NDVI 0.3, got %v", got)
	}
}

func TestFrameSFGeometries(t *testing.T) {
	df, _ := robj.NewDataFrame(
		[]string{"id", "geometry"},
		[]robj.Value{robj.NewInteger(1, 2), robj.NewCharacter("POINT(1 2)", "POINT(3 4)")},
		"sf", "data.frame",
	)
	df.SetAttr("sf_column", robj.NewCharacter("geometry"))
	df.SetAttr("crs", robj.NewCharacter("EPSG:4326"))

	obj, err := Resolve(df, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	sf, ok := obj.(*FrameSF)
	if !ok {
		t.Fatalf("expected *FrameSF, got %T", obj)
	}
	defer sf.Release()
	if sf.CRS() != "EPSG:4326" {
		t.Errorf("expected crs EPSG:4326, got %q", sf.CRS())
	}

	second, err := sf.Slice(1, 2)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	defer second.Release()
	geoms, err := second.Geometries()
	if err != nil {
		t.Fatalf("Geometries failed: %v", err)
	}
	if len(geoms) != 1 || !orb.Equal(geoms[0], orb.Point{3, 4}) {
		t.Errorf("unexpected geometries %v", geoms)
	}
	if second.CRS() != "EPSG:4326" {
		t.Error("derived sf frame lost its crs")
	}
}

func TestNamedVector(t *testing.T) {
	v := robj.NewDouble(0.9, 0.8)
	v.Names = []string{"Accuracy", "Kappa"}

	nv, err := NewNamedVector(v, nil)
	if err != nil {
		t.Fatalf("NewNamedVector failed: %v", err)
	}
	defer nv.Release()
	if nv.NumRows() != 1 || !reflect.DeepEqual(nv.Columns(), []string{"Accuracy", "Kappa"}) {
		t.Errorf("unexpected frame %v rows=%d", nv.Columns(), nv.NumRows())
	}
	if k, ok := nv.Get("Kappa"); !ok || k != 0.8 {
		t.Errorf("expected Kappa 0.8, got %v", k)
	}
}

func confusionMatrix() *robj.List {
	tbl := robj.NewInteger(40, 2, 3, 55)
	tbl.Class = []string{"table"}
	tbl.Dim = []int{2, 2}
	tbl.DimNames = [][]string{{"Cerrado", "Forest"}, {"Cerrado", "Forest"}}

	overall := robj.NewDouble(0.95, 0.9)
	overall.Names = []string{"Accuracy", "Kappa"}

	byClass := robj.NewDouble(0.93, 0.96, 0.96, 0.93)
	byClass.Dim = []int{2, 2}
	byClass.DimNames = [][]string{{"Class: Cerrado", "Class: Forest"}, {"Sensitivity", "Specificity"}}

	cm := robj.NewNamedList(
		[]string{"positive", "table", "overall", "byClass"},
		[]robj.Value{robj.NewNull(), tbl, overall, byClass},
	)
	cm.Class = []string{"confusionMatrix"}
	return cm
}

func TestConfusionMatrix(t *testing.T) {
	obj, err := ResolveAccuracy(confusionMatrix(), nil)
	if err != nil {
		t.Fatalf("ResolveAccuracy failed: %v", err)
	}
	cm := obj.(*ConfusionMatrix)
	defer cm.Release()

	if cm.Table().Count(1, 1) != 55 || cm.Table().Total() != 100 {
		t.Errorf("unexpected table %v", cm.Table().Values)
	}
	if acc, ok := cm.Accuracy(); !ok || acc != 0.95 {
		t.Errorf("expected accuracy 0.95, got %v", acc)
	}
	if cm.ByClass().ColNames[0] != "Sensitivity" {
		t.Errorf("unexpected byClass columns %v", cm.ByClass().ColNames)
	}
}

func TestAreaAccuracy(t *testing.T) {
	em := robj.NewInteger(10, 1, 2, 20)
	em.Class = []string{"table"}
	em.Dim = []int{2, 2}

	area := robj.NewDouble(1200.5, 800)
	area.Names = []string{"Cerrado", "Forest"}
	user := robj.NewDouble(0.9, 0.95)
	user.Names = area.Names

	acc := robj.NewNamedList(
		[]string{"user", "producer", "overall"},
		[]robj.Value{user, user, robj.NewDouble(0.91)},
	)
	v := robj.NewNamedList(
		[]string{"error_matrix", "area_pixels", "error_ajusted_area", "stderr_prop", "stderr_area", "conf_interval", "accuracy"},
		[]robj.Value{em, area, robj.NewDouble(1, 2), robj.NewDouble(0, 0), robj.NewDouble(0, 0), robj.NewDouble(0, 0), acc},
	)
	v.Class = []string{"sits_area_accuracy"}

	obj, err := ResolveAccuracy(v, nil)
	if err != nil {
		t.Fatalf("ResolveAccuracy failed: %v", err)
	}
	a := obj.(*Accuracy)
	defer a.Release()
	if a.Overall() != 0.91 {
		t.Errorf("expected overall 0.91, got %v", a.Overall())
	}
	if got, _ := a.AreaPixels().Get("Cerrado"); got != 1200.5 {
		t.Errorf("expected Cerrado area 1200.5, got %v", got)
	}
	if a.ErrorMatrix().Count(0, 1) != 2 {
		t.Errorf("unexpected error matrix %v", a.ErrorMatrix().Values)
	}
}

func TestMLMethod(t *testing.T) {
	m, err := NewMLMethod(&robj.Closure{Name: "sits_rfor"})
	if err != nil {
		t.Fatalf("NewMLMethod failed: %v", err)
	}
	if m.Name() != "sits_rfor" || m.Trained() {
		t.Errorf("unexpected method %q trained=%v", m.Name(), m.Trained())
	}

	model := &robj.Closure{Name: "sits_train"}
	model.Class = []string{"rfor_model", "sits_model", "function"}
	m, _ = NewMLMethod(model)
	if !m.Trained() {
		t.Error("expected trained model")
	}

	if _, err := NewMLMethod(robj.NewInteger(1)); !errors.Is(err, convert.ErrUndecodable) {
		t.Errorf("expected ErrUndecodable, got %v", err)
	}
}

func TestFrameFromRecordRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "label", Type: arrow.BinaryTypes.String},
		{Name: "ndvi", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"Forest", "Water"}, nil)
	b.Field(2).(*array.Float64Builder).AppendValues([]float64{0.8, 0.1}, nil)
	rec := b.NewRecordBatch()

	f := FrameFromRecord(rec)
	rec.Release()
	defer f.Release()
	if f.ForeignHandle() != nil || f.Classes() != nil || f.Derived() {
		t.Fatal("a host frame must have no handle")
	}

	v, err := convert.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !robj.Inherits(v, "tbl_df") {
		t.Errorf("expected a tibble, got class %v", robj.Class(v))
	}

	back, err := NewFrame(v, mem)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	defer back.Release()
	if !reflect.DeepEqual(back.Columns(), []string{"id", "label", "ndvi"}) || back.NumRows() != 2 {
		t.Fatalf("unexpected frame: columns %v rows %d", back.Columns(), back.NumRows())
	}
	labels, err := back.Strings("label")
	if err != nil || !reflect.DeepEqual(labels, []string{"Forest", "Water"}) {
		t.Errorf("unexpected labels %v (%v)", labels, err)
	}
	ndvi, _ := back.Column("ndvi")
	if got := ndvi.(*array.Float64).Value(1); got != 0.1 {
		t.Errorf("expected ndvi 0.1, got %v", got)
	}
}

func TestNestedFrame(t *testing.T) {
	params := func(trees int) robj.Value {
		df, err := robj.NewDataFrame([]string{"num_trees"}, []robj.Value{robj.NewInteger(trees)})
		if err != nil {
			t.Fatalf("NewDataFrame failed: %v", err)
		}
		return df
	}
	df, err := robj.NewDataFrame(
		[]string{"accuracy", "params"},
		[]robj.Value{robj.NewDouble(0.91, 0.87), robj.NewList(params(100), params(250))},
		"tbl_df", "tbl", "data.frame",
	)
	if err != nil {
		t.Fatalf("NewDataFrame failed: %v", err)
	}

	nf, err := NewNestedFrame(df, nil)
	if err != nil {
		t.Fatalf("NewNestedFrame failed: %v", err)
	}
	defer nf.Release()

	p, err := nf.Nested("params", 1)
	if err != nil {
		t.Fatalf("Nested failed: %v", err)
	}
	defer p.Release()
	if got := p.(*array.Struct).Field(0).(*array.Int64).Value(0); got != 250 {
		t.Errorf("expected 250 trees, got %d", got)
	}
	if _, err := nf.Nested("accuracy", 0); err == nil {
		t.Error("expected an error for a flat column")
	}
	if _, err := nf.Nested("params", 2); err == nil {
		t.Error("expected an out of range error")
	}
}
