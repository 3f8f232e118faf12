package msgpack

import (
	"math"
	"reflect"
	"testing"

	"github.com/hugr-lab/sits-go/robj"
)

func TestValueWireRoundTrip(t *testing.T) {
	ndvi := robj.NewDouble(0.5, math.NaN())
	ndvi.NA = []bool{false, true}
	df, err := robj.NewDataFrame(
		[]string{"label", "ndvi"},
		[]robj.Value{robj.NewCharacter("Forest", "Water"), ndvi},
		"sits", "tbl_df", "tbl", "data.frame",
	)
	if err != nil {
		t.Fatalf("NewDataFrame failed: %v", err)
	}
	df.SetAttr("crs", robj.NewCharacter("EPSG:4326"))

	w, err := FromValue(df, nil)
	if err != nil {
		t.Fatalf("FromValue failed: %v", err)
	}
	data, err := Encode(w)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var back Value
	if err := Decode(data, &back); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	v, err := back.ToValue(nil)
	if err != nil {
		t.Fatalf("ToValue failed: %v", err)
	}

	got := v.(*robj.List)
	if !reflect.DeepEqual(got.Class, df.Class) || !reflect.DeepEqual(got.Names, df.Names) {
		t.Errorf("attributes lost: class=%v names=%v", got.Class, got.Names)
	}
	if robj.NRow(got) != 2 {
		t.Errorf("expected 2 rows, got %d", robj.NRow(got))
	}
	if got.StringAttr("crs") != "EPSG:4326" {
		t.Errorf("expected crs attribute, got %q", got.StringAttr("crs"))
	}
	col := got.Values[1].(*robj.Double)
	if col.Values[0] != 0.5 || !col.IsNA(1) {
		t.Errorf("unexpected column %v na=%v", col.Values, col.NA)
	}
}

func TestValueHandles(t *testing.T) {
	model := struct{ trees int }{trees: 100}
	fn := &robj.Closure{Name: "sits_rfor", Object: model}

	table := map[string]any{}
	export := func(id string, object any) string {
		if object == nil {
			return id
		}
		table["h1"] = object
		return "h1"
	}
	w, err := FromValue(robj.NewList(fn, &robj.Ref{ID: "env7"}), export)
	if err != nil {
		t.Fatalf("FromValue failed: %v", err)
	}
	if w.Items[0].ID != "h1" || w.Items[1].ID != "env7" {
		t.Fatalf("unexpected wire ids %q %q", w.Items[0].ID, w.Items[1].ID)
	}

	v, err := w.ToValue(func(id string) any { return table[id] })
	if err != nil {
		t.Fatalf("ToValue failed: %v", err)
	}
	back := v.(*robj.List).Values[0].(*robj.Closure)
	if back.Name != "sits_rfor" || back.Object != any(model) {
		t.Errorf("closure not resolved: %#v", back)
	}
	if ref := v.(*robj.List).Values[1].(*robj.Ref); ref.Object != nil {
		t.Errorf("unknown id must resolve to nil, got %v", ref.Object)
	}
}

func TestValueUnknownKind(t *testing.T) {
	if _, err := (&Value{Kind: "environment"}).ToValue(nil); err == nil {
		t.Error("expected error for unknown kind")
	}
	if err := Decode(nil, &Value{}); err == nil {
		t.Error("expected error for empty data")
	}
}
