package convert

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Field metadata keys used for geometry columns.
const (
	MetaExtensionName     = "ARROW:extension:name"
	MetaExtensionMetadata = "ARROW:extension:metadata"
	MetaSRID              = "srid"
	MetaCRS               = "crs"

	geometryExtensionName = "geoarrow.wkb"
)

// GeometryType is the Arrow extension type of geometry columns.
// Values are WKB in Binary storage, the same layout DuckDB spatial and
// GeoParquet use.
type GeometryType struct {
	arrow.ExtensionBase
}

// NewGeometryType creates the geometry extension type.
func NewGeometryType() *GeometryType {
	return &GeometryType{ExtensionBase: arrow.ExtensionBase{Storage: arrow.BinaryTypes.Binary}}
}

// GeometryArray is the array type of geometry columns; Storage() holds the WKB.
type GeometryArray struct {
	array.ExtensionArrayBase
}

func (g *GeometryType) ArrayType() reflect.Type {
	return reflect.TypeOf(GeometryArray{})
}

func (g *GeometryType) ExtensionName() string { return geometryExtensionName }

func (g *GeometryType) String() string { return "extension<" + geometryExtensionName + ">" }

func (g *GeometryType) Serialize() string { return "" }

func (g *GeometryType) Deserialize(storage arrow.DataType, _ string) (arrow.ExtensionType, error) {
	if !arrow.TypeEqual(storage, arrow.BinaryTypes.Binary) &&
		!arrow.TypeEqual(storage, arrow.BinaryTypes.LargeBinary) {
		return nil, fmt.Errorf("invalid storage type for geometry: %s", storage)
	}
	return &GeometryType{ExtensionBase: arrow.ExtensionBase{Storage: storage}}, nil
}

func (g *GeometryType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*GeometryType)
	return ok && arrow.TypeEqual(g.StorageType(), o.StorageType())
}

// geometryMetadata is the JSON stored under ARROW:extension:metadata.
type geometryMetadata struct {
	CRS      *crsJSON `json:"crs,omitempty"`
	Encoding string   `json:"encoding,omitempty"`
}

type crsJSON struct {
	ID   *crsID `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type crsID struct {
	Authority string `json:"authority"`
	Code      int    `json:"code"`
}

// NewGeometryField creates a geometry column field carrying crs, which is
// either an authority code ("EPSG:4326") or any other spatial reference text.
func NewGeometryField(name string, nullable bool, crs string) arrow.Field {
	meta := geometryMetadata{Encoding: "WKB"}
	keys := []string{MetaExtensionName}
	vals := []string{geometryExtensionName}
	if crs != "" {
		c := &crsJSON{Name: crs}
		if auth, code, ok := splitAuthority(crs); ok {
			c = &crsJSON{ID: &crsID{Authority: auth, Code: code}}
			if auth == "EPSG" {
				keys = append(keys, MetaSRID)
				vals = append(vals, strconv.Itoa(code))
			}
		}
		meta.CRS = c
	}
	b, _ := json.Marshal(meta)
	keys = append(keys, MetaExtensionMetadata)
	vals = append(vals, string(b))

	return arrow.Field{
		Name:     name,
		Type:     NewGeometryType(),
		Nullable: nullable,
		Metadata: arrow.NewMetadata(keys, vals),
	}
}

// IsGeometryField reports whether the field holds geometries.
func IsGeometryField(f arrow.Field) bool {
	if _, ok := f.Type.(*GeometryType); ok {
		return true
	}
	if ext, ok := f.Type.(arrow.ExtensionType); ok && ext.ExtensionName() == geometryExtensionName {
		return true
	}
	name, ok := f.Metadata.GetValue(MetaExtensionName)
	return ok && name == geometryExtensionName
}

// FieldCRS resolves the spatial reference of a geometry field from, in order,
// the field's srid metadata, the extension CRS metadata and the schema level
// "crs" metadata.
func FieldCRS(f arrow.Field, schema *arrow.Schema) (string, bool) {
	if srid, ok := f.Metadata.GetValue(MetaSRID); ok && srid != "" && srid != "0" {
		return "EPSG:" + srid, true
	}
	if raw, ok := f.Metadata.GetValue(MetaExtensionMetadata); ok && raw != "" {
		var meta geometryMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err == nil && meta.CRS != nil {
			if meta.CRS.ID != nil && meta.CRS.ID.Code != 0 {
				return fmt.Sprintf("%s:%d", meta.CRS.ID.Authority, meta.CRS.ID.Code), true
			}
			if meta.CRS.Name != "" {
				return meta.CRS.Name, true
			}
		}
	}
	if schema != nil {
		if crs, ok := schema.Metadata().GetValue(MetaCRS); ok && crs != "" {
			return crs, true
		}
	}
	return "", false
}

func splitAuthority(crs string) (string, int, bool) {
	auth, code, ok := strings.Cut(crs, ":")
	if !ok {
		return "", 0, false
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return "", 0, false
	}
	return strings.ToUpper(auth), n, true
}

// WKBToWKT converts WKB bytes into WKT text.
func WKBToWKT(b []byte) (string, error) {
	if len(b) == 0 {
		return "", fmt.Errorf("cannot decode empty WKB data")
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return "", err
	}
	return wkt.MarshalString(g), nil
}

// WKTToWKB converts WKT text into WKB bytes.
func WKTToWKB(s string) ([]byte, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, err
	}
	return EncodeGeometry(g)
}

// EncodeGeometry converts an orb geometry into WKB.
func EncodeGeometry(g orb.Geometry) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("cannot encode nil geometry")
	}
	return wkb.Marshal(g)
}

// DecodeGeometry converts WKB into an orb geometry.
func DecodeGeometry(b []byte) (orb.Geometry, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("cannot decode empty WKB data")
	}
	return wkb.Unmarshal(b)
}

func init() {
	_ = arrow.RegisterExtensionType(NewGeometryType())
}
