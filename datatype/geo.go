package datatype

import (
	"fmt"
	"math"

	"github.com/hupe1980/geostore"
)

// Coordinate is a longitude/latitude position in degrees.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Envelope is an axis-aligned bounding box.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
}

var (
	// CoordinateType stores both axes as float64 (16 bytes).
	CoordinateType FixedSizeDataType[Coordinate] = fixed[Coordinate]{
		size: 16,
		put: func(b []byte, v Coordinate) {
			le.PutUint64(b, math.Float64bits(v.Lon))
			le.PutUint64(b[8:], math.Float64bits(v.Lat))
		},
		get: func(b []byte) Coordinate {
			return Coordinate{
				Lon: math.Float64frombits(le.Uint64(b)),
				Lat: math.Float64frombits(le.Uint64(b[8:])),
			}
		},
	}

	// EnvelopeType stores minX, minY, maxX, maxY as float64 (32 bytes).
	EnvelopeType FixedSizeDataType[Envelope] = fixed[Envelope]{
		size: 32,
		put: func(b []byte, v Envelope) {
			le.PutUint64(b, math.Float64bits(v.MinX))
			le.PutUint64(b[8:], math.Float64bits(v.MinY))
			le.PutUint64(b[16:], math.Float64bits(v.MaxX))
			le.PutUint64(b[24:], math.Float64bits(v.MaxY))
		},
		get: func(b []byte) Envelope {
			return Envelope{
				MinX: math.Float64frombits(le.Uint64(b)),
				MinY: math.Float64frombits(le.Uint64(b[8:])),
				MaxX: math.Float64frombits(le.Uint64(b[16:])),
				MaxY: math.Float64frombits(le.Uint64(b[24:])),
			}
		},
	}

	// LonLat packs a coordinate into two int32 at 1e-7 degree precision
	// (8 bytes), the resolution of OpenStreetMap node positions.
	LonLat FixedSizeDataType[Coordinate] = fixed[Coordinate]{
		size: 8,
		put: func(b []byte, v Coordinate) {
			le.PutUint32(b, uint32(int32(math.Round(v.Lon*lonLatScale))))
			le.PutUint32(b[4:], uint32(int32(math.Round(v.Lat*lonLatScale))))
		},
		get: func(b []byte) Coordinate {
			return Coordinate{
				Lon: float64(int32(le.Uint32(b))) / lonLatScale,
				Lat: float64(int32(le.Uint32(b[4:]))) / lonLatScale,
			}
		},
	}

	// CoordinateSlice encodes a line of coordinates.
	CoordinateSlice = NewSlice(CoordinateType)
)

const lonLatScale = 1e7

// Geometry is a tagged geometry value. The concrete types are Point,
// LineString, Polygon, MultiPoint, MultiLineString, MultiPolygon and
// GeometryCollection; a nil Geometry is stored as an empty value.
type Geometry interface {
	geometryTag() byte
}

type (
	Point           Coordinate
	LineString      []Coordinate
	Polygon         [][]Coordinate // exterior ring first, then holes
	MultiPoint      []Coordinate
	MultiLineString [][]Coordinate
	MultiPolygon    [][][]Coordinate
	// GeometryCollection may nest further collections.
	GeometryCollection []Geometry
)

const (
	tagNull byte = iota
	tagPoint
	tagLineString
	tagPolygon
	tagMultiPoint
	tagMultiLineString
	tagMultiPolygon
	tagGeometryCollection
)

func (Point) geometryTag() byte              { return tagPoint }
func (LineString) geometryTag() byte         { return tagLineString }
func (Polygon) geometryTag() byte            { return tagPolygon }
func (MultiPoint) geometryTag() byte         { return tagMultiPoint }
func (MultiLineString) geometryTag() byte    { return tagMultiLineString }
func (MultiPolygon) geometryTag() byte       { return tagMultiPolygon }
func (GeometryCollection) geometryTag() byte { return tagGeometryCollection }

var (
	ringsType    = NewList[[]Coordinate](CoordinateSlice)
	polygonsType = NewList[[][]Coordinate](ringsType)
)

// GeometryType encodes a Geometry as [tag byte][body]. Points use
// CoordinateType, lines and multi-points CoordinateSlice, and the nested
// kinds lists of those. Collections are lists of tagged geometries.
var GeometryType DataType[Geometry] = geometryType{}

type geometryType struct{}

func (geometryType) members() ListType[Geometry] { return NewList[Geometry](geometryType{}) }

func (g geometryType) bodySize(v Geometry) (int, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case Point:
		return CoordinateType.FixedSize(), nil
	case LineString:
		return CoordinateSlice.Size(v), nil
	case MultiPoint:
		return CoordinateSlice.Size(v), nil
	case Polygon:
		return ringsType.Size(v), nil
	case MultiLineString:
		return ringsType.Size(v), nil
	case MultiPolygon:
		return polygonsType.Size(v), nil
	case GeometryCollection:
		return g.members().Size(v), nil
	}
	return 0, geostore.NewArgumentError("geometry", fmt.Sprintf("%T", v), "unsupported geometry type")
}

// Size returns 1 for unsupported types; Write rejects them.
func (g geometryType) Size(v Geometry) int {
	n, _ := g.bodySize(v)
	return 1 + n
}

func (g geometryType) SizeAt(buf []byte, off int) (int, error) {
	if err := checkRange("read", buf, off, 1); err != nil {
		return 0, err
	}
	var (
		n   int
		err error
	)
	switch tag := buf[off]; tag {
	case tagNull:
	case tagPoint:
		n, err = CoordinateType.SizeAt(buf, off+1)
	case tagLineString, tagMultiPoint:
		n, err = CoordinateSlice.SizeAt(buf, off+1)
	case tagPolygon, tagMultiLineString:
		n, err = ringsType.SizeAt(buf, off+1)
	case tagMultiPolygon:
		n, err = polygonsType.SizeAt(buf, off+1)
	case tagGeometryCollection:
		n, err = g.members().SizeAt(buf, off+1)
	default:
		return 0, unknownTag(tag, off)
	}
	if err != nil {
		return 0, err
	}
	return 1 + n, nil
}

func (g geometryType) Write(buf []byte, off int, v Geometry) error {
	n, err := g.bodySize(v)
	if err != nil {
		return err
	}
	if err := checkRange("write", buf, off, 1+n); err != nil {
		return err
	}
	if v == nil {
		buf[off] = tagNull
		return nil
	}
	buf[off] = v.geometryTag()
	switch v := v.(type) {
	case Point:
		return CoordinateType.Write(buf, off+1, Coordinate(v))
	case LineString:
		return CoordinateSlice.Write(buf, off+1, v)
	case MultiPoint:
		return CoordinateSlice.Write(buf, off+1, v)
	case Polygon:
		return ringsType.Write(buf, off+1, v)
	case MultiLineString:
		return ringsType.Write(buf, off+1, v)
	case MultiPolygon:
		return polygonsType.Write(buf, off+1, v)
	default:
		return g.members().Write(buf, off+1, v.(GeometryCollection))
	}
}

func (g geometryType) Read(buf []byte, off int) (Geometry, error) {
	if err := checkRange("read", buf, off, 1); err != nil {
		return nil, err
	}
	var (
		geom Geometry
		err  error
		p    = off + 1
	)
	switch tag := buf[off]; tag {
	case tagNull:
		return nil, nil
	case tagPoint:
		var c Coordinate
		c, err = CoordinateType.Read(buf, p)
		geom = Point(c)
	case tagLineString, tagMultiPoint:
		var cs []Coordinate
		if cs, err = CoordinateSlice.Read(buf, p); tag == tagLineString {
			geom = LineString(cs)
		} else {
			geom = MultiPoint(cs)
		}
	case tagPolygon, tagMultiLineString:
		var rs [][]Coordinate
		if rs, err = ringsType.Read(buf, p); tag == tagPolygon {
			geom = Polygon(rs)
		} else {
			geom = MultiLineString(rs)
		}
	case tagMultiPolygon:
		var ps [][][]Coordinate
		ps, err = polygonsType.Read(buf, p)
		geom = MultiPolygon(ps)
	case tagGeometryCollection:
		var gs []Geometry
		gs, err = g.members().Read(buf, p)
		geom = GeometryCollection(gs)
	default:
		return nil, unknownTag(tag, off)
	}
	if err != nil {
		return nil, err
	}
	return geom, nil
}

func unknownTag(tag byte, off int) error {
	return fmt.Errorf("%w: unknown geometry tag %d at offset %d", geostore.ErrCorrupted, tag, off)
}

// Bounds returns the envelope of every coordinate in g. It reports false when
// g holds no coordinates.
func Bounds(g Geometry) (Envelope, bool) {
	env := Envelope{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	found := false
	add := func(cs []Coordinate) {
		for _, c := range cs {
			env.MinX, env.MaxX = min(env.MinX, c.Lon), max(env.MaxX, c.Lon)
			env.MinY, env.MaxY = min(env.MinY, c.Lat), max(env.MaxY, c.Lat)
			found = true
		}
	}
	var walk func(Geometry)
	walk = func(g Geometry) {
		switch g := g.(type) {
		case Point:
			add([]Coordinate{Coordinate(g)})
		case LineString:
			add(g)
		case MultiPoint:
			add(g)
		case Polygon:
			for _, r := range g {
				add(r)
			}
		case MultiLineString:
			for _, l := range g {
				add(l)
			}
		case MultiPolygon:
			for _, p := range g {
				for _, r := range p {
					add(r)
				}
			}
		case GeometryCollection:
			for _, m := range g {
				walk(m)
			}
		}
	}
	walk(g)
	if !found {
		return Envelope{}, false
	}
	return env, true
}
