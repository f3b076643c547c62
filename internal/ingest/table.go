package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/slidemarks/viewer/internal/markers"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("ingest: missing column")
	// ErrInvalidRow is returned for rows whose numeric fields do not parse.
	ErrInvalidRow = errors.New("ingest: invalid row")
)

// BarcodeColumns names the columns of an in-situ sequencing table.
// Label and Color are optional.
type BarcodeColumns struct {
	X     string `yaml:"x"`
	Y     string `yaml:"y"`
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// DefaultBarcodeColumns returns the column names written by the decoding
// pipeline.
func DefaultBarcodeColumns() BarcodeColumns {
	return BarcodeColumns{
		X:     "global_X_pos",
		Y:     "global_Y_pos",
		Key:   "letters",
		Label: "gene_name",
		Color: "color",
	}
}

// MeasurementColumns names the columns of a cell measurement table. Color
// is optional; when Value holds "#RRGGBB" strings they are used as colors.
type MeasurementColumns struct {
	X     string `yaml:"x"`
	Y     string `yaml:"y"`
	Value string `yaml:"value"`
	Color string `yaml:"color"`
}

// DefaultMeasurementColumns returns the column names of a CellProfiler
// export.
func DefaultMeasurementColumns() MeasurementColumns {
	return MeasurementColumns{
		X:     "Location_Center_X",
		Y:     "Location_Center_Y",
		Value: "AreaShape_Area",
	}
}

// header maps column names to field positions.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	names, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return header{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(names))
	for i, name := range names {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		h[name] = i
	}
	return h, nil
}

// require resolves a mandatory column.
func (h header) require(name string) (int, error) {
	i, ok := h[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return i, nil
}

// optional resolves a column that may be absent, returning -1.
func (h header) optional(name string) int {
	if name == "" {
		return -1
	}
	if i, ok := h[name]; ok {
		return i
	}
	return -1
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	return cr
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func number(rec []string, i int, line int, name string) (float64, error) {
	v, err := strconv.ParseFloat(field(rec, i), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %q: %v", ErrInvalidRow, line, name, err)
	}
	return v, nil
}

// ReadBarcodes parses an in-situ sequencing table.
func ReadBarcodes(r io.Reader, cols BarcodeColumns) ([]markers.Point, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, nil
	}
	xi, err := h.require(cols.X)
	if err != nil {
		return nil, err
	}
	yi, err := h.require(cols.Y)
	if err != nil {
		return nil, err
	}
	ki, err := h.require(cols.Key)
	if err != nil {
		return nil, err
	}
	li := h.optional(cols.Label)
	ci := h.optional(cols.Color)

	var points []markers.Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		x, err := number(rec, xi, line, cols.X)
		if err != nil {
			return nil, err
		}
		y, err := number(rec, yi, line, cols.Y)
		if err != nil {
			return nil, err
		}
		points = append(points, markers.Point{
			X:     x,
			Y:     y,
			Key:   field(rec, ki),
			Label: field(rec, li),
			Color: field(rec, ci),
		})
	}
	return points, nil
}

// ReadMeasurements parses a cell measurement table.
func ReadMeasurements(r io.Reader, cols MeasurementColumns) ([]markers.Point, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, nil
	}
	xi, err := h.require(cols.X)
	if err != nil {
		return nil, err
	}
	yi, err := h.require(cols.Y)
	if err != nil {
		return nil, err
	}
	vi, err := h.require(cols.Value)
	if err != nil {
		return nil, err
	}
	ci := h.optional(cols.Color)

	var points []markers.Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		x, err := number(rec, xi, line, cols.X)
		if err != nil {
			return nil, err
		}
		y, err := number(rec, yi, line, cols.Y)
		if err != nil {
			return nil, err
		}
		p := markers.Point{X: x, Y: y, Color: field(rec, ci)}
		raw := field(rec, vi)
		if strings.HasPrefix(raw, "#") {
			if p.Color == "" {
				p.Color = raw
			}
		} else if p.Value, err = number(rec, vi, line, cols.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// LoadBarcodes reads a barcode table from path.
func LoadBarcodes(path string, cols BarcodeColumns) ([]markers.Point, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	points, err := ReadBarcodes(rc, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// LoadMeasurements reads a measurement table from path.
func LoadMeasurements(path string, cols MeasurementColumns) ([]markers.Point, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	points, err := ReadMeasurements(rc, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// Extent returns the smallest image size, in whole pixels, that contains
// every point. Empty input gives 1×1.
func Extent(sets ...[]markers.Point) markers.Size {
	var maxX, maxY float64
	for _, points := range sets {
		for _, p := range points {
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
	}
	return markers.Size{
		Width:  math.Max(1, math.Ceil(maxX)),
		Height: math.Max(1, math.Ceil(maxY)),
	}
}
