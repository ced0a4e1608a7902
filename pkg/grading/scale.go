// Package grading maps numeric scores to letter grades and grade points.
//
// The mapping is driven by a Scale so an institution can swap bands and points
// without touching the resolver.
package grading

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
	// MaxPoint bounds grade points to what NUMERIC(4,2) columns store.
	MaxPoint = 10.0
)

// Band is an inclusive score interval mapped to one letter grade.
type Band struct {
	Grade string  `mapstructure:"grade" json:"grade"`
	Min   float64 `mapstructure:"min" json:"min"`
	Max   float64 `mapstructure:"max" json:"max"`
	Point float64 `mapstructure:"point" json:"point"`
}

// Scale is an ordered, gap-free partition of [0,100] into bands, highest first.
type Scale struct {
	bands  []Band
	points map[string]float64
}

// DefaultBands is the institutional scale used when no scale file is configured.
var DefaultBands = []Band{
	{Grade: "A", Min: 90, Max: 100, Point: 4.0},
	{Grade: "A-", Min: 85, Max: 89, Point: 3.7},
	{Grade: "B+", Min: 80, Max: 84, Point: 3.3},
	{Grade: "B", Min: 75, Max: 79, Point: 3.0},
	{Grade: "B-", Min: 70, Max: 74, Point: 2.7},
	{Grade: "C+", Min: 65, Max: 69, Point: 2.3},
	{Grade: "C", Min: 60, Max: 64, Point: 2.0},
	{Grade: "C-", Min: 55, Max: 59, Point: 1.7},
	{Grade: "D+", Min: 50, Max: 54, Point: 1.3},
	{Grade: "D", Min: 45, Max: 49, Point: 1.0},
	{Grade: "F", Min: 0, Max: 44, Point: 0.0},
}

// DefaultScale returns the built-in scale.
func DefaultScale() *Scale {
	scale, err := NewScale(DefaultBands)
	if err != nil {
		panic(err)
	}
	return scale
}

// NewScale validates bands and builds a Scale. Bands may be given in any order.
// Adjacent integer bands (e.g. 85-89 then 90-100) are treated as contiguous.
func NewScale(bands []Band) (*Scale, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("grading scale requires at least one band")
	}
	sorted := append([]Band(nil), bands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })

	points := make(map[string]float64, len(sorted))
	for i, band := range sorted {
		band.Grade = strings.TrimSpace(band.Grade)
		sorted[i].Grade = band.Grade
		if band.Grade == "" {
			return nil, fmt.Errorf("band %d has no grade", i)
		}
		if _, dup := points[band.Grade]; dup {
			return nil, fmt.Errorf("grade %s appears twice", band.Grade)
		}
		if band.Min > band.Max {
			return nil, fmt.Errorf("grade %s: min %.2f above max %.2f", band.Grade, band.Min, band.Max)
		}
		if band.Point < 0 || band.Point > MaxPoint {
			return nil, fmt.Errorf("grade %s: grade point %.2f outside 0-%.0f", band.Grade, band.Point, MaxPoint)
		}
		points[band.Grade] = band.Point
		if i == 0 {
			if band.Max != MaxScore {
				return nil, fmt.Errorf("highest band must end at %.0f", MaxScore)
			}
			continue
		}
		upper := sorted[i-1]
		if band.Max >= upper.Min {
			return nil, fmt.Errorf("grade %s overlaps %s", band.Grade, upper.Grade)
		}
		if upper.Min-band.Max > 1 {
			return nil, fmt.Errorf("gap between %s and %s", band.Grade, upper.Grade)
		}
	}
	if sorted[len(sorted)-1].Min != MinScore {
		return nil, fmt.Errorf("lowest band must start at %.0f", MinScore)
	}
	return &Scale{bands: sorted, points: points}, nil
}

// Bands returns a copy of the bands, highest first.
func (s *Scale) Bands() []Band {
	return append([]Band(nil), s.bands...)
}

// Point returns the grade point for a letter grade.
func (s *Scale) Point(grade string) (float64, bool) {
	p, ok := s.points[grade]
	return p, ok
}

// LoadScale reads bands from a YAML, JSON or TOML file with a top level "bands" list.
// An empty path yields the default scale.
func LoadScale(path string) (*Scale, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultScale(), nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read grading scale: %w", err)
	}
	var bands []Band
	if err := v.UnmarshalKey("bands", &bands); err != nil {
		return nil, fmt.Errorf("decode grading scale: %w", err)
	}
	return NewScale(bands)
}
