// internal/regions/regions.go
//
// Region dataset management for the quiz engine.
//
// Responsibilities:
//   - Load region names from a GeoJSON FeatureCollection file, or fall back
//     to the embedded default list (the 50 US states).
//   - Normalize names: trim whitespace, drop empties, collapse duplicates
//     (first occurrence wins, order preserved).
//   - Keep the raw GeoJSON around so the map client can fetch the same data
//     the server validates selections against.
//
// Environment (read by internal/config, passed to Load):
//   REGIONS_FILE=/path/to/us-states.json
//   REGIONS_NAME_PROPERTY=name
//
// Names are compared exactly; "Georgia" and "georgia" are different regions.

package regions

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/robalobadob/geoquiz/apps/go-server/assets"
)

// DefaultNameProperty is the GeoJSON feature property holding the region name.
const DefaultNameProperty = "name"

// ErrEmpty is returned when a dataset yields no usable region names.
var ErrEmpty = errors.New("regions: dataset is empty")

// Set is an immutable, ordered collection of unique region names.
type Set struct {
	names  []string
	index  map[string]struct{}
	source string
	raw    []byte
}

// New builds a Set from a list of names.
func New(names []string) (*Set, error) {
	s := &Set{
		names:  make([]string, 0, len(names)),
		index:  make(map[string]struct{}, len(names)),
		source: "inline",
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := s.index[n]; dup {
			continue
		}
		s.index[n] = struct{}{}
		s.names = append(s.names, n)
	}
	if len(s.names) == 0 {
		return nil, ErrEmpty
	}
	return s, nil
}

// Default returns the embedded default dataset.
func Default() (*Set, error) {
	names, err := assets.RegionNames()
	if err != nil {
		return nil, fmt.Errorf("read embedded regions: %w", err)
	}
	s, err := New(names)
	if err != nil {
		return nil, err
	}
	s.source = "embedded"
	return s, nil
}

// Load reads path as GeoJSON, or returns the embedded defaults when path is empty.
func Load(path, property string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}
	s, err := ParseGeoJSON(data, property)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.source = path
	return s, nil
}

// ParseGeoJSON extracts names from features[].properties[property].
// Features without a string name are skipped.
func ParseGeoJSON(data []byte, property string) (*Set, error) {
	if property == "" {
		property = DefaultNameProperty
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("regions: invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if t := doc.Get("type").String(); t != "FeatureCollection" {
		return nil, fmt.Errorf("regions: expected FeatureCollection, got %q", t)
	}

	var names []string
	doc.Get("features").ForEach(func(_, feature gjson.Result) bool {
		v, ok := feature.Get("properties").Map()[property]
		if ok && v.Type == gjson.String {
			names = append(names, v.String())
		}
		return true
	})

	s, err := New(names)
	if err != nil {
		return nil, err
	}
	s.source = "geojson"
	s.raw = append([]byte(nil), data...)
	return s, nil
}

// Names returns a copy of the region names in dataset order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Len reports the number of regions.
func (s *Set) Len() int { return len(s.names) }

// Contains reports whether name is a region of this dataset.
func (s *Set) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Source describes where the dataset came from ("embedded", a file path, ...).
func (s *Set) Source() string { return s.source }

// GeoJSON returns the raw FeatureCollection when the set was parsed from one.
func (s *Set) GeoJSON() ([]byte, bool) {
	return s.raw, s.raw != nil
}
