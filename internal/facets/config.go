package facets

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config maps a layer name to its filter declarations.
type Config map[string][]FilterConfig

type FilterConfig struct {
	Name       string            `yaml:"name"`
	Infos      string            `yaml:"infos"`
	Relation   string            `yaml:"relation"`
	SubFilters []SubFilterConfig `yaml:"subfilters"`
}

// SubFilterConfig declares one SubFilter. Field defaults to Name.
type SubFilterConfig struct {
	Name       string  `yaml:"name"`
	Field      string  `yaml:"field"`
	Alias      *string `yaml:"alias"`
	Numeric    bool    `yaml:"numeric"`
	Values     string  `yaml:"values"`
	FromTable  string  `yaml:"from_table"`
	Order      string  `yaml:"order"`
	RangeTable string  `yaml:"range_table"`
}

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter config: %w", err)
	}
	return ParseConfig(bytes.NewReader(b))
}

func ParseConfig(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode filter config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c Config) validate() error {
	for layer, filters := range c {
		seen := map[string]bool{}
		for i, f := range filters {
			if f.Name == "" {
				return fmt.Errorf("layer %s: filter %d has no name", layer, i)
			}
			if seen[f.Name] {
				return fmt.Errorf("layer %s: duplicate filter %q", layer, f.Name)
			}
			seen[f.Name] = true
			for j, s := range f.SubFilters {
				if s.Name == "" {
					return fmt.Errorf("layer %s: filter %s: subfilter %d has no name", layer, f.Name, j)
				}
			}
		}
	}
	return nil
}

// Layer returns the filters declared for layer.
func (c Config) Layer(layer string) ([]FilterConfig, bool) {
	f, ok := c[layer]
	return f, ok
}
