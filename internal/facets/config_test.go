package facets

import (
	"strings"
	"testing"
)

const sampleYAML = `
sitesFouilles:
  - name: vestiges
    infos: "Vestiges"
    relation: vestiges
    subfilters:
      - {name: caracterisation, alias: null, numeric: false, values: vestiges, from_table: caracterisations, order: caracterisation}
      - {name: periode, alias: "Période", values: vestiges, from_table: periodes, order: debut}
`

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	fs, ok := c.Layer("sitesFouilles")
	if !ok || len(fs) != 1 {
		t.Fatalf("layer: %v %v", ok, fs)
	}
	subs := fs[0].SubFilters
	if len(subs) != 2 || subs[0].Alias != nil || subs[1].Alias == nil || *subs[1].Alias != "Période" {
		t.Fatalf("subfilters: %+v", subs)
	}
	if subs[0].FromTable != "caracterisations" || subs[1].Order != "debut" {
		t.Fatalf("subfilters: %+v", subs)
	}
}

func TestParseConfig_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": "l:\n  - {name: a, bogus: 1}\n",
		"missing name":  "l:\n  - {infos: x}\n",
		"duplicate":     "l:\n  - {name: a}\n  - {name: a}\n",
		"unnamed sub":   "l:\n  - {name: a, subfilters: [{values: v}]}\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseConfig(strings.NewReader(in)); err == nil {
				t.Fatal("want error")
			}
		})
	}
}
