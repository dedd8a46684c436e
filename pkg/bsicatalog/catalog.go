// Package bsicatalog provides the BSI IT-Grundschutz Baustein/Anforderung
// catalog consulted by Phase E Q3 and Chapter 5: a built-in catalog
// embedded at compile time, optionally overridden wholesale by a YAML file
// on disk at config.Config.BSICatalogPath.
package bsicatalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalogYAML []byte

// Baustein is one BSI security module and its Level-1 (MUSS) requirements.
type Baustein struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	MussAnforderungen []string `yaml:"muss_anforderungen"`
}

// Catalog is the full set of Bausteine consulted during extraction analysis.
type Catalog struct {
	Bausteine []Baustein `yaml:"bausteine"`
}

// MussSet returns the set of every Level-1 MUSS Anforderung-ID in the
// catalog, the input to Phase E Q3.
func (c *Catalog) MussSet() map[string]bool {
	set := make(map[string]bool)
	for _, b := range c.Bausteine {
		for _, id := range b.MussAnforderungen {
			set[id] = true
		}
	}
	return set
}

// BausteinIDs returns every Baustein ID in the catalog.
func (c *Catalog) BausteinIDs() []string {
	ids := make([]string, 0, len(c.Bausteine))
	for _, b := range c.Bausteine {
		ids = append(ids, b.ID)
	}
	return ids
}

var (
	builtin     *Catalog
	builtinOnce sync.Once
)

// Builtin returns the embedded catalog, parsed once and cached, matching the
// teacher's GetBuiltinConfig singleton pattern.
func Builtin() *Catalog {
	builtinOnce.Do(func() {
		var c Catalog
		if err := yaml.Unmarshal(builtinCatalogYAML, &c); err != nil {
			// The embedded catalog is compiled into the binary; a parse
			// failure here means the binary itself is broken.
			panic(fmt.Sprintf("bsicatalog: embedded catalog.yaml is invalid: %v", err))
		}
		builtin = &c
	})
	return builtin
}

// Load returns the built-in catalog, or the catalog parsed from
// overridePath if it is non-empty. An override file that cannot be read or
// parsed is a fatal configuration error, not a fall-through to the default:
// silently ignoring a bad override could understate the MUSS set a customer
// is actually being audited against.
func Load(overridePath string) (*Catalog, error) {
	if overridePath == "" {
		return Builtin(), nil
	}

	b, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("bsicatalog: reading override %s: %w", overridePath, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("bsicatalog: parsing override %s: %w", overridePath, err)
	}
	if len(c.Bausteine) == 0 {
		return nil, fmt.Errorf("bsicatalog: override %s defines no bausteine", overridePath)
	}
	return &c, nil
}
