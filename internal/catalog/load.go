package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// file is the on-disk catalog document. Lists keep catalog order stable.
type file struct {
	Intensity map[string]int `yaml:"intensity"`
	Types     []Type         `yaml:"types"`
}

// Default returns a freshly built copy of the built-in Spanish catalog.
func Default() *Catalog {
	c, err := LoadFromReader(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog YAML document from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes a catalog YAML document from r. Unknown keys are
// rejected.
func LoadFromReader(r io.Reader) (*Catalog, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	return New(doc.Types, doc.Intensity)
}
