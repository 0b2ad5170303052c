package persona

import (
	_ "embed"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var builtinPersonas []byte

// Seed returns the built-in expert panel.
func Seed() []Persona {
	items, err := Parse(builtinPersonas)
	if err != nil {
		panic("persona: invalid built-in registry: " + err.Error())
	}
	return items
}

// Parse decodes and validates a YAML persona list.
func Parse(data []byte) ([]Persona, error) {
	var items []Persona
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, goerr.Wrap(err, "failed to decode persona registry")
	}
	if len(items) == 0 {
		return nil, goerr.New("persona registry is empty")
	}
	if err := Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// Load reads a persona registry from r.
func Load(r io.Reader) ([]Persona, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read persona registry")
	}
	return Parse(data)
}

// LoadFile reads a persona registry from a YAML file, falling back to Seed
// when path is empty.
func LoadFile(path string) ([]Persona, error) {
	if path == "" {
		return Seed(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open persona registry", goerr.V("path", path))
	}
	defer f.Close()

	items, err := Load(f)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid persona registry", goerr.V("path", path))
	}
	return items, nil
}
