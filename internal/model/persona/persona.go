package persona

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Expertise is the closed set of areas an expert persona covers.
type Expertise string

const (
	DevOps         Expertise = "devops"
	ReactNative    Expertise = "react_native"
	Frontend       Expertise = "frontend"
	Backend        Expertise = "backend"
	AIML           Expertise = "ai_ml"
	Database       Expertise = "database"
	Security       Expertise = "security"
	Architecture   Expertise = "architecture"
	Mobile         Expertise = "mobile"
	Cloud          Expertise = "cloud"
	ProductManager Expertise = "product_manager"
)

// AllExpertise lists every expertise tag in registry order.
func AllExpertise() []Expertise {
	return []Expertise{
		DevOps, ReactNative, Frontend, Backend, AIML, Database,
		Security, Architecture, Mobile, Cloud, ProductManager,
	}
}

// Valid reports whether e belongs to the closed expertise set.
func (e Expertise) Valid() bool {
	for _, known := range AllExpertise() {
		if e == known {
			return true
		}
	}
	return false
}

// Label renders the tag for humans, e.g. "ai ml".
func (e Expertise) Label() string {
	return strings.ReplaceAll(string(e), "_", " ")
}

// Persona captures a simulated expert exposed to the frontend.
type Persona struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Expertise Expertise `json:"expertise" yaml:"expertise"`
	Avatar    string    `json:"avatar" yaml:"avatar"`
	Color     string    `json:"color" yaml:"color"`
	Prompt    string    `json:"-" yaml:"prompt"` // system prompt template, kept server side
}

// Validate checks the registry invariants: ids and display names are unique,
// every expertise tag is known and every persona carries a prompt.
func Validate(items []Persona) error {
	ids := make(map[string]struct{}, len(items))
	names := make(map[string]struct{}, len(items))

	for i, p := range items {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return goerr.New("persona id is required", goerr.V("index", i))
		}
		if _, dup := ids[id]; dup {
			return goerr.New("duplicate persona id", goerr.V("id", id))
		}
		ids[id] = struct{}{}

		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return goerr.New("persona name is required", goerr.V("id", id))
		}
		if _, dup := names[name]; dup {
			return goerr.New("duplicate persona name", goerr.V("id", id), goerr.V("name", p.Name))
		}
		names[name] = struct{}{}

		if !p.Expertise.Valid() {
			return goerr.New("unknown expertise", goerr.V("id", id), goerr.V("expertise", p.Expertise))
		}
		if strings.TrimSpace(p.Prompt) == "" {
			return goerr.New("persona prompt is required", goerr.V("id", id))
		}
	}
	return nil
}
