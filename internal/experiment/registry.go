package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/imdp/internal/models"
)

type Registry struct {
	models map[string]func() models.Model
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() models.Model),
	}

	r.models["vanderpol"] = func() models.Model { return models.NewVanDerPol() }
	r.models["switched"] = func() models.Model { return models.NewSwitchedLinear() }
	r.models["switched-custom"] = func() models.Model {
		s := models.NewSwitchedLinear()
		s.Custom = true
		return s
	}
	r.models["randomwalk"] = func() models.Model { return models.NewRandomWalk() }

	return r
}

// Register adds or replaces a model constructor.
func (r *Registry) Register(name string, fn func() models.Model) {
	r.models[name] = fn
}

// Get returns a fresh instance of the named model.
func (r *Registry) Get(name string) (models.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
