package config

import "sort"

var Presets = map[string]map[string]*Config{
	"vanderpol": {
		"paper": {
			Model: "vanderpol", Horizon: 10, Pessimistic: true,
		},
		"coarse": {
			Model: "vanderpol", Horizon: 10, Pessimistic: true,
			Params: map[string]float64{"step": 0.32},
		},
		"infinite": {
			Model: "vanderpol", Horizon: 0, Pessimistic: true,
			Params: map[string]float64{"step": 0.32},
		},
	},
	"switched": {
		"closed-form": {
			Model: "switched", Horizon: 0, Pessimistic: true,
		},
		"optimistic": {
			Model: "switched", Horizon: 0, Pessimistic: false,
		},
	},
	"switched-custom": {
		"monte-carlo": {
			Model: "switched-custom", Horizon: 0, Pessimistic: true, Noise: "custom",
			SourceSamples: 8,
		},
	},
	"randomwalk": {
		"short": {
			Model: "randomwalk", Horizon: 5, Pessimistic: true,
		},
		"disturbed": {
			Model: "randomwalk", Horizon: 0, Pessimistic: true,
			Params: map[string]float64{"disturbance": 0.1},
		},
	},
}

// GetPreset returns the named preset merged over the defaults, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return merge(DefaultConfig(), p)
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// merge copies the set fields of p over base. Pessimistic always comes
// from p.
func merge(base, p *Config) *Config {
	base.Model = p.Model
	base.Horizon = p.Horizon
	base.Pessimistic = p.Pessimistic
	if p.Noise != "" {
		base.Noise = p.Noise
	}
	if p.SourceSamples > 0 {
		base.SourceSamples = p.SourceSamples
	}
	if len(p.Params) > 0 {
		base.Params = make(map[string]float64, len(p.Params))
		for k, v := range p.Params {
			base.Params[k] = v
		}
	}
	return base
}
