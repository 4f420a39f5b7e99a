// Package registry holds the static catalog of hosted models per provider.
//
// The catalog is loaded from YAML and validated once; a Registry is read-only
// afterwards and safe for concurrent use.
package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultCatalog []byte

// Modality is an input or output medium.
type Modality string

const (
	Text  Modality = "text"
	Image Modality = "image"
	Audio Modality = "audio"
	Video Modality = "video"
)

func (m Modality) valid() bool {
	switch m {
	case Text, Image, Audio, Video:
		return true
	}
	return false
}

// ModelDescriptor describes one hosted model.
type ModelDescriptor struct {
	Alias    string `yaml:"-" json:"alias"`
	Provider string `yaml:"-" json:"provider"`

	ModelID    string     `yaml:"model" json:"model"`
	Reasoning  bool       `yaml:"reasoning" json:"reasoning"`
	Caching    bool       `yaml:"caching" json:"caching"`
	Modality   []Modality `yaml:"modality" json:"modality"`
	Generation []Modality `yaml:"generation" json:"generation"`
	Agentic    bool       `yaml:"agentic" json:"agentic"`
}

// Accepts reports whether the model takes m as input.
func (d ModelDescriptor) Accepts(m Modality) bool {
	for _, x := range d.Modality {
		if x == m {
			return true
		}
	}
	return false
}

// Registry maps provider → alias → descriptor.
type Registry struct {
	models map[string]map[string]ModelDescriptor
}

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (*Registry, error) {
	raw := make(map[string]map[string]ModelDescriptor)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("registry: decode catalog: %w", err)
	}

	reg := &Registry{models: make(map[string]map[string]ModelDescriptor, len(raw))}
	for provider, models := range raw {
		reg.models[provider] = make(map[string]ModelDescriptor, len(models))
		for alias, d := range models {
			d.Alias = alias
			d.Provider = provider
			reg.models[provider][alias] = d
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the embedded catalog.
// It panics if the embedded catalog is invalid.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(bytes.NewReader(defaultCatalog))
		if err != nil {
			panic(err)
		}
		defaultReg = reg
	})
	return defaultReg
}

// Validate checks every descriptor and returns all violations joined.
func (r *Registry) Validate() error {
	var errs []error
	for _, provider := range r.Providers() {
		seen := make(map[string]string)
		for _, d := range r.Models(provider) {
			where := provider + "/" + d.Alias
			if d.ModelID == "" {
				errs = append(errs, fmt.Errorf("registry: %s: model id is empty", where))
			} else if other, dup := seen[d.ModelID]; dup {
				errs = append(errs, fmt.Errorf("registry: %s: model id %q already used by %s", where, d.ModelID, other))
			} else {
				seen[d.ModelID] = d.Alias
			}
			errs = append(errs, checkModalities(where, "modality", d.Modality)...)
			errs = append(errs, checkModalities(where, "generation", d.Generation)...)
		}
	}
	return errors.Join(errs...)
}

func checkModalities(where, field string, ms []Modality) []error {
	if len(ms) == 0 {
		return []error{fmt.Errorf("registry: %s: %s is empty", where, field)}
	}
	var errs []error
	for _, m := range ms {
		if !m.valid() {
			errs = append(errs, fmt.Errorf("registry: %s: unknown %s %q", where, field, m))
		}
	}
	return errs
}

// Resolve returns the descriptor for alias under provider.
func (r *Registry) Resolve(provider, alias string) (ModelDescriptor, error) {
	if d, ok := r.models[provider][alias]; ok {
		return d, nil
	}
	return ModelDescriptor{}, &UnknownModelError{Provider: provider, Alias: alias}
}

// Models returns the descriptors of provider sorted by alias.
func (r *Registry) Models(provider string) []ModelDescriptor {
	models := r.models[provider]
	out := make([]ModelDescriptor, 0, len(models))
	for _, d := range models {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// Providers returns the provider names present in the catalog, sorted.
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.models))
	for p := range r.models {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
