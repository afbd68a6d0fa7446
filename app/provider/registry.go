package provider

import (
	"errors"
	"strings"
)

var (
	ErrProviderNotSupported = errors.New("provider is not supported")
	ErrNoneEnabled          = errors.New("no payment provider is enabled")
)

type Candidate struct {
	Provider Provider
	Enabled  bool
}

// Registry resolves the usable provider deterministically: candidates keep
// their declared order, and SelectEnabled returns the first one that is
// both enabled and configured with a secret key.
type Registry struct {
	candidates []Candidate
	byName     map[string]Candidate
}

func NewRegistry(candidates ...Candidate) *Registry {
	byName := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byName[c.Provider.Name()] = c
	}
	return &Registry{candidates: candidates, byName: byName}
}

func (r *Registry) SelectEnabled() (Provider, error) {
	for _, c := range r.candidates {
		if c.Enabled && c.Provider.SecretConfigured() {
			return c.Provider, nil
		}
	}
	return nil, ErrNoneEnabled
}

// Get resolves a provider by name for verification. The provider must be
// configured but is not required to still be enabled: in-flight references
// issued before a provider was switched off must remain verifiable.
func (r *Registry) Get(name string) (Provider, error) {
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	if !c.Provider.SecretConfigured() {
		return nil, ErrNotConfigured
	}
	return c.Provider, nil
}
