// Package sensitivity resolves plant types to their threshold profiles.
package sensitivity

import (
	"fmt"

	"github.com/verdantlabs/gardenwatch/internal/types"
)

// Registry is a read-only mapping from plant type to sensitivity profile,
// loaded once at startup. A "default" profile is mandatory and answers for
// any type without its own entry.
type Registry struct {
	profiles map[string]types.SensitivityProfile
}

// NewRegistry validates the profile set and builds a registry. A missing
// default profile is a fatal configuration error.
func NewRegistry(profiles map[string]types.SensitivityProfile) (*Registry, error) {
	if _, ok := profiles[types.DefaultProfileKey]; !ok {
		return nil, fmt.Errorf("sensitivity registry requires a %q profile", types.DefaultProfileKey)
	}
	copied := make(map[string]types.SensitivityProfile, len(profiles))
	for k, v := range profiles {
		copied[k] = v
	}
	return &Registry{profiles: copied}, nil
}

// Resolve returns the profile for the plant type, falling back to the
// default profile for unknown types.
func (r *Registry) Resolve(plantType string) types.SensitivityProfile {
	if p, ok := r.profiles[plantType]; ok {
		return p
	}
	return r.profiles[types.DefaultProfileKey]
}
