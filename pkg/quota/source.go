package quota

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// TierSource defines how pricing tiers are loaded into the enforcer.
type TierSource interface {
	Load(ctx context.Context) (map[string]Tier, error)
}

// memTierSource is an in-memory TierSource.
type memTierSource struct {
	tiers map[string]Tier
}

// NewMemTierSource returns a TierSource over a copy of the given tiers.
func NewMemTierSource(tiers map[string]Tier) TierSource {
	return &memTierSource{tiers: maps.Clone(tiers)}
}

func (s *memTierSource) Load(ctx context.Context) (map[string]Tier, error) {
	return maps.Clone(s.tiers), nil
}

// yamlTierSource loads tiers from a YAML file of the form:
//
//	starter:
//	  id: starter
//	  name: Starter
//	  max_employees: 25
//	enterprise:
//	  id: enterprise
//	  name: Enterprise
//	  max_employees: -1
type yamlTierSource struct {
	path string
}

// NewYAMLTierSource returns a TierSource backed by a YAML file.
func NewYAMLTierSource(path string) TierSource {
	return &yamlTierSource{path: path}
}

func (s *yamlTierSource) Load(ctx context.Context) (map[string]Tier, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	var tiers map[string]Tier
	if err := yaml.Unmarshal(data, &tiers); err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	return tiers, nil
}

// validateTiers ensures tier configurations are internally consistent.
func validateTiers(tiers map[string]Tier) error {
	for tierID, tier := range tiers {
		if tier.ID != "" && tier.ID != tierID {
			return errors.Join(ErrInvalidTierConfig,
				fmt.Errorf("tier ID mismatch: map key %s != tier.ID %s", tierID, tier.ID))
		}
		if tier.MaxEmployees < Unlimited {
			return errors.Join(ErrInvalidTierConfig,
				fmt.Errorf("tier %s has invalid employee ceiling: %d", tierID, tier.MaxEmployees))
		}
	}
	return nil
}
