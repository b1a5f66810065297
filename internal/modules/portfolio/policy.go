package portfolio

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aristath/fund-trader/internal/domain"
)

// HorizonPolicy maps investment horizons to the asset classes a proposal
// should target, in preference order.
type HorizonPolicy struct {
	Targets map[domain.InvestmentHorizon][]domain.AssetClass `yaml:"targets"`
}

// DefaultHorizonPolicy returns the built-in horizon policy used when no
// policy file is configured.
func DefaultHorizonPolicy() HorizonPolicy {
	return HorizonPolicy{
		Targets: map[domain.InvestmentHorizon][]domain.AssetClass{
			domain.HorizonShort: {
				domain.AssetClassMoneyMarket,
				domain.AssetClassEuroFunds,
				domain.AssetClassBonds,
			},
			domain.HorizonMedium: {
				domain.AssetClassDiversified,
				domain.AssetClassBonds,
				domain.AssetClassRealEstate,
				domain.AssetClassEquities,
			},
			domain.HorizonLong: {
				domain.AssetClassEquities,
				domain.AssetClassRealEstate,
				domain.AssetClassDiversified,
			},
		},
	}
}

// LoadHorizonPolicy reads a horizon policy from a YAML file, falling back to
// the built-in defaults when the path is empty or the file does not exist.
func LoadHorizonPolicy(path string, log zerolog.Logger) (HorizonPolicy, error) {
	if path == "" {
		return DefaultHorizonPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("Horizon policy file not found, using defaults")
			return DefaultHorizonPolicy(), nil
		}
		return HorizonPolicy{}, fmt.Errorf("failed to read horizon policy: %w", err)
	}

	var policy HorizonPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return HorizonPolicy{}, fmt.Errorf("failed to parse horizon policy: %w", err)
	}

	// Missing horizons fall back to the defaults so a partial file is usable
	defaults := DefaultHorizonPolicy()
	if policy.Targets == nil {
		policy.Targets = defaults.Targets
	} else {
		for horizon, classes := range defaults.Targets {
			if _, ok := policy.Targets[horizon]; !ok {
				policy.Targets[horizon] = classes
			}
		}
	}

	log.Info().Str("path", path).Msg("Loaded horizon policy")
	return policy, nil
}

// TargetsFor returns the target asset classes for a horizon. Unknown horizons
// fall back to the medium-term targets.
func (p HorizonPolicy) TargetsFor(horizon domain.InvestmentHorizon) []domain.AssetClass {
	if classes, ok := p.Targets[horizon]; ok {
		return classes
	}
	return p.Targets[domain.HorizonMedium]
}
