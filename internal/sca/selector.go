// Package sca decides the Strong Customer Authentication approach and
// methods for a consent or payment flow and constructs the Berlin `_links`
// object describing it.
package sca

import (
	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/models"
)

// Decision is the outcome of SCA approach/method selection. When more than
// one method is configured for the chosen approach no method is pre-selected
// and the response must expose a method-selection link instead.
type Decision struct {
	Approach    config.ScaApproach
	Methods     []config.ScaMethod
	ScaRequired bool
}

// ChosenMethod returns the single selected method, or nil when the PSU still
// has to pick one.
func (d *Decision) ChosenMethod() *config.ScaMethod {
	if len(d.Methods) == 1 {
		return &d.Methods[0]
	}
	return nil
}

// Selector picks the SCA approach and methods from configuration.
type Selector struct {
	berlinCfg *config.BerlinConfig
}

// NewSelector creates a selector over the given Berlin configuration.
func NewSelector(berlinCfg *config.BerlinConfig) *Selector {
	return &Selector{berlinCfg: berlinCfg}
}

// Decide selects the SCA approach and its methods. A nil redirectPreferred
// defers to the default-flagged approach; true demands REDIRECT and false
// demands DECOUPLED, each failing when the approach is not configured.
func (s *Selector) Decide(redirectPreferred *bool, scaRequired bool) (*Decision, *errors.Error) {
	var approach config.ScaApproach

	switch {
	case redirectPreferred == nil:
		approach = s.berlinCfg.DefaultScaApproach()
	case *redirectPreferred:
		configured, ok := s.berlinCfg.ApproachByName(models.ScaApproachRedirect)
		if !ok {
			return nil, errors.FormatError("Redirect SCA approach is not supported")
		}
		approach = configured
	default:
		configured, ok := s.berlinCfg.ApproachByName(models.ScaApproachDecoupled)
		if !ok {
			return nil, errors.FormatError("Decoupled SCA approach is not supported")
		}
		approach = configured
	}

	if !scaRequired {
		return &Decision{Approach: approach, ScaRequired: false}, nil
	}

	return &Decision{
		Approach:    approach,
		Methods:     s.berlinCfg.MethodsForApproach(approach.Name),
		ScaRequired: true,
	}, nil
}
