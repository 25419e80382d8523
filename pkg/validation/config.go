package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/lead-impact/pkg/calculator"
)

// ConfigValidator checks a set of configured scenarios before they are calculated.
type ConfigValidator struct {
	Scenarios []ScenarioConfig
}

type ScenarioConfig struct {
	Name   string
	Active bool
	Inputs calculator.Input
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	seen := make(map[string]struct{})
	active := 0
	for i, scenario := range cv.Scenarios {
		if !scenario.Active {
			continue
		}
		active++

		name := strings.TrimSpace(scenario.Name)
		if name == "" {
			warnings = append(warnings, fmt.Sprintf("Scenario #%d has no name", i+1))
			name = fmt.Sprintf("#%d", i+1)
		} else if _, dup := seen[name]; dup {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' is defined more than once", name))
		}
		seen[name] = struct{}{}

		if missing := calculator.Validate(scenario.Inputs); len(missing) > 0 {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' is missing %s",
				name, strings.Join(missing, ", ")))
		}

		var boundsErr *BoundsError
		if err := ValidateBounds(scenario.Inputs); errors.As(err, &boundsErr) {
			for _, violation := range boundsErr.Violations {
				warnings = append(warnings, fmt.Sprintf("Scenario '%s': %s", name, violation))
			}
		}
	}

	if active == 0 {
		warnings = append(warnings, "No active scenarios are configured")
	}

	return warnings
}
