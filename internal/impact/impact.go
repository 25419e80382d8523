// Package impact runs the calculator over configured scenarios and collects
// the outcome of each one.
package impact

import (
	"errors"
	"fmt"

	"github.com/iwvelando/lead-impact/internal/config"
	"github.com/iwvelando/lead-impact/pkg/calculator"
	"github.com/iwvelando/lead-impact/pkg/validation"
	"go.uber.org/zap"
)

// Impact holds the outcome of calculating one scenario.
type Impact struct {
	Name   string
	Inputs calculator.Input
	Result calculator.Result
	// Missing lists absent input labels. Result is the zero value when set.
	Missing  []string
	Warnings []string
}

// Complete reports whether the scenario produced a result.
func (i Impact) Complete() bool {
	return len(i.Missing) == 0
}

// GetImpact calculates every active scenario of conf, in file order.
// Scenarios with missing inputs are returned with Missing set; inputs outside
// their domain, or results that overflow, abort the run.
func GetImpact(logger *zap.Logger, conf config.Configuration) ([]Impact, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var results []Impact
	for _, scenario := range conf.Scenarios {
		if !scenario.Active {
			logger.Debug(fmt.Sprintf("skipping scenario %s because it is inactive", scenario.Name),
				zap.String("op", "impact.GetImpact"),
			)
			continue
		}

		result, err := Run(logger, scenario)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// Run calculates a single scenario regardless of its Active flag.
func Run(logger *zap.Logger, scenario config.Scenario) (Impact, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	outcome := Impact{Name: scenario.Name, Inputs: scenario.Inputs}

	if err := validation.ValidateBounds(scenario.Inputs); err != nil {
		return outcome, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result, err := calculator.Calculate(scenario.Inputs)
	if err != nil {
		var validationErr *calculator.ValidationError
		if errors.As(err, &validationErr) {
			logger.Warn("scenario has missing inputs",
				zap.String("op", "impact.Run"),
				zap.String("scenario", scenario.Name),
				zap.Strings("missing", validationErr.Missing),
			)
			outcome.Missing = validationErr.Missing
			return outcome, nil
		}
		return outcome, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	if err := validation.ValidateResult(result); err != nil {
		return outcome, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	in := scenario.Inputs
	logger.Debug("calculated impact",
		zap.String("op", "impact.Run"),
		zap.String("scenario", scenario.Name),
		zap.Float64("totalLeads", *in.TotalLeads),
		zap.Float64("customerValue", *in.CustomerValue),
		zap.Float64("currentResponseRate", *in.CurrentResponseRate),
		zap.Float64("currentClosingRate", *in.CurrentClosingRate),
		zap.Float64("aiResponseRate", *in.AIResponseRate),
		zap.Float64("improvedConversionRate", result.ImprovedConversionRate),
		zap.Float64("currentRevenue", result.CurrentRevenue),
		zap.Float64("improvedRevenue", result.ImprovedRevenue),
		zap.Float64("additionalRevenue", result.AdditionalRevenue),
	)

	outcome.Result = result
	outcome.Warnings = validation.ResultWarnings(result)
	return outcome, nil
}
