// Package calculator estimates the revenue impact of answering leads faster.
//
// The calculator is a pure function of an explicit Input record. It has no
// state of its own and never reads from a view layer or configuration.
package calculator

import (
	"math"
	"strings"

	"github.com/iwvelando/lead-impact/pkg/constants"
	"github.com/iwvelando/lead-impact/pkg/mathutil"
)

// Input holds the five metrics entered by the user. A nil field is absent.
type Input struct {
	TotalLeads          *float64 `json:"totalLeads" yaml:"totalLeads" mapstructure:"totalLeads" validate:"omitnil,finite,gte=0,lte=100000"`
	CustomerValue       *float64 `json:"customerValue" yaml:"customerValue" mapstructure:"customerValue" validate:"omitnil,finite,gte=0"`
	CurrentResponseRate *float64 `json:"currentResponseRate" yaml:"currentResponseRate" mapstructure:"currentResponseRate" validate:"omitnil,finite,gte=0,lte=100"`
	CurrentClosingRate  *float64 `json:"currentClosingRate" yaml:"currentClosingRate" mapstructure:"currentClosingRate" validate:"omitnil,finite,gte=0,lte=100"`
	AIResponseRate      *float64 `json:"aiResponseRate" yaml:"aiResponseRate" mapstructure:"aiResponseRate" validate:"omitnil,finite,gte=0,lte=100"`
}

// Result holds the derived figures of one calculation.
type Result struct {
	// ImprovedConversionRate is a percentage capped at 100. It has no lower bound.
	ImprovedConversionRate float64 `json:"improvedConversionRate"`
	AdditionalRevenue      float64 `json:"additionalRevenue"`
	// RevenueAtRisk always equals the magnitude of AdditionalRevenue.
	RevenueAtRisk   float64 `json:"revenueAtRisk"`
	CurrentRevenue  float64 `json:"currentRevenue"`
	ImprovedRevenue float64 `json:"improvedRevenue"`
}

// ValidationError reports the labels of absent inputs in declared field order.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return constants.MissingFieldsPrefix + strings.Join(e.Missing, constants.MissingFieldsSep)
}

// Float returns a pointer to v, for building an Input literal.
func Float(v float64) *float64 {
	return &v
}

// Validate returns the labels of every absent field. The result is nil when
// all fields are present.
func Validate(input Input) []string {
	var missing []string
	if input.TotalLeads == nil {
		missing = append(missing, constants.LabelTotalLeads)
	}
	if input.CustomerValue == nil {
		missing = append(missing, constants.LabelCustomerValue)
	}
	if input.CurrentResponseRate == nil {
		missing = append(missing, constants.LabelCurrentResponseRate)
	}
	if input.CurrentClosingRate == nil {
		missing = append(missing, constants.LabelCurrentClosingRate)
	}
	if input.AIResponseRate == nil {
		missing = append(missing, constants.LabelAIResponseRate)
	}
	return missing
}

// Calculate derives the impact figures for input. It returns a
// *ValidationError without computing anything when a field is absent.
func Calculate(input Input) (Result, error) {
	if missing := Validate(input); len(missing) > 0 {
		return Result{}, &ValidationError{Missing: missing}
	}

	leads := *input.TotalLeads
	value := *input.CustomerValue
	closing := *input.CurrentClosingRate

	improvedRate := ImprovedConversionRate(closing, *input.CurrentResponseRate, *input.AIResponseRate)
	currentRevenue := mathutil.ApplyPercentage(leads, closing) * value
	improvedRevenue := mathutil.ApplyPercentage(leads, improvedRate) * value

	return Result{
		ImprovedConversionRate: improvedRate,
		AdditionalRevenue:      improvedRevenue - currentRevenue,
		RevenueAtRisk:          math.Abs(currentRevenue - improvedRevenue),
		CurrentRevenue:         currentRevenue,
		ImprovedRevenue:        improvedRevenue,
	}, nil
}

// ImprovedConversionRate adds a tenth of a point of closing rate for every
// point the AI response rate exceeds the current one, capped at 100.
func ImprovedConversionRate(closingRate, currentResponseRate, aiResponseRate float64) float64 {
	lifted := closingRate + (aiResponseRate-currentResponseRate)*constants.ResponseRateLift
	return mathutil.Min(lifted, constants.MaxPercentage)
}
