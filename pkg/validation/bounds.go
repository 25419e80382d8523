package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/lead-impact/pkg/calculator"
	"github.com/iwvelando/lead-impact/pkg/constants"
	"github.com/iwvelando/lead-impact/pkg/mathutil"
)

// inputValidate checks the domain tags declared on calculator.Input.
var inputValidate *validator.Validate

func init() {
	inputValidate = validator.New(validator.WithRequiredStructEnabled())
	if err := inputValidate.RegisterValidation("finite", validateFinite); err != nil {
		panic(fmt.Sprintf("failed to register finite validation: %v", err))
	}
}

func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var fieldLabels = map[string]string{
	"TotalLeads":          constants.LabelTotalLeads,
	"CustomerValue":       constants.LabelCustomerValue,
	"CurrentResponseRate": constants.LabelCurrentResponseRate,
	"CurrentClosingRate":  constants.LabelCurrentClosingRate,
	"AIResponseRate":      constants.LabelAIResponseRate,
}

// BoundsError lists every input that falls outside its domain.
type BoundsError struct {
	Violations []string
}

func (e *BoundsError) Error() string {
	return "input out of range: " + strings.Join(e.Violations, "; ")
}

// ValidateBounds checks the present fields of input against their domains.
// Absent fields are not reported here; calculator.Validate covers them.
func ValidateBounds(input calculator.Input) error {
	err := inputValidate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, describe(fe))
	}
	return &BoundsError{Violations: violations}
}

func describe(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.StructField()]
	if !ok {
		label = fe.StructField()
	}

	value := fe.Value()
	if ptr, ok := value.(*float64); ok && ptr != nil {
		value = *ptr
	}

	switch fe.Tag() {
	case "finite":
		return fmt.Sprintf("%s must be a finite number", label)
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", label, fe.Param(), value)
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", label, fe.Param(), value)
	default:
		return fmt.Sprintf("%s failed %s validation", label, fe.Tag())
	}
}

// ResultRangeError lists result figures that overflowed to a non-finite value.
type ResultRangeError struct {
	Fields []string
}

func (e *ResultRangeError) Error() string {
	return "result out of range: " + strings.Join(e.Fields, ", ") + " cannot be represented; reduce the inputs"
}

// ValidateResult rejects results whose figures are NaN or infinite. Inputs
// inside their domains can still overflow since customer value is unbounded.
func ValidateResult(result calculator.Result) error {
	figures := []struct {
		name  string
		value float64
	}{
		{"improved conversion rate", result.ImprovedConversionRate},
		{"additional revenue", result.AdditionalRevenue},
		{"revenue at risk", result.RevenueAtRisk},
		{"current revenue", result.CurrentRevenue},
		{"improved revenue", result.ImprovedRevenue},
	}

	var fields []string
	for _, f := range figures {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			fields = append(fields, f.name)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ResultRangeError{Fields: fields}
}

// ResultWarnings flags results a reader should double check.
func ResultWarnings(result calculator.Result) []string {
	var warnings []string
	if mathutil.IsNegative(result.ImprovedConversionRate) {
		warnings = append(warnings, fmt.Sprintf("improved conversion rate is negative (%.1f%%) because the AI response rate is well below the current response rate",
			result.ImprovedConversionRate))
	}
	return warnings
}
