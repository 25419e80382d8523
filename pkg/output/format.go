// Package output provides utilities for formatting and displaying impact results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/lead-impact/internal/impact"
	"github.com/iwvelando/lead-impact/pkg/calculator"
	"github.com/iwvelando/lead-impact/pkg/constants"
	"github.com/iwvelando/lead-impact/pkg/format"
)

// Display holds the three result cards as shown to a user.
type Display struct {
	ImprovedConversionRate string `json:"improvedConversionRate"`
	AdditionalRevenue      string `json:"additionalRevenue"`
	RevenueAtRisk          string `json:"revenueAtRisk"`
}

// NewDisplay renders result the way the result cards show it.
func NewDisplay(result calculator.Result) Display {
	return Display{
		ImprovedConversionRate: format.Percent(result.ImprovedConversionRate),
		AdditionalRevenue:      format.Currency(result.AdditionalRevenue),
		RevenueAtRisk:          format.Currency(result.RevenueAtRisk),
	}
}

// MissingMessage builds the notice listing absent inputs.
func MissingMessage(missing []string) string {
	return constants.MissingFieldsPrefix + strings.Join(missing, constants.MissingFieldsSep)
}

// Write dispatches to the renderer for the named output format.
func Write(w io.Writer, outputFormat string, results []impact.Impact) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		PrettyFormat(w, results)
		return nil
	case constants.OutputFormatCSV:
		return CsvFormat(w, results)
	case constants.OutputFormatJSON:
		return JSONFormat(w, results)
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, results []impact.Impact) {
	for i, result := range results {
		fmt.Fprintf(w, "--- Results for scenario %s ---\n", result.Name)
		if !result.Complete() {
			fmt.Fprintf(w, "%s: %s\n", constants.MissingFieldsTitle, MissingMessage(result.Missing))
		} else {
			display := NewDisplay(result.Result)
			fmt.Fprintf(w, "Improved Conversion Rate | %s\n", display.ImprovedConversionRate)
			fmt.Fprintf(w, "Additional Revenue       | %s\n", display.AdditionalRevenue)
			fmt.Fprintf(w, "Revenue at Risk          | %s\n", display.RevenueAtRisk)
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "Warning: %s\n", warning)
			}
		}
		if len(results) > 1 && i < len(results)-1 {
			fmt.Fprintf(w, "\n")
		}
	}
}

var csvHeader = []string{
	"scenario",
	"improved conversion rate",
	"additional revenue",
	"revenue at risk",
	"current revenue",
	"improved revenue",
	"missing",
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(w io.Writer, results []impact.Impact) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, result := range results {
		record := []string{result.Name, "", "", "", "", "", strings.Join(result.Missing, ",")}
		if result.Complete() {
			r := result.Result
			record[1] = strconv.FormatFloat(r.ImprovedConversionRate, 'f', 1, 64)
			record[2] = strconv.FormatFloat(r.AdditionalRevenue, 'f', 2, 64)
			record[3] = strconv.FormatFloat(r.RevenueAtRisk, 'f', 2, 64)
			record[4] = strconv.FormatFloat(r.CurrentRevenue, 'f', 2, 64)
			record[5] = strconv.FormatFloat(r.ImprovedRevenue, 'f', 2, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CsvString returns the CSV rendering of results.
func CsvString(results []impact.Impact) string {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, results); err != nil {
		return ""
	}
	return buf.String()
}

// ScenarioRecord is the JSON shape of one scenario outcome.
type ScenarioRecord struct {
	Name     string             `json:"name"`
	Result   *calculator.Result `json:"result,omitempty"`
	Display  *Display           `json:"display,omitempty"`
	Missing  []string           `json:"missing,omitempty"`
	Error    string             `json:"error,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

// Records converts results into their JSON shape.
func Records(results []impact.Impact) []ScenarioRecord {
	records := make([]ScenarioRecord, 0, len(results))
	for _, result := range results {
		record := ScenarioRecord{Name: result.Name, Warnings: result.Warnings}
		if result.Complete() {
			r := result.Result
			display := NewDisplay(r)
			record.Result = &r
			record.Display = &display
		} else {
			record.Missing = result.Missing
			record.Error = MissingMessage(result.Missing)
		}
		records = append(records, record)
	}
	return records
}

// JSONFormat outputs an indented JSON array of scenario records. Nothing is
// written when encoding fails.
func JSONFormat(w io.Writer, results []impact.Impact) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Records(results)); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
