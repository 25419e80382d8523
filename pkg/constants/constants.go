// Package constants provides shared constants for the lead-impact application.
package constants

// Input field labels, in the order they are validated and reported.
const (
	LabelTotalLeads          = "Total Leads per Month"
	LabelCustomerValue       = "Average Customer Value"
	LabelCurrentResponseRate = "Current Lead Response Rate"
	LabelCurrentClosingRate  = "Current Closing Rate"
	LabelAIResponseRate      = "AI's Response Rate"
)

// Input domain bounds
const (
	// MinTotalLeads is the smallest accepted monthly lead count
	MinTotalLeads = 0.0

	// MaxTotalLeads is the largest accepted monthly lead count
	MaxTotalLeads = 100000.0

	// MinCustomerValue is the smallest accepted customer value; there is no upper bound
	MinCustomerValue = 0.0

	// MinPercentage is the lower bound for every rate input
	MinPercentage = 0.0

	// MaxPercentage is the upper bound for every rate input and for the improved conversion rate
	MaxPercentage = 100.0
)

// Formula constants
const (
	// ResponseRateLift is the closing-rate points gained per point of response-rate improvement
	ResponseRateLift = 0.1

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Messages shown to the user when inputs are missing.
const (
	MissingFieldsTitle  = "Missing Information"
	MissingFieldsPrefix = "Please fill in the following fields: "
	MissingFieldsSep    = ", "
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// CLIScenarioName names the ad-hoc scenario built from command line flags
	CLIScenarioName = "cli"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultVersion is reported by the version endpoint when none is configured
	DefaultVersion = "dev"

	// RequestIDHeader carries the per-request identifier
	RequestIDHeader = "X-Request-ID"
)
