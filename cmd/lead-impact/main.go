package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/iwvelando/lead-impact/internal/config"
	"github.com/iwvelando/lead-impact/internal/impact"
	"github.com/iwvelando/lead-impact/internal/logging"
	"github.com/iwvelando/lead-impact/pkg/calculator"
	"github.com/iwvelando/lead-impact/pkg/constants"
	"github.com/iwvelando/lead-impact/pkg/output"
	"github.com/iwvelando/lead-impact/pkg/validation"
	"go.uber.org/zap"
)

// Exit codes
const (
	exitOK         = 0
	exitError      = 1
	exitUsage      = 2
	exitIncomplete = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// Flags that set calculator fields.
const (
	flagTotalLeads          = "total-leads"
	flagCustomerValue       = "customer-value"
	flagCurrentResponseRate = "current-response-rate"
	flagCurrentClosingRate  = "current-closing-rate"
	flagAIResponseRate      = "ai-response-rate"
)

// inputFlags maps each calculator field to the flag that sets it.
type inputFlags struct {
	totalLeads          *float64
	customerValue       *float64
	currentResponseRate *float64
	currentClosingRate  *float64
	aiResponseRate      *float64
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("lead-impact", flag.ContinueOnError)
	flags.SetOutput(stderr)

	// Process command line flags first to get config location
	configLocation := flags.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flags.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flags.String("log-level", "", "log level override (debug, info, warn, error)")

	in := inputFlags{
		totalLeads:          flags.Float64(flagTotalLeads, 0, constants.LabelTotalLeads),
		customerValue:       flags.Float64(flagCustomerValue, 0, constants.LabelCustomerValue+" in dollars"),
		currentResponseRate: flags.Float64(flagCurrentResponseRate, 0, constants.LabelCurrentResponseRate+" as a percentage"),
		currentClosingRate:  flags.Float64(flagCurrentClosingRate, 0, constants.LabelCurrentClosingRate+" as a percentage"),
		aiResponseRate:      flags.Float64(flagAIResponseRate, 0, constants.LabelAIResponseRate+" as a percentage"),
	}

	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	adHoc, adHocRequested := in.scenario(flags)

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		var pathErr *fs.PathError
		if !adHocRequested || !errors.As(err, &pathErr) {
			fmt.Fprintf(stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
			return exitError
		}
		conf = &config.Configuration{}
	}

	// Initialize logging based on config and CLI override
	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return exitError
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Error(err.Error(),
			zap.String("op", "main"),
		)
		return exitUsage
	}

	if adHocRequested {
		logger.Debug("calculating ad-hoc scenario from flags",
			zap.String("op", "main"),
		)
		conf.Scenarios = []config.Scenario{adHoc}
	}

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	results, err := impact.GetImpact(logger, *conf)
	if err != nil {
		logger.Error("failed to calculate impact",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return exitError
	}

	if err := output.Write(stdout, outputFormat, results); err != nil {
		logger.Error("failed to write results",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return exitError
	}

	for _, result := range results {
		if !result.Complete() {
			logger.Error(output.MissingMessage(result.Missing),
				zap.String("op", "main"),
				zap.String("scenario", result.Name),
			)
			return exitIncomplete
		}
	}

	return exitOK
}

// scenario builds the ad-hoc scenario from the field flags that were set.
// The boolean is false when none were.
func (in inputFlags) scenario(flags *flag.FlagSet) (config.Scenario, bool) {
	var input calculator.Input
	targets := map[string]struct {
		value *float64
		field **float64
	}{
		flagTotalLeads:          {in.totalLeads, &input.TotalLeads},
		flagCustomerValue:       {in.customerValue, &input.CustomerValue},
		flagCurrentResponseRate: {in.currentResponseRate, &input.CurrentResponseRate},
		flagCurrentClosingRate:  {in.currentClosingRate, &input.CurrentClosingRate},
		flagAIResponseRate:      {in.aiResponseRate, &input.AIResponseRate},
	}

	set := false
	flags.Visit(func(f *flag.Flag) {
		target, ok := targets[f.Name]
		if !ok {
			return
		}
		*target.field = calculator.Float(*target.value)
		set = true
	})

	return config.Scenario{Name: constants.CLIScenarioName, Active: true, Inputs: input}, set
}
