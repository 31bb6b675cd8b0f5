package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"account-reconciliation-service/cmd/analyzer/config"
	"account-reconciliation-service/internal/matcher"
	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/internal/parsers"
	"account-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	sourceFile   string
	targetFile   string
	sourceFormat string
	targetFormat string
	profile      string
	minScore     float64

	codeWeight      float64
	nameWeight      float64
	hierarchyWeight float64
	typeWeight      float64

	reconcileOutputFormat string
	reconcileOutputFile   string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match accounts between two charts of accounts",
	Long: `Reconcile compares two chart-of-accounts exports and pairs each source
account with its best counterpart in the target chart using normalized
codes, fuzzy names, hierarchy paths, and account types.

This command requires:
- A source chart-of-accounts file (CSV format)
- A target chart-of-accounts file (CSV format)

Examples:
  # Basic account matching
  analyzer reconcile --source-file chart_a.csv --target-file chart_b.csv

  # QuickBooks export on the target side
  analyzer reconcile --source-file chart_a.csv --target-file qb_accounts.csv \
    --target-format quickbooks

  # Strict profile with a custom threshold
  analyzer reconcile --source-file a.csv --target-file b.csv \
    --profile strict --min-score 0.97

  # Custom factor weights and JSON output
  analyzer reconcile --source-file a.csv --target-file b.csv \
    --code-weight 0.5 --name-weight 0.3 --hierarchy-weight 0.1 --type-weight 0.1 \
    --output-format json --output-file matches.json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&sourceFile, "source-file", "s", "", "path to source chart-of-accounts CSV file (required)")
	reconcileCmd.Flags().StringVarP(&targetFile, "target-file", "t", "", "path to target chart-of-accounts CSV file (required)")

	// Format flags
	reconcileCmd.Flags().StringVar(&sourceFormat, "source-format", "standard", "source file format: standard, quickbooks")
	reconcileCmd.Flags().StringVar(&targetFormat, "target-format", "standard", "target file format: standard, quickbooks")

	// Matching configuration flags
	reconcileCmd.Flags().StringVarP(&profile, "profile", "p", "default", "matching profile: default, strict, relaxed")
	reconcileCmd.Flags().Float64VarP(&minScore, "min-score", "m", -1, "minimum composite score for a match (0.0-1.0, -1 keeps the profile value)")
	reconcileCmd.Flags().Float64Var(&codeWeight, "code-weight", -1, "weight of the code factor (-1 keeps the profile value)")
	reconcileCmd.Flags().Float64Var(&nameWeight, "name-weight", -1, "weight of the name factor (-1 keeps the profile value)")
	reconcileCmd.Flags().Float64Var(&hierarchyWeight, "hierarchy-weight", -1, "weight of the hierarchy factor (-1 keeps the profile value)")
	reconcileCmd.Flags().Float64Var(&typeWeight, "type-weight", -1, "weight of the type factor (-1 keeps the profile value)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&reconcileOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&reconcileOutputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("source-file")
	reconcileCmd.MarkFlagRequired("target-file")

	// Bind flags to viper
	viper.BindPFlag("source-file", reconcileCmd.Flags().Lookup("source-file"))
	viper.BindPFlag("target-file", reconcileCmd.Flags().Lookup("target-file"))
	viper.BindPFlag("source-format", reconcileCmd.Flags().Lookup("source-format"))
	viper.BindPFlag("target-format", reconcileCmd.Flags().Lookup("target-format"))
	viper.BindPFlag("profile", reconcileCmd.Flags().Lookup("profile"))
	viper.BindPFlag("min-score", reconcileCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("reconcile-output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("reconcile-output-file", reconcileCmd.Flags().Lookup("output-file"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	sourceFile = viper.GetString("source-file")
	targetFile = viper.GetString("target-file")
	sourceFormat = viper.GetString("source-format")
	targetFormat = viper.GetString("target-format")
	profile = viper.GetString("profile")
	minScore = viper.GetFloat64("min-score")
	reconcileOutputFormat = viper.GetString("reconcile-output-format")
	reconcileOutputFile = viper.GetString("reconcile-output-file")

	// Validate required flags
	if sourceFile == "" {
		return fmt.Errorf("source-file is required")
	}
	if targetFile == "" {
		return fmt.Errorf("target-file is required")
	}

	// Validate file existence
	if err := validateFileExists(sourceFile, "source chart-of-accounts file"); err != nil {
		return err
	}
	if err := validateFileExists(targetFile, "target chart-of-accounts file"); err != nil {
		return err
	}

	// Validate output format
	if _, err := reporter.ParseOutputFormat(reconcileOutputFormat); err != nil {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", reconcileOutputFormat)
	}

	// Validate score threshold
	if minScore > 1.0 {
		return fmt.Errorf("min-score must be between 0.0 and 1.0")
	}

	// Validate output file directory exists if specified
	if reconcileOutputFile != "" {
		dir := filepath.Dir(reconcileOutputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting account matching...\n")
		fmt.Fprintf(os.Stderr, "Source file: %s\n", sourceFile)
		fmt.Fprintf(os.Stderr, "Target file: %s\n", targetFile)
		fmt.Fprintf(os.Stderr, "Profile: %s\n", profile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", reconcileOutputFormat)
		if reconcileOutputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", reconcileOutputFile)
		}
	}

	// Create configurations
	sourceConfig, err := config.CreateAccountParserConfig(sourceFormat)
	if err != nil {
		return fmt.Errorf("failed to create source parser config: %w", err)
	}
	targetConfig, err := config.CreateAccountParserConfig(targetFormat)
	if err != nil {
		return fmt.Errorf("failed to create target parser config: %w", err)
	}

	matchingConfig, err := config.CreateMatchingConfig(profile, minScore, codeWeight, nameWeight, hierarchyWeight, typeWeight)
	if err != nil {
		return fmt.Errorf("failed to create matching config: %w", err)
	}

	if err := config.ValidateConfigs(sourceConfig, nil, matchingConfig); err != nil {
		return err
	}

	// Parse both charts of accounts
	sourceAccounts, sourceStats, err := parseAccountFile(sourceFile, sourceConfig)
	if err != nil {
		return err
	}
	targetAccounts, targetStats, err := parseAccountFile(targetFile, targetConfig)
	if err != nil {
		return err
	}

	reportParseWarnings(sourceFile, sourceStats)
	reportParseWarnings(targetFile, targetStats)

	// Run the matcher
	accountMatcher := matcher.NewAccountMatcher(matchingConfig)
	matches, err := accountMatcher.FindBestMatches(sourceAccounts, targetAccounts)
	if err != nil {
		return fmt.Errorf("account matching failed: %w", err)
	}

	// Generate report
	reportConfig, err := config.CreateReportConfig(reconcileOutputFormat)
	if err != nil {
		return err
	}
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	output, closeOutput, err := openOutput(reconcileOutputFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	if err := reportGenerator.WriteMatchReport(matches, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nAccount matching completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Compared %d source accounts against %d target accounts.\n",
			len(sourceAccounts), len(targetAccounts))
		fmt.Fprintf(os.Stderr, "Found %d matches above the %.2f threshold.\n",
			len(matches), matchingConfig.MinScore)
	}

	return nil
}

func parseAccountFile(filePath string, parserConfig *parsers.AccountParserConfig) ([]*models.AccountRecord, *parsers.ParseStats, error) {
	parser, err := parsers.NewAccountParser(parserConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create account parser: %w", err)
	}

	accounts, stats, err := parser.ParseAccounts(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	return accounts, stats, nil
}

func reportParseWarnings(filePath string, stats *parsers.ParseStats) {
	if stats == nil || !stats.HasErrors() {
		return
	}

	fmt.Fprintf(os.Stderr, "Warning: %d rows skipped in %s:\n", len(stats.Errors), filePath)
	for _, sample := range stats.SampleErrors(5) {
		fmt.Fprintf(os.Stderr, "  %s\n", sample)
	}
}

func openOutput(filePath string) (*os.File, func(), error) {
	if filePath == "" {
		return os.Stdout, func() {}, nil
	}

	output, err := os.Create(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return output, func() { output.Close() }, nil
}
