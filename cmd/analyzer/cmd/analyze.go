package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"account-reconciliation-service/cmd/analyzer/config"
	"account-reconciliation-service/internal/metrics"
	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/internal/parsers"
	"account-reconciliation-service/internal/pipeline"
	"account-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the analyze command
var (
	transactionsFile string
	accountsFile     string
	accountsFormat   string

	zThreshold          float64
	minGroupSize        int
	manualReviewPercent float64
	autoAcceptPercent   float64
	explainTimeout      time.Duration
	showMetrics         bool

	analyzeOutputFormat string
	analyzeOutputFile   string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Detect anomalous transactions and analyze subledgers",
	Long: `Analyze runs statistical outlier detection over a transaction export,
groups activity into subledgers by category and account type, generates
explanations for every flagged transaction, and routes flagged items to
review queues by confidence.

This command requires:
- A transaction file (CSV format)

An optional chart-of-accounts file enriches subledger grouping and
financial metrics.

Examples:
  # Basic anomaly analysis
  analyzer analyze --transactions-file transactions.csv

  # With a chart of accounts for subledger grouping
  analyzer analyze --transactions-file tx.csv --accounts-file accounts.csv

  # Custom detection settings
  analyzer analyze --transactions-file tx.csv --z-threshold 2.5 --min-group-size 5

  # Split flagged items 30% manual review, 50% auto accept
  analyzer analyze --transactions-file tx.csv \
    --manual-review-percent 30 --auto-accept-percent 50

  # JSON report with financial metrics
  analyzer analyze --transactions-file tx.csv --accounts-file accounts.csv \
    --output-format json --show-metrics`,

	PreRunE: validateAnalyzeFlags,
	RunE:    runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Required flags
	analyzeCmd.Flags().StringVarP(&transactionsFile, "transactions-file", "x", "", "path to transaction CSV file (required)")

	// Optional accounts input
	analyzeCmd.Flags().StringVarP(&accountsFile, "accounts-file", "a", "", "path to chart-of-accounts CSV file (optional)")
	analyzeCmd.Flags().StringVar(&accountsFormat, "accounts-format", "standard", "accounts file format: standard, quickbooks")

	// Detection configuration flags
	analyzeCmd.Flags().Float64VarP(&zThreshold, "z-threshold", "z", 0, "z-score threshold for flagging (0 keeps the default of 3.0)")
	analyzeCmd.Flags().IntVarP(&minGroupSize, "min-group-size", "g", 0, "minimum group size for in-batch baselines (0 keeps the default of 3)")

	// Review routing flags
	analyzeCmd.Flags().Float64Var(&manualReviewPercent, "manual-review-percent", 100, "share of flagged items routed to manual review (0-100)")
	analyzeCmd.Flags().Float64Var(&autoAcceptPercent, "auto-accept-percent", 0, "share of flagged items auto-accepted (0-100)")

	// Explanation flags
	analyzeCmd.Flags().DurationVar(&explainTimeout, "explain-timeout", 0, "per-anomaly explanation timeout (0 keeps the default of 5s)")

	// Metrics flag
	analyzeCmd.Flags().BoolVar(&showMetrics, "show-metrics", false, "print financial metrics (ratios, margins, collection rate)")

	// Output flags
	analyzeCmd.Flags().StringVarP(&analyzeOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	analyzeCmd.Flags().StringVarP(&analyzeOutputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Mark required flags
	analyzeCmd.MarkFlagRequired("transactions-file")

	// Bind flags to viper
	viper.BindPFlag("transactions-file", analyzeCmd.Flags().Lookup("transactions-file"))
	viper.BindPFlag("accounts-file", analyzeCmd.Flags().Lookup("accounts-file"))
	viper.BindPFlag("accounts-format", analyzeCmd.Flags().Lookup("accounts-format"))
	viper.BindPFlag("z-threshold", analyzeCmd.Flags().Lookup("z-threshold"))
	viper.BindPFlag("min-group-size", analyzeCmd.Flags().Lookup("min-group-size"))
	viper.BindPFlag("manual-review-percent", analyzeCmd.Flags().Lookup("manual-review-percent"))
	viper.BindPFlag("auto-accept-percent", analyzeCmd.Flags().Lookup("auto-accept-percent"))
	viper.BindPFlag("explain-timeout", analyzeCmd.Flags().Lookup("explain-timeout"))
	viper.BindPFlag("show-metrics", analyzeCmd.Flags().Lookup("show-metrics"))
	viper.BindPFlag("analyze-output-format", analyzeCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("analyze-output-file", analyzeCmd.Flags().Lookup("output-file"))
}

func validateAnalyzeFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	transactionsFile = viper.GetString("transactions-file")
	accountsFile = viper.GetString("accounts-file")
	accountsFormat = viper.GetString("accounts-format")
	zThreshold = viper.GetFloat64("z-threshold")
	minGroupSize = viper.GetInt("min-group-size")
	manualReviewPercent = viper.GetFloat64("manual-review-percent")
	autoAcceptPercent = viper.GetFloat64("auto-accept-percent")
	explainTimeout = viper.GetDuration("explain-timeout")
	showMetrics = viper.GetBool("show-metrics")
	analyzeOutputFormat = viper.GetString("analyze-output-format")
	analyzeOutputFile = viper.GetString("analyze-output-file")

	// Validate required flags
	if transactionsFile == "" {
		return fmt.Errorf("transactions-file is required")
	}

	// Validate file existence
	if err := validateFileExists(transactionsFile, "transaction file"); err != nil {
		return err
	}
	if accountsFile != "" {
		if err := validateFileExists(accountsFile, "chart-of-accounts file"); err != nil {
			return err
		}
	}

	// Validate output format
	if _, err := reporter.ParseOutputFormat(analyzeOutputFormat); err != nil {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", analyzeOutputFormat)
	}

	// Validate detection settings
	if zThreshold < 0 {
		return fmt.Errorf("z-threshold cannot be negative")
	}
	if minGroupSize < 0 {
		return fmt.Errorf("min-group-size cannot be negative")
	}

	// Validate review routing
	if manualReviewPercent < 0 || manualReviewPercent > 100 {
		return fmt.Errorf("manual-review-percent must be between 0 and 100")
	}
	if autoAcceptPercent < 0 || autoAcceptPercent > 100 {
		return fmt.Errorf("auto-accept-percent must be between 0 and 100")
	}
	if manualReviewPercent+autoAcceptPercent > 100 {
		return fmt.Errorf("manual-review-percent and auto-accept-percent cannot exceed 100 combined")
	}

	// Validate output file directory exists if specified
	if analyzeOutputFile != "" {
		dir := filepath.Dir(analyzeOutputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting anomaly analysis...\n")
		fmt.Fprintf(os.Stderr, "Transactions file: %s\n", transactionsFile)
		if accountsFile != "" {
			fmt.Fprintf(os.Stderr, "Accounts file: %s\n", accountsFile)
		}
		fmt.Fprintf(os.Stderr, "Output format: %s\n", analyzeOutputFormat)
		if analyzeOutputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", analyzeOutputFile)
		}
	}

	// Create configurations
	transactionConfig, err := config.CreateTransactionParserConfig()
	if err != nil {
		return fmt.Errorf("failed to create transaction parser config: %w", err)
	}

	detectorConfig := config.CreateDetectorConfig(zThreshold, minGroupSize)
	pipelineConfig := config.CreatePipelineConfig(detectorConfig, manualReviewPercent, autoAcceptPercent, explainTimeout)

	// Parse transactions
	transactionParser, err := parsers.NewTransactionParser(transactionConfig)
	if err != nil {
		return fmt.Errorf("failed to create transaction parser: %w", err)
	}
	transactions, txStats, err := transactionParser.ParseTransactionsWithContext(ctx, transactionsFile)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", transactionsFile, err)
	}
	reportParseWarnings(transactionsFile, txStats)

	// Parse accounts when provided
	var accounts []*models.AccountRecord
	if accountsFile != "" {
		accountConfig, err := config.CreateAccountParserConfig(accountsFormat)
		if err != nil {
			return fmt.Errorf("failed to create account parser config: %w", err)
		}
		var acctStats *parsers.ParseStats
		accounts, acctStats, err = parseAccountFile(accountsFile, accountConfig)
		if err != nil {
			return err
		}
		reportParseWarnings(accountsFile, acctStats)
	}

	// Run the pipeline
	analysisPipeline := pipeline.NewPipeline(pipelineConfig, nil, nil)
	result, err := analysisPipeline.Process(ctx, transactions, accounts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	// Report per-stage failures without discarding the partial result
	for _, stageErr := range result.StageErrors {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", stageErr)
	}

	// Generate report
	reportConfig, err := config.CreateReportConfig(analyzeOutputFormat)
	if err != nil {
		return err
	}
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	output, closeOutput, err := openOutput(analyzeOutputFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	if err := reportGenerator.WriteAnalysisReport(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Print financial metrics if requested
	if showMetrics {
		printMetrics(metrics.Compute(transactions, accounts), os.Stderr)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		flagged := len(result.ManualReview) + len(result.AutoAccepted) + len(result.Unrouted)
		fmt.Fprintf(os.Stderr, "\nAnalysis completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d transactions across %d subledgers.\n",
			result.Performance.ProcessedTransactions, len(result.Subledgers))
		fmt.Fprintf(os.Stderr, "Flagged %d anomalies: %d manual review, %d auto accepted, %d unrouted.\n",
			flagged, len(result.ManualReview), len(result.AutoAccepted), len(result.Unrouted))
		fmt.Fprintf(os.Stderr, "Processing time: %dms\n", result.Performance.ProcessingTimeMs)
	}

	return nil
}

func printMetrics(snapshot *metrics.Snapshot, out *os.File) {
	fmt.Fprintf(out, "\nFinancial metrics:\n")
	fmt.Fprintf(out, "  Net income:      %s\n", snapshot.NetIncome.StringFixed(2))
	fmt.Fprintf(out, "  Current ratio:   %s\n", snapshot.CurrentRatio.StringFixed(2))
	fmt.Fprintf(out, "  Quick ratio:     %s\n", snapshot.QuickRatio.StringFixed(2))
	fmt.Fprintf(out, "  Gross margin:    %s\n", snapshot.GrossMargin.StringFixed(2))
	fmt.Fprintf(out, "  Collection rate: %s%%\n", snapshot.CollectionRate.StringFixed(2))
	orderedTypes := []models.AccountType{
		models.AccountTypeBank,
		models.AccountTypeReceivable,
		models.AccountTypePayable,
		models.AccountTypeRevenue,
		models.AccountTypeExpense,
		models.AccountTypeOther,
	}
	for _, accountType := range orderedTypes {
		total, ok := snapshot.TotalsByType[accountType]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  Total %-18s %s\n", string(accountType)+":", total.StringFixed(2))
	}
}
