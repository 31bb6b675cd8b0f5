// Package reporter renders matching and anomaly analysis results for
// people and downstream tooling.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured output for programmatic consumption
//   - CSV: flat rows for spreadsheet applications
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/internal/pipeline"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseOutputFormat parses an output format from string.
func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(s)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format %q (expected console, json, or csv)", s)
	}
	return format, nil
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeExplanations bool `json:"include_explanations"`
	IncludeSubledgers   bool `json:"include_subledgers"`
	IncludeMatchFactors bool `json:"include_match_factors"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:              FormatConsole,
		IncludeExplanations: true,
		IncludeSubledgers:   true,
		IncludeMatchFactors: false,
		CSVDelimiter:        ',',
		CSVHeaders:          true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders match and analysis reports in the configured
// format.
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the specified
// configuration. A nil configuration selects the defaults.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// WriteMatchReport renders account match results to the writer.
func (rg *ReportGenerator) WriteMatchReport(matches []*models.MatchResult, writer io.Writer) error {
	switch rg.config.Format {
	case FormatConsole:
		return rg.matchConsole(matches, writer)
	case FormatJSON:
		return writeJSON(writer, map[string]interface{}{
			"generatedAt": time.Now().UTC(),
			"matchCount":  len(matches),
			"matches":     matches,
		})
	case FormatCSV:
		return rg.matchCSV(matches, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// WriteAnalysisReport renders a pipeline run's anomaly and subledger
// results to the writer.
func (rg *ReportGenerator) WriteAnalysisReport(result *pipeline.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("analysis result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.analysisConsole(result, writer)
	case FormatJSON:
		return writeJSON(writer, result)
	case FormatCSV:
		return rg.analysisCSV(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func writeJSON(writer io.Writer, payload interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func (rg *ReportGenerator) matchConsole(matches []*models.MatchResult, writer io.Writer) error {
	fmt.Fprintf(writer, "ACCOUNT MATCH REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(writer, "Matches:   %d\n\n", len(matches))

	if len(matches) == 0 {
		fmt.Fprintf(writer, "No account pairs met the match threshold.\n")
		return nil
	}

	fmt.Fprintf(writer, "%-16s %-30s %-16s %-30s %8s\n", "SOURCE CODE", "SOURCE NAME", "TARGET CODE", "TARGET NAME", "SCORE")
	for _, match := range matches {
		fmt.Fprintf(writer, "%-16s %-30s %-16s %-30s %8.3f\n",
			truncate(match.Source.Code, 16), truncate(match.Source.Name, 30),
			truncate(match.Target.Code, 16), truncate(match.Target.Name, 30),
			match.Score)

		if rg.config.IncludeMatchFactors {
			fmt.Fprintf(writer, "    factors: code=%.3f name=%.3f hierarchy=%.3f type=%.3f\n",
				match.Factors.CodeScore, match.Factors.NameScore,
				match.Factors.HierarchyScore, match.Factors.TypeScore)
		}
	}

	return nil
}

func (rg *ReportGenerator) matchCSV(matches []*models.MatchResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Source_Code", "Source_Name", "Target_Code", "Target_Name",
			"Score", "Code_Score", "Name_Score", "Hierarchy_Score", "Type_Score",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, match := range matches {
		record := []string{
			match.Source.Code,
			match.Source.Name,
			match.Target.Code,
			match.Target.Name,
			fmt.Sprintf("%.4f", match.Score),
			fmt.Sprintf("%.4f", match.Factors.CodeScore),
			fmt.Sprintf("%.4f", match.Factors.NameScore),
			fmt.Sprintf("%.4f", match.Factors.HierarchyScore),
			fmt.Sprintf("%.4f", match.Factors.TypeScore),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write match record: %w", err)
		}
	}

	return csvWriter.Error()
}

func (rg *ReportGenerator) analysisConsole(result *pipeline.Result, writer io.Writer) error {
	fmt.Fprintf(writer, "ANOMALY ANALYSIS REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(writer, "Processed: %d transactions in %dms\n\n",
		result.Performance.ProcessedTransactions, result.Performance.ProcessingTimeMs)

	flagged := flaggedAnomalies(result.Outliers)

	fmt.Fprintf(writer, "=== ANOMALIES (%d) ===\n", len(flagged))
	if len(flagged) == 0 {
		fmt.Fprintf(writer, "No transactions exceeded the deviation threshold.\n")
	}
	for _, anomaly := range flagged {
		fmt.Fprintf(writer, "%-20s z=%8.2f confidence=%.3f severity=%s\n",
			truncate(anomaly.TransactionID, 20), anomaly.ZScore, anomaly.Confidence, anomaly.Severity)
		fmt.Fprintf(writer, "    %s\n", anomaly.Explanation)

		if rg.config.IncludeExplanations {
			if explanation, ok := result.Explanations[anomaly.TransactionID]; ok {
				fmt.Fprintf(writer, "    risk=%s: %s\n", explanation.RiskLevel, explanation.Summary)
			}
		}
	}
	fmt.Fprintf(writer, "\n")

	if rg.config.IncludeSubledgers && len(result.Subledgers) > 0 {
		fmt.Fprintf(writer, "=== SUBLEDGERS (%d) ===\n", len(result.Subledgers))
		fmt.Fprintf(writer, "%-24s %-20s %12s %6s %12s %6s\n",
			"CATEGORY", "TYPE", "AVG AMOUNT", "COUNT", "SEASONALITY", "FLAGS")
		for _, subledger := range result.Subledgers {
			fmt.Fprintf(writer, "%-24s %-20s %12s %6d %12.3f %6d\n",
				truncate(subledger.Category, 24), subledger.AccountType,
				subledger.Patterns.AverageAmount.StringFixed(2),
				subledger.Patterns.Frequency,
				subledger.Patterns.Seasonality,
				len(subledger.Anomalies))
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(result.ManualReview) > 0 || len(result.AutoAccepted) > 0 {
		fmt.Fprintf(writer, "=== REVIEW ROUTING ===\n")
		fmt.Fprintf(writer, "Manual review: %d  Auto-accepted: %d  Unrouted: %d\n",
			len(result.ManualReview), len(result.AutoAccepted), len(result.Unrouted))
	}

	return nil
}

func (rg *ReportGenerator) analysisCSV(result *pipeline.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Transaction_ID", "Z_Score", "Confidence", "Severity",
			"Baseline_Mean", "Baseline_StdDev", "Risk_Level", "Summary",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, anomaly := range flaggedAnomalies(result.Outliers) {
		riskLevel, summary := "", ""
		if explanation, ok := result.Explanations[anomaly.TransactionID]; ok {
			riskLevel = string(explanation.RiskLevel)
			summary = explanation.Summary
		}

		record := []string{
			anomaly.TransactionID,
			fmt.Sprintf("%.4f", anomaly.ZScore),
			fmt.Sprintf("%.4f", anomaly.Confidence),
			string(anomaly.Severity),
			fmt.Sprintf("%.2f", anomaly.Stats.Mean),
			fmt.Sprintf("%.2f", anomaly.Stats.StdDev),
			riskLevel,
			summary,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write anomaly record: %w", err)
		}
	}

	return csvWriter.Error()
}

func flaggedAnomalies(results []*models.AnomalyResult) []*models.AnomalyResult {
	flagged := make([]*models.AnomalyResult, 0, len(results))
	for _, result := range results {
		if result.IsAnomaly {
			flagged = append(flagged, result)
		}
	}
	return flagged
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
