package config

import (
	"fmt"
	"time"

	"account-reconciliation-service/internal/anomaly"
	"account-reconciliation-service/internal/matcher"
	"account-reconciliation-service/internal/parsers"
	"account-reconciliation-service/internal/pipeline"
	"account-reconciliation-service/internal/reporter"
)

// CreateAccountParserConfig creates an account parser configuration for the
// named export format ("default", "quickbooks"), extended with common
// column aliases seen across accounting exports.
func CreateAccountParserConfig(format string) (*parsers.AccountParserConfig, error) {
	if format == "default" {
		format = "standard"
	}
	preset := parsers.GetAccountParserConfig(format)
	if preset == nil {
		return nil, fmt.Errorf("unknown account file format: %s (expected standard or quickbooks)", format)
	}

	// Copy so the shared presets stay untouched
	copied := *preset
	config := &copied

	config.ColumnAliases = make(map[string]string)
	for alias, canonical := range preset.ColumnAliases {
		config.ColumnAliases[alias] = canonical
	}
	for alias, canonical := range map[string]string{
		// Common aliases for account columns
		"account_code":   config.CodeColumn,
		"account_number": config.CodeColumn,
		"acct_no":        config.CodeColumn,
		"number":         config.CodeColumn,
		"account_name":   config.NameColumn,
		"description":    config.NameColumn,
		"title":          config.NameColumn,
		"account_type":   config.TypeColumn,
		"classification": config.TypeColumn,
		"parent":         config.ParentCodeColumn,
		"parent_account": config.ParentCodeColumn,
	} {
		if _, exists := config.ColumnAliases[alias]; !exists {
			config.ColumnAliases[alias] = canonical
		}
	}

	return config, nil
}

// CreateTransactionParserConfig creates a default transaction parser
// configuration with common column aliases.
func CreateTransactionParserConfig() (*parsers.TransactionParserConfig, error) {
	config := parsers.DefaultTransactionParserConfig()

	if config.ColumnAliases == nil {
		config.ColumnAliases = make(map[string]string)
	}
	for alias, canonical := range map[string]string{
		// Common aliases for transaction columns
		"tx_id":          config.IDColumn,
		"txn_id":         config.IDColumn,
		"transaction_id": config.IDColumn,
		"account":        config.AccountCodeColumn,
		"acct":           config.AccountCodeColumn,
		"amt":            config.AmountColumn,
		"value":          config.AmountColumn,
		"sum":            config.AmountColumn,
		"date":           config.TimestampColumn,
		"datetime":       config.TimestampColumn,
		"time":           config.TimestampColumn,
		"transaction_type": config.TypeColumn,
		"tx_type":          config.TypeColumn,
	} {
		if _, exists := config.ColumnAliases[alias]; !exists {
			config.ColumnAliases[alias] = canonical
		}
	}

	return config, nil
}

// CreateMatchingConfig creates a matching configuration from a named profile
// with optional CLI overrides. A negative weight or score leaves the
// profile's value in place.
func CreateMatchingConfig(profile string, minScore, codeWeight, nameWeight, hierarchyWeight, typeWeight float64) (*matcher.MatchingConfig, error) {
	var config *matcher.MatchingConfig

	switch profile {
	case "", "default":
		config = matcher.DefaultMatchingConfig()
	case "strict":
		config = matcher.StrictMatchingConfig()
	case "relaxed":
		config = matcher.RelaxedMatchingConfig()
	default:
		return nil, fmt.Errorf("unknown matching profile: %s (expected default, strict, or relaxed)", profile)
	}

	// Apply CLI overrides
	if minScore >= 0 {
		config.MinScore = minScore
	}
	if codeWeight >= 0 {
		config.Weights.CodeWeight = codeWeight
	}
	if nameWeight >= 0 {
		config.Weights.NameWeight = nameWeight
	}
	if hierarchyWeight >= 0 {
		config.Weights.HierarchyWeight = hierarchyWeight
	}
	if typeWeight >= 0 {
		config.Weights.TypeWeight = typeWeight
	}

	return config, nil
}

// CreateDetectorConfig creates a detector configuration with CLI overrides.
func CreateDetectorConfig(zThreshold float64, minGroupSize int) *anomaly.DetectorConfig {
	config := anomaly.DefaultDetectorConfig()

	// Apply CLI overrides
	if zThreshold > 0 {
		config.ZScoreThreshold = zThreshold
	}
	if minGroupSize > 0 {
		config.MinGroupSize = minGroupSize
	}

	return config
}

// CreatePipelineConfig creates a pipeline configuration combining detector
// settings with review routing percentages.
func CreatePipelineConfig(detector *anomaly.DetectorConfig, manualPercent, autoPercent float64, explainTimeout time.Duration) *pipeline.PipelineConfig {
	config := pipeline.DefaultPipelineConfig()

	config.Detector = detector
	config.ReviewRouting = pipeline.ReviewRouting{
		ManualReviewPercent: manualPercent,
		AutoAcceptPercent:   autoPercent,
	}
	if explainTimeout > 0 {
		config.ExplainTimeout = explainTimeout
	}

	return config
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	parsed, err := reporter.ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}
	config.Format = parsed

	switch parsed {
	case reporter.FormatConsole:
		config.IncludeExplanations = true
		config.IncludeSubledgers = true
		config.IncludeMatchFactors = true
	case reporter.FormatJSON:
		config.IncludeExplanations = true
		config.IncludeSubledgers = true
		config.IncludeMatchFactors = true
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeExplanations = false // CSV rows stay flat
		config.IncludeSubledgers = false
		config.IncludeMatchFactors = true
	}

	return config, nil
}

// ValidateConfigs validates that all provided configurations are consistent
func ValidateConfigs(accountConfig *parsers.AccountParserConfig, transactionConfig *parsers.TransactionParserConfig, matchingConfig *matcher.MatchingConfig) error {
	if accountConfig != nil {
		if err := accountConfig.Validate(); err != nil {
			return fmt.Errorf("invalid account parser config: %w", err)
		}
	}

	if transactionConfig != nil {
		if err := transactionConfig.Validate(); err != nil {
			return fmt.Errorf("invalid transaction parser config: %w", err)
		}
	}

	if matchingConfig != nil {
		if err := matchingConfig.Validate(); err != nil {
			return fmt.Errorf("invalid matching config: %w", err)
		}
	}

	return nil
}
