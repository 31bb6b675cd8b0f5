package config

import (
	"testing"
	"time"

	"account-reconciliation-service/internal/reporter"
)

func TestCreateAccountParserConfig(t *testing.T) {
	config, err := CreateAccountParserConfig("standard")
	if err != nil {
		t.Fatalf("failed to create account parser config: %v", err)
	}

	if config.CodeColumn != "code" {
		t.Errorf("expected CodeColumn 'code', got '%s'", config.CodeColumn)
	}
	if config.NameColumn != "name" {
		t.Errorf("expected NameColumn 'name', got '%s'", config.NameColumn)
	}
	if config.TypeColumn != "type" {
		t.Errorf("expected TypeColumn 'type', got '%s'", config.TypeColumn)
	}
	if !config.HasHeader {
		t.Error("expected HasHeader to be true")
	}
	if config.Delimiter != ',' {
		t.Errorf("expected Delimiter ',', got '%c'", config.Delimiter)
	}

	// Test aliases
	if len(config.ColumnAliases) == 0 {
		t.Error("expected column aliases to be set")
	}
	if config.ColumnAliases["account_code"] != "code" {
		t.Error("expected 'account_code' alias to map to 'code'")
	}
	if config.ColumnAliases["account_name"] != "name" {
		t.Error("expected 'account_name' alias to map to 'name'")
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		t.Errorf("account parser config should be valid: %v", err)
	}
}

func TestCreateAccountParserConfigQuickBooks(t *testing.T) {
	config, err := CreateAccountParserConfig("quickbooks")
	if err != nil {
		t.Fatalf("failed to create quickbooks config: %v", err)
	}

	if config.CodeColumn != "AcctNum" {
		t.Errorf("expected CodeColumn 'AcctNum', got '%s'", config.CodeColumn)
	}
	if config.TypeColumn != "AccountType" {
		t.Errorf("expected TypeColumn 'AccountType', got '%s'", config.TypeColumn)
	}

	// The preset must stay untouched when the returned copy is modified
	config.ColumnAliases["custom"] = "AcctNum"
	fresh, err := CreateAccountParserConfig("quickbooks")
	if err != nil {
		t.Fatalf("failed to create second quickbooks config: %v", err)
	}
	if _, exists := fresh.ColumnAliases["custom"]; exists {
		t.Error("modifying a returned config should not affect the preset")
	}
}

func TestCreateAccountParserConfigUnknownFormat(t *testing.T) {
	if _, err := CreateAccountParserConfig("xero"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCreateTransactionParserConfig(t *testing.T) {
	config, err := CreateTransactionParserConfig()
	if err != nil {
		t.Fatalf("failed to create transaction parser config: %v", err)
	}

	if config.IDColumn != "id" {
		t.Errorf("expected IDColumn 'id', got '%s'", config.IDColumn)
	}
	if config.AccountCodeColumn != "accountCode" {
		t.Errorf("expected AccountCodeColumn 'accountCode', got '%s'", config.AccountCodeColumn)
	}
	if config.AmountColumn != "amount" {
		t.Errorf("expected AmountColumn 'amount', got '%s'", config.AmountColumn)
	}
	if config.TimestampColumn != "timestamp" {
		t.Errorf("expected TimestampColumn 'timestamp', got '%s'", config.TimestampColumn)
	}
	if !config.HasHeader {
		t.Error("expected HasHeader to be true")
	}

	// Test aliases
	if config.ColumnAliases["transaction_id"] != "id" {
		t.Error("expected 'transaction_id' alias to map to 'id'")
	}
	if config.ColumnAliases["date"] != "timestamp" {
		t.Error("expected 'date' alias to map to 'timestamp'")
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		t.Errorf("transaction parser config should be valid: %v", err)
	}
}

func TestCreateMatchingConfig(t *testing.T) {
	tests := []struct {
		name        string
		profile     string
		minScore    float64
		expectError bool
		wantScore   float64
	}{
		{
			name:      "default profile keeps threshold",
			profile:   "default",
			minScore:  -1,
			wantScore: 0.9,
		},
		{
			name:      "empty profile falls back to default",
			profile:   "",
			minScore:  -1,
			wantScore: 0.9,
		},
		{
			name:      "strict profile",
			profile:   "strict",
			minScore:  -1,
			wantScore: 0.95,
		},
		{
			name:      "relaxed profile",
			profile:   "relaxed",
			minScore:  -1,
			wantScore: 0.7,
		},
		{
			name:      "explicit threshold overrides profile",
			profile:   "default",
			minScore:  0.85,
			wantScore: 0.85,
		},
		{
			name:        "unknown profile",
			profile:     "aggressive",
			minScore:    -1,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := CreateMatchingConfig(tt.profile, tt.minScore, -1, -1, -1, -1)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.MinScore != tt.wantScore {
				t.Errorf("expected MinScore %v, got %v", tt.wantScore, config.MinScore)
			}
		})
	}
}

func TestCreateMatchingConfigWeightOverrides(t *testing.T) {
	config, err := CreateMatchingConfig("default", -1, 0.5, 0.3, 0.1, 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Weights.CodeWeight != 0.5 {
		t.Errorf("expected CodeWeight 0.5, got %v", config.Weights.CodeWeight)
	}
	if config.Weights.NameWeight != 0.3 {
		t.Errorf("expected NameWeight 0.3, got %v", config.Weights.NameWeight)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("overridden config should be valid: %v", err)
	}
}

func TestCreateDetectorConfig(t *testing.T) {
	// Zero values keep defaults
	config := CreateDetectorConfig(0, 0)
	if config.ZScoreThreshold != 3.0 {
		t.Errorf("expected default ZScoreThreshold 3.0, got %v", config.ZScoreThreshold)
	}
	if config.MinGroupSize != 3 {
		t.Errorf("expected default MinGroupSize 3, got %v", config.MinGroupSize)
	}

	// Explicit values override
	config = CreateDetectorConfig(2.5, 5)
	if config.ZScoreThreshold != 2.5 {
		t.Errorf("expected ZScoreThreshold 2.5, got %v", config.ZScoreThreshold)
	}
	if config.MinGroupSize != 5 {
		t.Errorf("expected MinGroupSize 5, got %v", config.MinGroupSize)
	}
}

func TestCreatePipelineConfig(t *testing.T) {
	detector := CreateDetectorConfig(2.5, 4)
	config := CreatePipelineConfig(detector, 30, 50, 2*time.Second)

	if config.Detector.ZScoreThreshold != 2.5 {
		t.Errorf("expected detector threshold 2.5, got %v", config.Detector.ZScoreThreshold)
	}
	if config.ReviewRouting.ManualReviewPercent != 30 {
		t.Errorf("expected ManualReviewPercent 30, got %v", config.ReviewRouting.ManualReviewPercent)
	}
	if config.ReviewRouting.AutoAcceptPercent != 50 {
		t.Errorf("expected AutoAcceptPercent 50, got %v", config.ReviewRouting.AutoAcceptPercent)
	}
	if config.ExplainTimeout != 2*time.Second {
		t.Errorf("expected ExplainTimeout 2s, got %v", config.ExplainTimeout)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("pipeline config should be valid: %v", err)
	}

	// Zero timeout keeps the default
	config = CreatePipelineConfig(detector, 100, 0, 0)
	if config.ExplainTimeout <= 0 {
		t.Error("expected a positive default ExplainTimeout")
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format     string
		wantFormat reporter.OutputFormat
	}{
		{"console", reporter.FormatConsole},
		{"json", reporter.FormatJSON},
		{"csv", reporter.FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config, err := CreateReportConfig(tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.wantFormat {
				t.Errorf("expected format %v, got %v", tt.wantFormat, config.Format)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}

	if _, err := CreateReportConfig("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestValidateConfigs(t *testing.T) {
	accountConfig, _ := CreateAccountParserConfig("standard")
	transactionConfig, _ := CreateTransactionParserConfig()
	matchingConfig, _ := CreateMatchingConfig("default", -1, -1, -1, -1, -1)

	if err := ValidateConfigs(accountConfig, transactionConfig, matchingConfig); err != nil {
		t.Errorf("valid configs should pass: %v", err)
	}

	// Nil configs are skipped
	if err := ValidateConfigs(nil, nil, nil); err != nil {
		t.Errorf("nil configs should pass: %v", err)
	}

	// Broken parser config fails
	accountConfig.CodeColumn = ""
	if err := ValidateConfigs(accountConfig, nil, nil); err == nil {
		t.Error("expected error for empty code column")
	}
}
