// Package models defines the immutable input records and result types shared
// by the reconciliation and anomaly analysis engines.
//
// Input records (AccountRecord, TransactionRecord, HistoricalStats) are
// produced by external sync and aggregation layers and consumed read-only.
// Result records (MatchResult, AnomalyResult, SubledgerAnalysis, Explanation)
// are created fresh per invocation and hold no references to engine state.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeReceivable AccountType = "accounts_receivable"
	AccountTypePayable    AccountType = "accounts_payable"
	AccountTypeRevenue    AccountType = "revenue"
	AccountTypeExpense    AccountType = "expense"
	AccountTypeOther      AccountType = "other"
)

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// IsValid checks if the account type is one of the closed classifications
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeBank, AccountTypeReceivable, AccountTypePayable,
		AccountTypeRevenue, AccountTypeExpense, AccountTypeOther:
		return true
	default:
		return false
	}
}

// ParseAccountType parses and validates an account type from string,
// accepting common aliases found in chart-of-accounts exports.
func ParseAccountType(s string) (AccountType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")

	switch s {
	case "bank", "cash", "checking", "savings":
		return AccountTypeBank, nil
	case "accounts_receivable", "receivable", "ar", "a/r":
		return AccountTypeReceivable, nil
	case "accounts_payable", "payable", "ap", "a/p":
		return AccountTypePayable, nil
	case "revenue", "income", "sales":
		return AccountTypeRevenue, nil
	case "expense", "expenses", "cost":
		return AccountTypeExpense, nil
	case "other", "equity", "asset", "liability":
		return AccountTypeOther, nil
	default:
		return "", fmt.Errorf("invalid account type '%s'", s)
	}
}

// TransactionType classifies the direction and nature of a transaction.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeIncome     TransactionType = "income"
	TransactionTypeExpense    TransactionType = "expense"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeIncome, TransactionTypeExpense:
		return true
	default:
		return false
	}
}

// ParseTransactionType parses and validates a transaction type from string
func ParseTransactionType(s string) (TransactionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "deposit", "dep", "credit", "cr":
		return TransactionTypeDeposit, nil
	case "withdrawal", "wd", "debit", "dr":
		return TransactionTypeWithdrawal, nil
	case "income", "inc":
		return TransactionTypeIncome, nil
	case "expense", "exp":
		return TransactionTypeExpense, nil
	default:
		return "", fmt.Errorf("invalid transaction type '%s'", s)
	}
}

// Severity classifies how far outside its statistical baseline an anomalous
// transaction falls.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// RiskLevel classifies an explanation's recommended review urgency.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

// IsValid checks if the risk level is valid
func (r RiskLevel) IsValid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// AccountRecord represents one account in a chart-of-accounts export.
// FullName carries the hierarchical path from root to leaf, delimited by
// ':' or '/' depending on the source system.
type AccountRecord struct {
	Code       string      `json:"code" csv:"code"`
	Name       string      `json:"name" csv:"name"`
	FullName   string      `json:"fullName" csv:"fullName"`
	Type       AccountType `json:"type" csv:"type"`
	ParentCode string      `json:"parentCode,omitempty" csv:"parentCode"`
}

// NewAccountRecord creates a new AccountRecord instance
func NewAccountRecord(code, name, fullName string, accType AccountType) *AccountRecord {
	return &AccountRecord{
		Code:     code,
		Name:     name,
		FullName: fullName,
		Type:     accType,
	}
}

// Validate performs basic validation on the AccountRecord
func (a *AccountRecord) Validate() error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("account code cannot be empty")
	}

	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account name cannot be empty")
	}

	if !a.Type.IsValid() {
		return fmt.Errorf("invalid account type: %s", a.Type)
	}

	return nil
}

// HierarchyPath splits FullName into path segments, root first.
// Both ':' and '/' delimiters are recognized. An empty FullName falls back
// to the display name as a single-segment path.
func (a *AccountRecord) HierarchyPath() []string {
	full := strings.TrimSpace(a.FullName)
	if full == "" {
		if a.Name == "" {
			return nil
		}
		return []string{a.Name}
	}

	sep := ":"
	if !strings.Contains(full, ":") && strings.Contains(full, "/") {
		sep = "/"
	}

	raw := strings.Split(full, sep)
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// ParentPath returns the hierarchy path without the leaf segment.
func (a *AccountRecord) ParentPath() []string {
	path := a.HierarchyPath()
	if len(path) <= 1 {
		return nil
	}
	return path[:len(path)-1]
}

// String returns a string representation of the AccountRecord
func (a *AccountRecord) String() string {
	return fmt.Sprintf("AccountRecord{Code: %s, Name: %s, Type: %s}", a.Code, a.Name, a.Type)
}

// TransactionRecord represents one transaction in a ledger export.
type TransactionRecord struct {
	ID          string          `json:"id" csv:"id"`
	AccountCode string          `json:"accountCode" csv:"accountCode"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
	Timestamp   time.Time       `json:"timestamp" csv:"timestamp"`
	Type        TransactionType `json:"type" csv:"type"`
	Category    string          `json:"category,omitempty" csv:"category"`
}

// NewTransactionRecord creates a new TransactionRecord instance
func NewTransactionRecord(id, accountCode string, amount decimal.Decimal, ts time.Time, txType TransactionType) *TransactionRecord {
	return &TransactionRecord{
		ID:          id,
		AccountCode: accountCode,
		Amount:      amount,
		Timestamp:   ts,
		Type:        txType,
	}
}

// Validate performs basic validation on the TransactionRecord
func (t *TransactionRecord) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if strings.TrimSpace(t.AccountCode) == "" {
		return fmt.Errorf("transaction account code cannot be empty")
	}

	if !t.Type.IsValid() {
		return fmt.Errorf("invalid transaction type: %s", t.Type)
	}

	if t.Timestamp.IsZero() {
		return fmt.Errorf("transaction timestamp cannot be zero")
	}

	return nil
}

// AbsAmount returns the absolute value of the transaction amount
func (t *TransactionRecord) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// String returns a string representation of the TransactionRecord
func (t *TransactionRecord) String() string {
	return fmt.Sprintf("TransactionRecord{ID: %s, Account: %s, Amount: %s, Type: %s, Time: %s}",
		t.ID, t.AccountCode, t.Amount.String(), t.Type, t.Timestamp.Format(time.RFC3339))
}

// HistoricalStats carries externally aggregated per-account baselines.
// When supplied to the outlier detector they take precedence over
// statistics computed from the batch itself.
type HistoricalStats struct {
	AccountCode string          `json:"accountCode"`
	AvgAmount   decimal.Decimal `json:"avgAmount"`
	StdDev      decimal.Decimal `json:"stdDev"`
	Frequency   int             `json:"frequency"`
}

// Validate performs basic validation on the HistoricalStats
func (h *HistoricalStats) Validate() error {
	if strings.TrimSpace(h.AccountCode) == "" {
		return fmt.Errorf("historical stats account code cannot be empty")
	}

	if h.StdDev.IsNegative() {
		return fmt.Errorf("historical standard deviation cannot be negative")
	}

	if h.Frequency < 0 {
		return fmt.Errorf("historical frequency cannot be negative")
	}

	return nil
}

// MatchFactors breaks a composite account match score down into its
// individual similarity components. All factors are in [0,1].
type MatchFactors struct {
	CodeScore      float64 `json:"codeScore"`
	NameScore      float64 `json:"nameScore"`
	HierarchyScore float64 `json:"hierarchyScore"`
	TypeScore      float64 `json:"typeScore"`
}

// MatchResult represents one reconciled account pair across two systems.
type MatchResult struct {
	Source  *AccountRecord `json:"source"`
	Target  *AccountRecord `json:"target"`
	Score   float64        `json:"score"`
	Factors MatchFactors   `json:"matchFactors"`
}

// String returns a string representation of the MatchResult
func (m *MatchResult) String() string {
	return fmt.Sprintf("MatchResult{%s -> %s, Score: %.4f}", m.Source.Code, m.Target.Code, m.Score)
}

// StatisticalData carries the baseline used to score one transaction.
type StatisticalData struct {
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"standardDeviation"`
	Threshold float64 `json:"threshold"`
}

// AnomalyResult represents the statistical assessment of one transaction
// against its group baseline.
type AnomalyResult struct {
	TransactionID string          `json:"transactionId"`
	IsAnomaly     bool            `json:"isAnomaly"`
	ZScore        float64         `json:"zScore"`
	Confidence    float64         `json:"confidence"`
	Stats         StatisticalData `json:"statisticalData"`
	Explanation   string          `json:"explanation"`
	Severity      Severity        `json:"severity,omitempty"`
}

// PatternSummary summarizes the transaction pattern within a subledger group.
type PatternSummary struct {
	AverageAmount decimal.Decimal `json:"averageAmount"`
	Frequency     int             `json:"frequency"`
	Seasonality   float64         `json:"seasonality"`
}

// SubledgerAnalysis carries the per-(category, account type) pattern summary
// and the anomalies detected within that group.
type SubledgerAnalysis struct {
	Category    string           `json:"category"`
	AccountType AccountType      `json:"accountType"`
	Patterns    PatternSummary   `json:"patterns"`
	Anomalies   []*AnomalyResult `json:"anomalies"`
}

// Explanation is a structured, risk-classified account of one anomaly,
// suitable for direct display to a reviewer.
type Explanation struct {
	Summary         string    `json:"summary"`
	Reasoning       []string  `json:"reasoning"`
	Confidence      float64   `json:"confidence"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Recommendations []string  `json:"recommendations"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// PipelinePerformance reports aggregate throughput and quality metrics for
// one pipeline invocation.
type PipelinePerformance struct {
	ProcessedTransactions  int   `json:"processedTransactions"`
	ProcessingTimeMs       int64 `json:"processingTimeMs"`
	ConfidenceThresholdMet bool  `json:"confidenceThresholdMet"`
}

// Utility functions for type conversion and validation

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"01/02/2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// CreateAccountFromCSV creates an AccountRecord from CSV field values
func CreateAccountFromCSV(code, name, fullName, typeStr, parentCode string) (*AccountRecord, error) {
	accType, err := ParseAccountType(typeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid account type in CSV: %w", err)
	}

	account := &AccountRecord{
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
		FullName:   strings.TrimSpace(fullName),
		Type:       accType,
		ParentCode: strings.TrimSpace(parentCode),
	}

	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("invalid account data: %w", err)
	}

	return account, nil
}

// CreateTransactionFromCSV creates a TransactionRecord from CSV field values
func CreateTransactionFromCSV(id, accountCode, amountStr, timeStr, typeStr, category string) (*TransactionRecord, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	ts, err := ParseTimeWithFormats(timeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp in CSV: %w", err)
	}

	// Exports without a type column get the type inferred from the sign
	var txType TransactionType
	if strings.TrimSpace(typeStr) == "" {
		txType = TransactionTypeIncome
		if amount.IsNegative() {
			txType = TransactionTypeExpense
		}
	} else {
		txType, err = ParseTransactionType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction type in CSV: %w", err)
		}
	}

	tx := &TransactionRecord{
		ID:          strings.TrimSpace(id),
		AccountCode: strings.TrimSpace(accountCode),
		Amount:      amount,
		Timestamp:   ts,
		Type:        txType,
		Category:    strings.TrimSpace(category),
	}

	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction data: %w", err)
	}

	return tx, nil
}

// ClampScore clamps a score or confidence value to [0,1].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
