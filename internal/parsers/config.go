package parsers

import (
	"fmt"
	"strings"
)

// AccountParserConfig maps the engine's account fields to the export's
// column names. ColumnAliases overrides individual standard names for
// exports that label columns differently.
type AccountParserConfig struct {
	CodeColumn       string            `json:"code_column"`
	NameColumn       string            `json:"name_column"`
	FullNameColumn   string            `json:"full_name_column"`
	TypeColumn       string            `json:"type_column"`
	ParentCodeColumn string            `json:"parent_code_column"`
	HasHeader        bool              `json:"has_header"`
	Delimiter        rune              `json:"delimiter"`
	ColumnAliases    map[string]string `json:"column_aliases,omitempty"`
}

// DefaultAccountParserConfig returns the column mapping for the standard
// account export format.
func DefaultAccountParserConfig() *AccountParserConfig {
	return &AccountParserConfig{
		CodeColumn:       "code",
		NameColumn:       "name",
		FullNameColumn:   "fullName",
		TypeColumn:       "type",
		ParentCodeColumn: "parentCode",
		HasHeader:        true,
		Delimiter:        ',',
		ColumnAliases:    make(map[string]string),
	}
}

// Validate checks if the account parser configuration is valid
func (apc *AccountParserConfig) Validate() error {
	if strings.TrimSpace(apc.CodeColumn) == "" {
		return fmt.Errorf("code column cannot be empty")
	}

	if strings.TrimSpace(apc.NameColumn) == "" {
		return fmt.Errorf("name column cannot be empty")
	}

	if strings.TrimSpace(apc.TypeColumn) == "" {
		return fmt.Errorf("type column cannot be empty")
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (apc *AccountParserConfig) GetColumnName(standardName string) string {
	if alias, ok := apc.ColumnAliases[standardName]; ok {
		return alias
	}

	switch standardName {
	case "code":
		return apc.CodeColumn
	case "name":
		return apc.NameColumn
	case "full_name":
		return apc.FullNameColumn
	case "type":
		return apc.TypeColumn
	case "parent_code":
		return apc.ParentCodeColumn
	default:
		return standardName
	}
}

// TransactionParserConfig maps the engine's transaction fields to the
// export's column names.
type TransactionParserConfig struct {
	IDColumn          string            `json:"id_column"`
	AccountCodeColumn string            `json:"account_code_column"`
	AmountColumn      string            `json:"amount_column"`
	TimestampColumn   string            `json:"timestamp_column"`
	TypeColumn        string            `json:"type_column"`
	CategoryColumn    string            `json:"category_column"`
	HasHeader         bool              `json:"has_header"`
	Delimiter         rune              `json:"delimiter"`
	ColumnAliases     map[string]string `json:"column_aliases,omitempty"`
}

// DefaultTransactionParserConfig returns the column mapping for the
// standard transaction export format.
func DefaultTransactionParserConfig() *TransactionParserConfig {
	return &TransactionParserConfig{
		IDColumn:          "id",
		AccountCodeColumn: "accountCode",
		AmountColumn:      "amount",
		TimestampColumn:   "timestamp",
		TypeColumn:        "type",
		CategoryColumn:    "category",
		HasHeader:         true,
		Delimiter:         ',',
		ColumnAliases:     make(map[string]string),
	}
}

// Validate checks if the transaction parser configuration is valid
func (tpc *TransactionParserConfig) Validate() error {
	if strings.TrimSpace(tpc.IDColumn) == "" {
		return fmt.Errorf("id column cannot be empty")
	}

	if strings.TrimSpace(tpc.AccountCodeColumn) == "" {
		return fmt.Errorf("account code column cannot be empty")
	}

	if strings.TrimSpace(tpc.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}

	if strings.TrimSpace(tpc.TimestampColumn) == "" {
		return fmt.Errorf("timestamp column cannot be empty")
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (tpc *TransactionParserConfig) GetColumnName(standardName string) string {
	if alias, ok := tpc.ColumnAliases[standardName]; ok {
		return alias
	}

	switch standardName {
	case "id":
		return tpc.IDColumn
	case "account_code":
		return tpc.AccountCodeColumn
	case "amount":
		return tpc.AmountColumn
	case "timestamp":
		return tpc.TimestampColumn
	case "type":
		return tpc.TypeColumn
	case "category":
		return tpc.CategoryColumn
	default:
		return standardName
	}
}

// QuickBooksAccountConfig maps the column names QuickBooks uses in its
// chart-of-accounts exports.
var QuickBooksAccountConfig = &AccountParserConfig{
	CodeColumn:       "AcctNum",
	NameColumn:       "Name",
	FullNameColumn:   "FullyQualifiedName",
	TypeColumn:       "AccountType",
	ParentCodeColumn: "ParentRef",
	HasHeader:        true,
	Delimiter:        ',',
}

// GetAccountParserConfig returns a predefined account export configuration
// by name, nil when unknown.
func GetAccountParserConfig(name string) *AccountParserConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "":
		return DefaultAccountParserConfig()
	case "quickbooks":
		return QuickBooksAccountConfig
	default:
		return nil
	}
}
