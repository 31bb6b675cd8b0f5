package parsers

import (
	"context"
	"io"

	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/pkg/errors"
	"account-reconciliation-service/pkg/logger"
)

// AccountParser reads chart-of-accounts CSV exports.
type AccountParser struct {
	*baseParser
	config *AccountParserConfig
	logger logger.Logger
}

// NewAccountParser creates an account parser with the given column
// mapping. A nil configuration selects the standard export format.
func NewAccountParser(config *AccountParserConfig) (*AccountParser, error) {
	if config == nil {
		config = DefaultAccountParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "account_parser_config", config, err).
			WithSuggestion("Check the account parser column mapping")
	}

	readerConfig := DefaultReaderConfig()
	readerConfig.HasHeader = config.HasHeader
	readerConfig.Delimiter = config.Delimiter

	return &AccountParser{
		baseParser: newBaseParser(readerConfig, "account_parser"),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("account_parser"),
	}, nil
}

// ParseAccounts parses a CSV file containing a chart of accounts.
func (ap *AccountParser) ParseAccounts(filePath string) ([]*models.AccountRecord, *ParseStats, error) {
	return ap.ParseAccountsWithContext(context.Background(), filePath)
}

// ParseAccountsWithContext parses accounts with cancellation support. Rows
// that fail to parse are recorded in the returned stats; only file-level
// problems produce an error.
func (ap *AccountParser) ParseAccountsWithContext(ctx context.Context, filePath string) ([]*models.AccountRecord, *ParseStats, error) {
	ap.logger.WithField("file_path", filePath).Info("starting account parsing")

	file, reader, err := ap.openFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	state := newParseState(ctx)
	stats := NewParseStats()

	required := []string{
		ap.config.GetColumnName("code"),
		ap.config.GetColumnName("name"),
		ap.config.GetColumnName("type"),
	}
	if err := ap.readHeaders(reader, state, required); err != nil {
		return nil, stats, err
	}

	var accounts []*models.AccountRecord

	for {
		record, err := ap.readRecord(reader, state)
		if err != nil {
			if err == io.EOF {
				break
			}
			if state.cancelled() {
				return accounts, stats, err
			}
			stats.AddError(&RowError{Line: state.lineNumber, Message: "unreadable CSV record", Err: err})
			continue
		}

		stats.RecordsParsed++

		account, rowErr := ap.accountFromRecord(record, state)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}

		accounts = append(accounts, account)
		stats.RecordsValid++
	}

	stats.TotalLines = state.lineNumber

	ap.logger.WithFields(logger.Fields{
		"file_path":     filePath,
		"total_lines":   stats.TotalLines,
		"records_valid": stats.RecordsValid,
		"error_count":   len(stats.Errors),
	}).Info("account parsing completed")

	if stats.HasErrors() {
		ap.logger.WithField("sample_errors", stats.SampleErrors(3)).Warn("encountered errors during account parsing")
	}

	return accounts, stats, nil
}

func (ap *AccountParser) accountFromRecord(record []string, state *parseState) (*models.AccountRecord, *RowError) {
	code, err := ap.fieldValue(record, state, ap.config.GetColumnName("code"), true)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "code", Message: "missing account code", Err: err}
	}

	name, err := ap.fieldValue(record, state, ap.config.GetColumnName("name"), true)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "name", Message: "missing account name", Err: err}
	}

	typeStr, err := ap.fieldValue(record, state, ap.config.GetColumnName("type"), true)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "type", Message: "missing account type", Err: err}
	}

	fullName, _ := ap.fieldValue(record, state, ap.config.GetColumnName("full_name"), false)
	parentCode, _ := ap.fieldValue(record, state, ap.config.GetColumnName("parent_code"), false)

	account, err := models.CreateAccountFromCSV(code, name, fullName, typeStr, parentCode)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "type", Value: typeStr, Message: "invalid account record", Err: err}
	}

	if err := account.Validate(); err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "code", Value: code, Message: "account validation failed", Err: err}
	}

	return account, nil
}
