package parsers

import (
	"context"
	"io"

	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/pkg/errors"
	"account-reconciliation-service/pkg/logger"
)

// TransactionParser reads transaction CSV exports.
type TransactionParser struct {
	*baseParser
	config *TransactionParserConfig
	logger logger.Logger
}

// NewTransactionParser creates a transaction parser with the given column
// mapping. A nil configuration selects the standard export format.
func NewTransactionParser(config *TransactionParserConfig) (*TransactionParser, error) {
	if config == nil {
		config = DefaultTransactionParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "transaction_parser_config", config, err).
			WithSuggestion("Check the transaction parser column mapping")
	}

	readerConfig := DefaultReaderConfig()
	readerConfig.HasHeader = config.HasHeader
	readerConfig.Delimiter = config.Delimiter

	return &TransactionParser{
		baseParser: newBaseParser(readerConfig, "transaction_parser"),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("transaction_parser"),
	}, nil
}

// ParseTransactions parses a CSV file containing transactions.
func (tp *TransactionParser) ParseTransactions(filePath string) ([]*models.TransactionRecord, *ParseStats, error) {
	return tp.ParseTransactionsWithContext(context.Background(), filePath)
}

// ParseTransactionsWithContext parses transactions with cancellation
// support. Bad rows go into the stats; only file-level problems produce an
// error.
func (tp *TransactionParser) ParseTransactionsWithContext(ctx context.Context, filePath string) ([]*models.TransactionRecord, *ParseStats, error) {
	tp.logger.WithField("file_path", filePath).Info("starting transaction parsing")

	file, reader, err := tp.openFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	state := newParseState(ctx)
	stats := NewParseStats()

	required := []string{
		tp.config.GetColumnName("id"),
		tp.config.GetColumnName("account_code"),
		tp.config.GetColumnName("amount"),
		tp.config.GetColumnName("timestamp"),
	}
	if err := tp.readHeaders(reader, state, required); err != nil {
		return nil, stats, err
	}

	var transactions []*models.TransactionRecord

	for {
		record, err := tp.readRecord(reader, state)
		if err != nil {
			if err == io.EOF {
				break
			}
			if state.cancelled() {
				return transactions, stats, err
			}
			stats.AddError(&RowError{Line: state.lineNumber, Message: "unreadable CSV record", Err: err})
			continue
		}

		stats.RecordsParsed++

		transaction, rowErr := tp.transactionFromRecord(record, state)
		if rowErr != nil {
			stats.AddError(rowErr)
			continue
		}

		transactions = append(transactions, transaction)
		stats.RecordsValid++
	}

	stats.TotalLines = state.lineNumber

	tp.logger.WithFields(logger.Fields{
		"file_path":     filePath,
		"total_lines":   stats.TotalLines,
		"records_valid": stats.RecordsValid,
		"error_count":   len(stats.Errors),
	}).Info("transaction parsing completed")

	if stats.HasErrors() {
		tp.logger.WithField("sample_errors", stats.SampleErrors(3)).Warn("encountered errors during transaction parsing")
	}

	return transactions, stats, nil
}

func (tp *TransactionParser) transactionFromRecord(record []string, state *parseState) (*models.TransactionRecord, *RowError) {
	id, err := tp.fieldValue(record, state, tp.config.GetColumnName("id"), true)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "id", Message: "missing transaction id", Err: err}
	}

	accountCode, err := tp.fieldValue(record, state, tp.config.GetColumnName("account_code"), true)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "account_code", Message: "missing account code", Err: err}
	}

	amountStr, err := tp.fieldValue(record, state, tp.config.GetColumnName("amount"), true)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "amount", Message: "missing amount", Err: err}
	}

	timeStr, err := tp.fieldValue(record, state, tp.config.GetColumnName("timestamp"), true)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "timestamp", Message: "missing timestamp", Err: err}
	}

	typeStr, _ := tp.fieldValue(record, state, tp.config.GetColumnName("type"), false)
	category, _ := tp.fieldValue(record, state, tp.config.GetColumnName("category"), false)

	transaction, err := models.CreateTransactionFromCSV(id, accountCode, amountStr, timeStr, typeStr, category)
	if err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "amount", Value: amountStr, Message: "invalid transaction record", Err: err}
	}

	if err := transaction.Validate(); err != nil {
		return nil, &RowError{Line: state.lineNumber, Field: "id", Value: id, Message: "transaction validation failed", Err: err}
	}

	return transaction, nil
}
