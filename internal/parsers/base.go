// Package parsers reads chart-of-accounts and transaction exports from CSV
// files into the engine's data model.
//
// Exports from different systems disagree on column names, header
// presence, and delimiters, so both parsers take a configurable column
// mapping with aliases. Rows that fail to parse or validate are collected
// into ParseStats rather than aborting the file; the caller decides how
// many bad rows are acceptable.
package parsers

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"account-reconciliation-service/pkg/errors"
	"account-reconciliation-service/pkg/logger"
)

// RowError records one failed CSV row.
type RowError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row error at line %d (%s=%q): %s: %v", e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("row error at line %d (%s=%q): %s", e.Line, e.Field, e.Value, e.Message)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseStats summarizes one parsing run: how many rows were seen, how many
// produced valid records, and the per-row failures.
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	RecordsValid  int
	Errors        []*RowError
}

// NewParseStats creates an empty stats collector.
func NewParseStats() *ParseStats {
	return &ParseStats{Errors: make([]*RowError, 0)}
}

// AddError records a failed row.
func (ps *ParseStats) AddError(err *RowError) {
	ps.Errors = append(ps.Errors, err)
}

// HasErrors reports whether any row failed.
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// String returns a human-readable summary of the run.
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records (%d valid), %d errors",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsValid, len(ps.Errors))
}

// SampleErrors returns up to maxSamples row errors for logging.
func (ps *ParseStats) SampleErrors(maxSamples int) []string {
	limit := len(ps.Errors)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Errors[i].Error())
	}
	return samples
}

// ReaderConfig holds the CSV-level settings shared by both parsers.
type ReaderConfig struct {
	HasHeader        bool
	Delimiter        rune
	SkipEmptyRows    bool
	ValidateEncoding bool
}

// DefaultReaderConfig returns a configuration for comma-separated files
// with a header row.
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		HasHeader:        true,
		Delimiter:        ',',
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// baseParser carries the CSV plumbing shared by the account and
// transaction parsers.
type baseParser struct {
	config *ReaderConfig
	logger logger.Logger
}

func newBaseParser(config *ReaderConfig, component string) *baseParser {
	if config == nil {
		config = DefaultReaderConfig()
	}

	return &baseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent(component),
	}
}

// parseState tracks position and header layout while reading one file.
type parseState struct {
	lineNumber int
	headers    []string
	headerMap  map[string]int
	ctx        context.Context
}

func newParseState(ctx context.Context) *parseState {
	if ctx == nil {
		ctx = context.Background()
	}
	return &parseState{
		headerMap: make(map[string]int),
		ctx:       ctx,
	}
}

func (ps *parseState) cancelled() bool {
	select {
	case <-ps.ctx.Done():
		return true
	default:
		return false
	}
}

// columnIndex resolves a column name case-insensitively, -1 when absent.
func (ps *parseState) columnIndex(name string) int {
	if index, ok := ps.headerMap[name]; ok {
		return index
	}

	lower := strings.ToLower(name)
	for header, index := range ps.headerMap {
		if strings.ToLower(header) == lower {
			return index
		}
	}
	return -1
}

// openFile opens the CSV file and configures a reader for it.
func (bp *baseParser) openFile(filePath string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("failed to open CSV file")

		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(file, filePath); err != nil {
			file.Close()
			return nil, nil, err
		}
		if _, err := file.Seek(0, 0); err != nil {
			file.Close()
			return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// validateEncoding checks the leading lines for valid UTF-8.
func (bp *baseParser) validateEncoding(file *os.File, filePath string) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() && lineNum < 100 {
		lineNum++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.ParseError(
				errors.CodeInvalidFormat,
				filePath,
				lineNum,
				"encoding",
				"",
				fmt.Errorf("invalid UTF-8 encoding detected"),
			).WithSuggestion("Save the file in UTF-8 encoding and try again")
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.FileError(errors.CodeFileNotFound, filePath, err)
	}
	return nil
}

// readHeaders consumes the header row (or installs the expected names when
// the file has none) and verifies the required columns are present.
func (bp *baseParser) readHeaders(reader *csv.Reader, state *parseState, required []string) error {
	if !bp.config.HasHeader {
		state.headers = append([]string(nil), required...)
		bp.buildHeaderMap(state)
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.ValidationError(errors.CodeMissingField, "file_content", "empty", nil).
				WithSuggestion("Ensure the file contains header and data rows")
		}
		return errors.ParseError(errors.CodeInvalidFormat, "", 1, "headers", "", err).
			WithSuggestion("Check the file format and ensure it's a valid CSV")
	}

	state.lineNumber++
	state.headers = make([]string, len(headers))
	for i, header := range headers {
		state.headers[i] = strings.TrimSpace(header)
	}
	bp.buildHeaderMap(state)

	var missing []string
	for _, name := range required {
		if state.columnIndex(name) == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.ParseError(
			errors.CodeMissingColumn,
			"",
			state.lineNumber,
			"headers",
			strings.Join(missing, ", "),
			nil,
		).WithSuggestion(fmt.Sprintf("Ensure the CSV file contains these headers: %s", strings.Join(missing, ", ")))
	}

	return nil
}

func (bp *baseParser) buildHeaderMap(state *parseState) {
	state.headerMap = make(map[string]int, len(state.headers))
	for i, header := range state.headers {
		state.headerMap[header] = i
	}
}

// readRecord returns the next non-empty record, io.EOF at end of file.
func (bp *baseParser) readRecord(reader *csv.Reader, state *parseState) ([]string, error) {
	for {
		if state.cancelled() {
			return nil, errors.InternalError(errors.CodeUnexpectedError, "csv_parsing",
				fmt.Errorf("parsing cancelled"))
		}

		record, err := reader.Read()
		if err != nil {
			return nil, err
		}

		state.lineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		return record, nil
	}
}

// fieldValue retrieves a named field from the record; optional columns
// return "" when absent.
func (bp *baseParser) fieldValue(record []string, state *parseState, fieldName string, required bool) (string, error) {
	index := state.columnIndex(fieldName)
	if index == -1 || index >= len(record) {
		if !required {
			return "", nil
		}
		return "", errors.ParseError(
			errors.CodeMissingColumn,
			"",
			state.lineNumber,
			fieldName,
			"",
			fmt.Errorf("field %q not present in record", fieldName),
		).WithSuggestion("Check that all rows have the same columns as the header")
	}

	return strings.TrimSpace(record[index]), nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
