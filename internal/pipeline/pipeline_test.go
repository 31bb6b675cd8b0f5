package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/pkg/logger"
)

func makeTransaction(id, accountCode, category string, amount float64, timestamp time.Time) *models.TransactionRecord {
	return &models.TransactionRecord{
		ID:          id,
		AccountCode: accountCode,
		Amount:      decimal.NewFromFloat(amount),
		Timestamp:   timestamp,
		Type:        models.TransactionTypeExpense,
		Category:    category,
	}
}

// fixtureSet builds a batch with one obvious outlier on account 5000.
func fixtureSet() ([]*models.TransactionRecord, []*models.AccountRecord) {
	ts := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	amounts := []float64{1000, 1100, 900, 1050, 950, 10000}

	transactions := make([]*models.TransactionRecord, 0, len(amounts))
	for i, amount := range amounts {
		transactions = append(transactions, makeTransaction(
			fmt.Sprintf("tx-%d", i+1), "5000", "supplies", amount, ts.AddDate(0, 0, i)))
	}

	accounts := []*models.AccountRecord{
		{Code: "5000", Name: "Office Supplies", Type: models.AccountTypeExpense},
	}

	return transactions, accounts
}

func TestProcessEndToEnd(t *testing.T) {
	transactions, accounts := fixtureSet()
	p := NewPipeline(nil, nil, logger.Nop())

	result, err := p.Process(context.Background(), transactions, accounts)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(result.StageErrors) != 0 {
		t.Fatalf("Process() stage errors = %v", result.StageErrors)
	}

	var flagged []*models.AnomalyResult
	for _, outlier := range result.Outliers {
		if outlier.IsAnomaly {
			flagged = append(flagged, outlier)
		}
	}
	if len(flagged) != 1 || flagged[0].TransactionID != "tx-6" {
		t.Fatalf("flagged = %v, want exactly tx-6", flagged)
	}

	if len(result.Subledgers) != 1 {
		t.Fatalf("subledgers = %d, want 1", len(result.Subledgers))
	}
	if len(result.Subledgers[0].Anomalies) != 1 {
		t.Errorf("subledger anomalies = %d, want 1", len(result.Subledgers[0].Anomalies))
	}

	explanation, ok := result.Explanations["tx-6"]
	if !ok {
		t.Fatal("no explanation generated for tx-6")
	}
	if len(explanation.Summary) <= 10 {
		t.Errorf("explanation summary too short: %q", explanation.Summary)
	}

	if result.Performance.ProcessedTransactions != len(transactions) {
		t.Errorf("processed = %d, want %d", result.Performance.ProcessedTransactions, len(transactions))
	}
	if !result.Performance.ConfidenceThresholdMet {
		t.Error("confidence threshold not reported as met for an extreme outlier")
	}
}

func TestProcessEmptyInput(t *testing.T) {
	p := NewPipeline(nil, nil, logger.Nop())

	result, err := p.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(result.Outliers) != 0 || len(result.Subledgers) != 0 || len(result.Explanations) != 0 {
		t.Error("empty input produced non-empty collections")
	}
	if result.Performance.ProcessedTransactions != 0 {
		t.Errorf("processed = %d, want 0", result.Performance.ProcessedTransactions)
	}
	if result.Performance.ConfidenceThresholdMet {
		t.Error("confidence threshold met on empty input")
	}
}

func TestProcessInvalidRouting(t *testing.T) {
	config := DefaultPipelineConfig()
	config.ReviewRouting = ReviewRouting{ManualReviewPercent: 80, AutoAcceptPercent: 40}
	p := NewPipeline(config, nil, logger.Nop())

	_, err := p.Process(context.Background(), nil, nil)
	if err == nil {
		t.Error("Process() with routing above 100 percent did not return an error")
	}
}

func TestProcessRouting(t *testing.T) {
	ts := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	var transactions []*models.TransactionRecord
	// four groups, each with one outlier
	for g := 0; g < 4; g++ {
		code := fmt.Sprintf("%d000", g+1)
		for i, amount := range []float64{100, 110, 90, 105, 95, float64(5000 * (g + 1))} {
			transactions = append(transactions, makeTransaction(
				fmt.Sprintf("%s-tx-%d", code, i+1), code, "ops", amount, ts))
		}
	}

	config := DefaultPipelineConfig()
	config.ReviewRouting = ReviewRouting{ManualReviewPercent: 50, AutoAcceptPercent: 50}
	p := NewPipeline(config, nil, logger.Nop())

	result, err := p.Process(context.Background(), transactions, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	flaggedTotal := len(result.ManualReview) + len(result.AutoAccepted) + len(result.Unrouted)
	if flaggedTotal != 4 {
		t.Fatalf("routed %d anomalies, want 4", flaggedTotal)
	}
	if len(result.ManualReview) != 2 {
		t.Errorf("manual review = %d, want 2", len(result.ManualReview))
	}
	if len(result.AutoAccepted) != 2 {
		t.Errorf("auto accepted = %d, want 2", len(result.AutoAccepted))
	}
	if len(result.Unrouted) != 0 {
		t.Errorf("unrouted = %d, want 0", len(result.Unrouted))
	}

	// manual review takes the most confident anomalies first
	for _, manual := range result.ManualReview {
		for _, auto := range result.AutoAccepted {
			if auto.Confidence > manual.Confidence {
				t.Errorf("auto-accepted %s more confident than manual %s",
					auto.TransactionID, manual.TransactionID)
			}
		}
	}
}

func TestProcessDeterministicUnderConcurrency(t *testing.T) {
	transactions, accounts := fixtureSet()
	p := NewPipeline(nil, nil, logger.Nop())

	baseline, err := p.Process(context.Background(), transactions, accounts)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := p.Process(context.Background(), transactions, accounts)
			if err != nil {
				errs <- err
				return
			}
			if len(result.Outliers) != len(baseline.Outliers) {
				errs <- fmt.Errorf("outlier count %d != baseline %d", len(result.Outliers), len(baseline.Outliers))
				return
			}
			for j := range result.Outliers {
				if result.Outliers[j].TransactionID != baseline.Outliers[j].TransactionID ||
					result.Outliers[j].ZScore != baseline.Outliers[j].ZScore {
					errs <- fmt.Errorf("outlier %d differs from baseline", j)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestProcessModestBatchLatency(t *testing.T) {
	ts := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	var transactions []*models.TransactionRecord
	for i := 0; i < 30; i++ {
		amount := 100 + float64(i%5)
		if i == 29 {
			amount = 50000
		}
		transactions = append(transactions, makeTransaction(
			fmt.Sprintf("tx-%d", i), "5000", "ops", amount, ts))
	}

	p := NewPipeline(nil, nil, logger.Nop())

	start := time.Now()
	result, err := p.Process(context.Background(), transactions, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("processing 30 transactions took %v", elapsed)
	}
	if result.Performance.ProcessedTransactions != 30 {
		t.Errorf("processed = %d, want 30", result.Performance.ProcessedTransactions)
	}
}

func TestProcessIsolatesGeneratorFailure(t *testing.T) {
	transactions, accounts := fixtureSet()
	p := NewPipeline(nil, failingGenerator{}, logger.Nop())

	result, err := p.Process(context.Background(), transactions, accounts)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// the delegating generator falls back to templates, so explanations
	// still exist and no stage error is recorded
	if _, ok := result.Explanations["tx-6"]; !ok {
		t.Error("no fallback explanation for tx-6")
	}
	if len(result.StageErrors) != 0 {
		t.Errorf("stage errors = %v, want none", result.StageErrors)
	}
}

type failingGenerator struct{}

func (failingGenerator) Explain(context.Context, *models.AnomalyResult, *models.TransactionRecord) (*models.Explanation, error) {
	return nil, fmt.Errorf("generator backend offline")
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*PipelineConfig)
		wantErr bool
	}{
		{"default valid", func(*PipelineConfig) {}, false},
		{"routing sum above 100", func(c *PipelineConfig) {
			c.ReviewRouting = ReviewRouting{ManualReviewPercent: 70, AutoAcceptPercent: 50}
		}, true},
		{"negative routing percent", func(c *PipelineConfig) {
			c.ReviewRouting.ManualReviewPercent = -5
		}, true},
		{"confidence target above one", func(c *PipelineConfig) { c.ConfidenceTarget = 1.2 }, true},
		{"negative timeout", func(c *PipelineConfig) { c.ExplainTimeout = -time.Second }, true},
		{"bad detector", func(c *PipelineConfig) { c.Detector.MinGroupSize = 1 }, true},
		{"bad matcher weights", func(c *PipelineConfig) { c.Matching.Weights.CodeWeight = 2.0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultPipelineConfig()
			tt.modify(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
