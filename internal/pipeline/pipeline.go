// Package pipeline orchestrates the full analysis run: outlier detection
// across the transaction set, per-subledger pattern analysis, explanation
// generation for every flagged transaction, and review routing. Stage
// failures are isolated; a run returns whatever the healthy stages
// produced.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"account-reconciliation-service/internal/anomaly"
	"account-reconciliation-service/internal/explain"
	"account-reconciliation-service/internal/matcher"
	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/pkg/errors"
	"account-reconciliation-service/pkg/logger"
)

// ReviewRouting splits flagged anomalies between a manual review queue and
// an auto-accept bucket, by percentage of the flagged population. The two
// percentages may not exceed 100 combined; any remainder stays unrouted.
type ReviewRouting struct {
	ManualReviewPercent float64 `json:"manual_review_percent"`
	AutoAcceptPercent   float64 `json:"auto_accept_percent"`
}

// Validate checks if the routing percentages are valid
func (rr *ReviewRouting) Validate() error {
	if rr.ManualReviewPercent < 0 || rr.ManualReviewPercent > 100 {
		return fmt.Errorf("manual review percent must be between 0 and 100: %f", rr.ManualReviewPercent)
	}

	if rr.AutoAcceptPercent < 0 || rr.AutoAcceptPercent > 100 {
		return fmt.Errorf("auto accept percent must be between 0 and 100: %f", rr.AutoAcceptPercent)
	}

	if total := rr.ManualReviewPercent + rr.AutoAcceptPercent; total > 100 {
		return fmt.Errorf("routing percentages may not exceed 100 combined: %f", total)
	}

	return nil
}

// PipelineConfig holds configuration parameters for a full analysis run.
type PipelineConfig struct {
	// Detector configures the statistical outlier detection stage
	Detector *anomaly.DetectorConfig `json:"detector"`

	// Matching configures account matching for runs that reconcile two
	// charts of accounts alongside the anomaly stages
	Matching *matcher.MatchingConfig `json:"matching"`

	// ReviewRouting splits flagged anomalies across review queues
	ReviewRouting ReviewRouting `json:"review_routing"`

	// ConfidenceTarget is the confidence level at least one anomaly must
	// reach for the run to report the threshold as met
	ConfidenceTarget float64 `json:"confidence_target"`

	// ExplainTimeout bounds each call to an external explanation generator
	ExplainTimeout time.Duration `json:"explain_timeout"`
}

// DefaultPipelineConfig returns a configuration with the standard detector
// and matcher defaults, full manual review routing, and a 0.927 confidence
// target.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Detector:         anomaly.DefaultDetectorConfig(),
		Matching:         matcher.DefaultMatchingConfig(),
		ReviewRouting:    ReviewRouting{ManualReviewPercent: 100, AutoAcceptPercent: 0},
		ConfidenceTarget: 0.927,
		ExplainTimeout:   5 * time.Second,
	}
}

// Validate checks if the pipeline configuration is valid
func (pc *PipelineConfig) Validate() error {
	if pc.Detector != nil {
		if err := pc.Detector.Validate(); err != nil {
			return fmt.Errorf("invalid detector config: %w", err)
		}
	}

	if pc.Matching != nil {
		if err := pc.Matching.Validate(); err != nil {
			return fmt.Errorf("invalid matching config: %w", err)
		}
	}

	if err := pc.ReviewRouting.Validate(); err != nil {
		return fmt.Errorf("invalid review routing: %w", err)
	}

	if pc.ConfidenceTarget < 0 || pc.ConfidenceTarget > 1 {
		return fmt.Errorf("confidence target must be between 0.0 and 1.0: %f", pc.ConfidenceTarget)
	}

	if pc.ExplainTimeout < 0 {
		return fmt.Errorf("explain timeout cannot be negative: %v", pc.ExplainTimeout)
	}

	return nil
}

// Clone creates a deep copy of the pipeline configuration
func (pc *PipelineConfig) Clone() *PipelineConfig {
	if pc == nil {
		return nil
	}

	clone := *pc
	clone.Detector = pc.Detector.Clone()
	clone.Matching = pc.Matching.Clone()
	return &clone
}

// Result aggregates the outputs of one pipeline run. Stage failures leave
// their slice empty and record the failure; the other stages' outputs are
// still returned.
type Result struct {
	Outliers     []*models.AnomalyResult      `json:"outliers"`
	Subledgers   []*models.SubledgerAnalysis  `json:"subledgers"`
	Explanations map[string]*models.Explanation `json:"explanations"`
	ManualReview []*models.AnomalyResult      `json:"manualReview"`
	AutoAccepted []*models.AnomalyResult      `json:"autoAccepted"`
	Unrouted     []*models.AnomalyResult      `json:"unrouted"`
	Performance  models.PipelinePerformance   `json:"performance"`
	StageErrors  []error                      `json:"-"`
}

// Pipeline wires the detection, subledger, explanation, and routing stages
// into one orchestrated run.
type Pipeline struct {
	config    *PipelineConfig
	detector  *anomaly.OutlierDetector
	analyzer  *anomaly.SubledgerAnalyzer
	generator explain.Generator
	logger    logger.Logger
}

// NewPipeline creates a pipeline with the specified configuration and an
// optional external explanation generator. A nil configuration selects the
// defaults; a nil generator uses pure template explanations.
func NewPipeline(config *PipelineConfig, generator explain.Generator, log logger.Logger) *Pipeline {
	if config == nil {
		config = DefaultPipelineConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &Pipeline{
		config:    config,
		detector:  anomaly.NewOutlierDetector(config.Detector),
		analyzer:  anomaly.NewSubledgerAnalyzer(config.Detector),
		generator: explain.NewDelegatingGenerator(generator, config.ExplainTimeout, log),
		logger:    log.WithComponent("pipeline"),
	}
}

// Process runs all stages over the given transactions and accounts. Empty
// input yields empty collections and no error. A configuration problem is
// the only hard failure; stage-level errors and panics are recovered,
// logged, and surfaced through Result.StageErrors alongside the partial
// results.
func (p *Pipeline) Process(ctx context.Context, transactions []*models.TransactionRecord, accounts []*models.AccountRecord) (*Result, error) {
	if err := p.config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "pipeline_config", p.config, err)
	}

	start := time.Now()
	result := &Result{
		Outliers:     []*models.AnomalyResult{},
		Subledgers:   []*models.SubledgerAnalysis{},
		Explanations: map[string]*models.Explanation{},
		ManualReview: []*models.AnomalyResult{},
		AutoAccepted: []*models.AnomalyResult{},
		Unrouted:     []*models.AnomalyResult{},
	}

	if len(transactions) > 0 {
		p.runStage(result, "detection", func() error {
			outliers, err := p.detector.Detect(transactions, nil)
			if err != nil {
				return err
			}
			result.Outliers = outliers
			return nil
		})

		p.runStage(result, "subledger", func() error {
			subledgers, err := p.analyzer.Analyze(transactions, accounts)
			if err != nil {
				return err
			}
			result.Subledgers = subledgers
			return nil
		})

		p.runStage(result, "explanation", func() error {
			return p.explainAnomalies(ctx, result, transactions)
		})

		p.routeAnomalies(result)
	}

	flagged := flaggedOf(result.Outliers)
	result.Performance = models.PipelinePerformance{
		ProcessedTransactions:  len(transactions),
		ProcessingTimeMs:       time.Since(start).Milliseconds(),
		ConfidenceThresholdMet: p.thresholdMet(flagged),
	}

	p.logger.WithFields(logger.Fields{
		"transactions": len(transactions),
		"anomalies":    len(flagged),
		"duration_ms":  result.Performance.ProcessingTimeMs,
	}).Info("pipeline run complete")

	return result, nil
}

// runStage executes one stage, converting a panic or error into a recorded
// stage failure instead of aborting the run.
func (p *Pipeline) runStage(result *Result, stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.AnalysisError(errors.CodeStageFailed, stage, fmt.Errorf("panic: %v", r))
			p.logger.WithError(err).WithField("stage", stage).Error("stage panicked")
			result.StageErrors = append(result.StageErrors, err)
		}
	}()

	if err := fn(); err != nil {
		wrapped := errors.AnalysisError(errors.CodeStageFailed, stage, err)
		p.logger.WithError(wrapped).WithField("stage", stage).Error("stage failed")
		result.StageErrors = append(result.StageErrors, wrapped)
	}
}

func (p *Pipeline) explainAnomalies(ctx context.Context, result *Result, transactions []*models.TransactionRecord) error {
	byID := make(map[string]*models.TransactionRecord, len(transactions))
	for _, tx := range transactions {
		byID[tx.ID] = tx
	}

	for _, outlier := range result.Outliers {
		if !outlier.IsAnomaly {
			continue
		}
		tx, ok := byID[outlier.TransactionID]
		if !ok {
			continue
		}

		explanation, err := p.generator.Explain(ctx, outlier, tx)
		if err != nil {
			return err
		}
		result.Explanations[outlier.TransactionID] = explanation
	}

	return nil
}

// routeAnomalies distributes flagged anomalies by confidence: the most
// confident go to manual review first, the least confident are auto
// accepted, and any population share not covered by the two percentages
// stays unrouted.
func (p *Pipeline) routeAnomalies(result *Result) {
	flagged := flaggedOf(result.Outliers)
	if len(flagged) == 0 {
		return
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].Confidence != flagged[j].Confidence {
			return flagged[i].Confidence > flagged[j].Confidence
		}
		return flagged[i].TransactionID < flagged[j].TransactionID
	})

	n := len(flagged)
	manual := int(math.Ceil(float64(n) * p.config.ReviewRouting.ManualReviewPercent / 100))
	auto := int(math.Floor(float64(n) * p.config.ReviewRouting.AutoAcceptPercent / 100))
	if manual+auto > n {
		auto = n - manual
	}

	result.ManualReview = flagged[:manual]
	result.AutoAccepted = flagged[n-auto:]
	result.Unrouted = flagged[manual : n-auto]
}

func (p *Pipeline) thresholdMet(flagged []*models.AnomalyResult) bool {
	for _, outlier := range flagged {
		if outlier.Confidence >= p.config.ConfidenceTarget {
			return true
		}
	}
	return false
}

func flaggedOf(results []*models.AnomalyResult) []*models.AnomalyResult {
	flagged := make([]*models.AnomalyResult, 0, len(results))
	for _, result := range results {
		if result.IsAnomaly {
			flagged = append(flagged, result)
		}
	}
	return flagged
}
