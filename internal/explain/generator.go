// Package explain turns statistical anomaly results into reviewer-facing
// explanations: a summary, step-by-step reasoning, a risk classification,
// and concrete follow-up recommendations.
//
// The package ships two generators. TemplateGenerator is deterministic and
// always available. DelegatingGenerator wraps a primary generator (for
// example one backed by an external service) with a timeout and falls back
// to the template output when the primary fails or runs out of time, so
// explanation generation degrades rather than failing the run.
package explain

import (
	"context"
	"fmt"
	"time"

	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/pkg/errors"
	"account-reconciliation-service/pkg/logger"
)

// Generator produces an explanation for one anomalous transaction.
type Generator interface {
	Explain(ctx context.Context, anomaly *models.AnomalyResult, tx *models.TransactionRecord) (*models.Explanation, error)
}

// TemplateGenerator renders explanations from the anomaly's statistics
// alone. It never fails and never blocks.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a deterministic template-based generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Explain renders a structured explanation for the given anomaly.
func (g *TemplateGenerator) Explain(_ context.Context, anomaly *models.AnomalyResult, tx *models.TransactionRecord) (*models.Explanation, error) {
	if anomaly == nil || tx == nil {
		return nil, errors.GenerationError(errors.CodeGeneratorUnavailable, "template",
			fmt.Errorf("anomaly and transaction are required"))
	}

	risk := RiskForAnomaly(anomaly)

	explanation := &models.Explanation{
		Summary: fmt.Sprintf("Transaction %s on account %s deviates sharply from its typical range (%.1f standard deviations).",
			tx.ID, tx.AccountCode, anomaly.ZScore),
		Reasoning: []string{
			fmt.Sprintf("The amount %s was compared against a baseline average of %.2f with a standard deviation of %.2f.",
				tx.Amount.StringFixed(2), anomaly.Stats.Mean, anomaly.Stats.StdDev),
			fmt.Sprintf("The resulting deviation of %.2f standard deviations exceeds the %.1f-sigma detection threshold.",
				anomaly.ZScore, anomaly.Stats.Threshold),
			fmt.Sprintf("Statistical confidence in this assessment is %.1f%%.", anomaly.Confidence*100),
		},
		Confidence:      anomaly.Confidence,
		RiskLevel:       risk,
		Recommendations: recommendationsFor(risk, tx),
		GeneratedAt:     time.Now().UTC(),
	}

	return explanation, nil
}

// DelegatingGenerator tries a primary generator under a deadline and falls
// back to template output when the primary errors or times out.
type DelegatingGenerator struct {
	primary  Generator
	fallback *TemplateGenerator
	timeout  time.Duration
	logger   logger.Logger
}

// NewDelegatingGenerator wraps primary with a per-call timeout and a
// template fallback. A nil primary degrades to pure template generation.
func NewDelegatingGenerator(primary Generator, timeout time.Duration, log logger.Logger) *DelegatingGenerator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &DelegatingGenerator{
		primary:  primary,
		fallback: NewTemplateGenerator(),
		timeout:  timeout,
		logger:   log.WithComponent("explain"),
	}
}

// Explain returns the primary generator's output when it answers within the
// deadline, and the template rendering otherwise. The fallback path logs the
// degradation but is not an error for the caller.
func (g *DelegatingGenerator) Explain(ctx context.Context, anomaly *models.AnomalyResult, tx *models.TransactionRecord) (*models.Explanation, error) {
	if g.primary == nil {
		return g.fallback.Explain(ctx, anomaly, tx)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if g.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type outcome struct {
		explanation *models.Explanation
		err         error
	}
	done := make(chan outcome, 1)
	go func() {
		explanation, err := g.primary.Explain(callCtx, anomaly, tx)
		done <- outcome{explanation, err}
	}()

	select {
	case result := <-done:
		if result.err == nil && result.explanation != nil {
			return result.explanation, nil
		}
		g.logger.WithError(result.err).WithField("transaction_id", anomalyTransactionID(anomaly)).
			Warn("primary explanation generator failed, using template fallback")
	case <-callCtx.Done():
		g.logger.WithField("transaction_id", anomalyTransactionID(anomaly)).
			WithField("timeout", g.timeout.String()).
			Warn("primary explanation generator timed out, using template fallback")
	}

	return g.fallback.Explain(ctx, anomaly, tx)
}

func anomalyTransactionID(anomaly *models.AnomalyResult) string {
	if anomaly == nil {
		return ""
	}
	return anomaly.TransactionID
}

// RiskForAnomaly classifies review urgency from the anomaly's severity,
// falling back to the deviation magnitude when no severity was assigned.
func RiskForAnomaly(anomaly *models.AnomalyResult) models.RiskLevel {
	severity := anomaly.Severity
	if severity == "" {
		switch {
		case anomaly.ZScore > 6:
			severity = models.SeverityHigh
		case anomaly.ZScore > 4.5:
			severity = models.SeverityMedium
		default:
			severity = models.SeverityLow
		}
	}

	switch severity {
	case models.SeverityHigh:
		return models.RiskHigh
	case models.SeverityMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func recommendationsFor(risk models.RiskLevel, tx *models.TransactionRecord) []string {
	recommendations := []string{
		fmt.Sprintf("Verify the source document for transaction %s against the recorded amount.", tx.ID),
		fmt.Sprintf("Confirm that account %s is the intended posting account.", tx.AccountCode),
	}

	switch risk {
	case models.RiskHigh:
		recommendations = append(recommendations,
			"Escalate to a senior reviewer before the close of the current period.",
			"Check surrounding entries on the same account for related mispostings.")
	case models.RiskMedium:
		recommendations = append(recommendations,
			"Queue for review in the current reconciliation cycle.")
	default:
		recommendations = append(recommendations,
			"Spot-check during the next scheduled review.")
	}

	return recommendations
}
