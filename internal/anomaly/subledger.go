package anomaly

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"account-reconciliation-service/internal/models"
)

const uncategorized = "uncategorized"

// SubledgerAnalyzer groups transactions into subledgers by category and
// account type, summarizes the pattern within each group, and runs outlier
// detection on each group independently so extreme values in one subledger
// cannot contaminate the baseline of another.
type SubledgerAnalyzer struct {
	detector *OutlierDetector
}

// NewSubledgerAnalyzer creates an analyzer backed by a detector with the
// given configuration. A nil configuration selects the defaults.
func NewSubledgerAnalyzer(config *DetectorConfig) *SubledgerAnalyzer {
	return &SubledgerAnalyzer{
		detector: NewOutlierDetector(config),
	}
}

// AnalyzeSubledgers is a convenience wrapper over a one-shot analyzer.
func AnalyzeSubledgers(transactions []*models.TransactionRecord, accounts []*models.AccountRecord, config *DetectorConfig) ([]*models.SubledgerAnalysis, error) {
	return NewSubledgerAnalyzer(config).Analyze(transactions, accounts)
}

type subledgerKey struct {
	category    string
	accountType models.AccountType
}

// Analyze joins transactions to accounts by account code, groups them by
// (category, account type), and returns one analysis per group, sorted by
// category then account type. Transactions referencing unknown accounts
// fall into the "other" account type; empty categories become
// "uncategorized".
func (sa *SubledgerAnalyzer) Analyze(transactions []*models.TransactionRecord, accounts []*models.AccountRecord) ([]*models.SubledgerAnalysis, error) {
	if err := sa.detector.Config.Validate(); err != nil {
		return nil, err
	}

	if len(transactions) == 0 {
		return []*models.SubledgerAnalysis{}, nil
	}

	typeByCode := make(map[string]models.AccountType, len(accounts))
	for _, account := range accounts {
		typeByCode[account.Code] = account.Type
	}

	groups := make(map[subledgerKey][]*models.TransactionRecord)
	for _, tx := range transactions {
		key := subledgerKey{
			category:    tx.Category,
			accountType: models.AccountTypeOther,
		}
		if key.category == "" {
			key.category = uncategorized
		}
		if accountType, ok := typeByCode[tx.AccountCode]; ok {
			key.accountType = accountType
		}
		groups[key] = append(groups[key], tx)
	}

	keys := make([]subledgerKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].accountType < keys[j].accountType
	})

	analyses := make([]*models.SubledgerAnalysis, 0, len(keys))
	for _, key := range keys {
		group := groups[key]

		analysis := &models.SubledgerAnalysis{
			Category:    key.category,
			AccountType: key.accountType,
			Patterns:    summarizePatterns(group),
			Anomalies:   []*models.AnomalyResult{},
		}

		// one group per detection run keeps baselines isolated
		results, err := sa.detector.Detect(group, &DetectorOptions{
			GroupKey: func(*models.TransactionRecord) string { return key.category },
		})
		if err != nil {
			return nil, err
		}
		for _, result := range results {
			if result.IsAnomaly {
				analysis.Anomalies = append(analysis.Anomalies, result)
			}
		}

		analyses = append(analyses, analysis)
	}

	return analyses, nil
}

// summarizePatterns computes the average amount, transaction frequency, and
// a seasonality score for one subledger group.
func summarizePatterns(group []*models.TransactionRecord) models.PatternSummary {
	total := decimal.Zero
	for _, tx := range group {
		total = total.Add(tx.Amount)
	}

	return models.PatternSummary{
		AverageAmount: total.Div(decimal.NewFromInt(int64(len(group)))),
		Frequency:     len(group),
		Seasonality:   seasonalityScore(group),
	}
}

// seasonalityScore measures how unevenly activity spreads across calendar
// months, as the coefficient of variation of per-month absolute volume
// scaled into [0, 1]. Fewer than two active months yields 0: no variation
// is observable.
func seasonalityScore(group []*models.TransactionRecord) float64 {
	buckets := make(map[string]float64)
	for _, tx := range group {
		month := tx.Timestamp.Format("2006-01")
		buckets[month] += tx.Amount.Abs().InexactFloat64()
	}

	if len(buckets) < 2 {
		return 0
	}

	var sum float64
	for _, volume := range buckets {
		sum += volume
	}
	mean := sum / float64(len(buckets))
	if mean == 0 {
		return 0
	}

	var sumSquares float64
	for _, volume := range buckets {
		diff := volume - mean
		sumSquares += diff * diff
	}
	stdDev := math.Sqrt(sumSquares / float64(len(buckets)))

	return models.ClampScore(stdDev / mean / 2)
}
