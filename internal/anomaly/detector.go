// Package anomaly provides statistical outlier detection over transaction
// batches and per-subledger pattern analysis.
//
// Detection follows the three-sigma rule: each transaction is scored against
// a per-group baseline (mean and standard deviation of amounts), and values
// deviating more than the configured number of standard deviations are
// flagged. Two baseline modes are supported:
//   - In-batch: the baseline for each transaction is the leave-one-out
//     statistics of the rest of its group, so a single extreme value cannot
//     mask itself by inflating the group's spread.
//   - Historical: externally aggregated per-account statistics, which take
//     precedence over in-batch statistics when supplied.
//
// Confidence is the Chebyshev bound 1 - 1/z², a monotonic bounded mapping
// from deviation to certainty that exceeds 0.927 for strongly deviant values.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/pkg/errors"
)

// zero-spread groups still need a finite score for a deviating value
const zeroSpreadZScore = 12.0

// DetectorConfig holds configuration parameters for outlier detection.
type DetectorConfig struct {
	// ZScoreThreshold is the number of standard deviations beyond which a
	// transaction is flagged (the classic three-sigma rule uses 3.0)
	ZScoreThreshold float64 `json:"z_score_threshold"`

	// MinGroupSize is the minimum number of transactions a group needs
	// before in-batch statistics are considered meaningful; smaller groups
	// contribute no results
	MinGroupSize int `json:"min_group_size"`

	// MaxConfidence caps the reported confidence below 1.0
	MaxConfidence float64 `json:"max_confidence"`
}

// DefaultDetectorConfig returns a configuration implementing the
// three-sigma rule with a minimum group size of 3.
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		ZScoreThreshold: 3.0,
		MinGroupSize:    3,
		MaxConfidence:   0.99,
	}
}

// Validate checks if the detector configuration is valid
func (dc *DetectorConfig) Validate() error {
	if dc.ZScoreThreshold <= 0 {
		return fmt.Errorf("z-score threshold must be positive: %f", dc.ZScoreThreshold)
	}

	if dc.MinGroupSize < 3 {
		return fmt.Errorf("minimum group size must be at least 3: %d", dc.MinGroupSize)
	}

	if dc.MaxConfidence <= 0 || dc.MaxConfidence > 1.0 {
		return fmt.Errorf("max confidence must be in (0.0, 1.0]: %f", dc.MaxConfidence)
	}

	return nil
}

// Clone creates a copy of the detector configuration
func (dc *DetectorConfig) Clone() *DetectorConfig {
	if dc == nil {
		return nil
	}
	clone := *dc
	return &clone
}

// GroupKeyFunc derives the grouping key for a transaction. The default
// groups by account code.
type GroupKeyFunc func(*models.TransactionRecord) string

// DetectorOptions carries the optional inputs for a detection run.
type DetectorOptions struct {
	// GroupKey overrides the default account-code grouping
	GroupKey GroupKeyFunc

	// Historical supplies externally aggregated baselines keyed by the
	// group key; when present for a group they take precedence over
	// in-batch statistics
	Historical map[string]*models.HistoricalStats
}

// OutlierDetector flags transactions whose amounts deviate from their
// group baseline. It is a pure function of its inputs and configuration.
type OutlierDetector struct {
	Config *DetectorConfig
}

// NewOutlierDetector creates a new detector with the specified
// configuration. A nil configuration selects the defaults.
func NewOutlierDetector(config *DetectorConfig) *OutlierDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}

	return &OutlierDetector{
		Config: config,
	}
}

// Detect scores every transaction in groups meeting the minimum sample
// size and returns one result per scored transaction, anomalous or not.
// Groups below the minimum size contribute no results; that is missing
// statistical power, not an error. Results are ordered by group key, then
// by input order within each group.
func (od *OutlierDetector) Detect(transactions []*models.TransactionRecord, opts *DetectorOptions) ([]*models.AnomalyResult, error) {
	if err := od.Config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "detector_config", od.Config, err)
	}

	if len(transactions) == 0 {
		return []*models.AnomalyResult{}, nil
	}

	if opts == nil {
		opts = &DetectorOptions{}
	}
	keyFn := opts.GroupKey
	if keyFn == nil {
		keyFn = func(tx *models.TransactionRecord) string { return tx.AccountCode }
	}

	groups := make(map[string][]*models.TransactionRecord)
	for _, tx := range transactions {
		key := keyFn(tx)
		groups[key] = append(groups[key], tx)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var results []*models.AnomalyResult
	for _, key := range keys {
		group := groups[key]

		if stats, ok := opts.Historical[key]; ok && stats != nil {
			results = append(results, od.scoreAgainstHistorical(group, stats)...)
			continue
		}

		if len(group) < od.Config.MinGroupSize {
			continue
		}

		results = append(results, od.scoreInBatch(group)...)
	}

	return results, nil
}

// scoreAgainstHistorical scores a group against externally aggregated
// statistics. The external aggregator vouches for sample size, so the
// in-batch minimum does not apply here.
func (od *OutlierDetector) scoreAgainstHistorical(group []*models.TransactionRecord, stats *models.HistoricalStats) []*models.AnomalyResult {
	mean := stats.AvgAmount.InexactFloat64()
	stdDev := stats.StdDev.InexactFloat64()

	results := make([]*models.AnomalyResult, 0, len(group))
	for _, tx := range group {
		result := od.score(tx, mean, stdDev)
		result.Explanation = fmt.Sprintf(
			"amount %s deviates %.2f standard deviations from the historical average %.2f for account %s",
			tx.Amount.StringFixed(2), result.ZScore, mean, tx.AccountCode)
		results = append(results, result)
	}
	return results
}

// scoreInBatch scores each transaction against the leave-one-out mean and
// standard deviation of the rest of its group.
func (od *OutlierDetector) scoreInBatch(group []*models.TransactionRecord) []*models.AnomalyResult {
	n := float64(len(group))
	var sum, sumSquares float64
	for _, tx := range group {
		amount := tx.Amount.InexactFloat64()
		sum += amount
		sumSquares += amount * amount
	}

	results := make([]*models.AnomalyResult, 0, len(group))
	for _, tx := range group {
		amount := tx.Amount.InexactFloat64()

		rest := n - 1
		mean := (sum - amount) / rest
		variance := (sumSquares-amount*amount)/rest - mean*mean
		if variance < 0 {
			// float rounding near zero spread
			variance = 0
		}
		stdDev := math.Sqrt(variance)

		result := od.score(tx, mean, stdDev)
		result.Explanation = fmt.Sprintf(
			"amount %s deviates %.2f standard deviations from the batch average %.2f for account %s",
			tx.Amount.StringFixed(2), result.ZScore, mean, tx.AccountCode)
		results = append(results, result)
	}
	return results
}

func (od *OutlierDetector) score(tx *models.TransactionRecord, mean, stdDev float64) *models.AnomalyResult {
	amount := tx.Amount.InexactFloat64()
	deviation := math.Abs(amount - mean)

	var zScore float64
	switch {
	case stdDev > 0:
		zScore = deviation / stdDev
	case deviation > 0:
		zScore = zeroSpreadZScore
	default:
		zScore = 0
	}

	isAnomaly := zScore > od.Config.ZScoreThreshold

	result := &models.AnomalyResult{
		TransactionID: tx.ID,
		IsAnomaly:     isAnomaly,
		ZScore:        zScore,
		Confidence:    od.confidence(zScore),
		Stats: models.StatisticalData{
			Mean:      mean,
			StdDev:    stdDev,
			Threshold: od.Config.ZScoreThreshold,
		},
	}

	if isAnomaly {
		result.Severity = SeverityForZScore(zScore, od.Config.ZScoreThreshold)
	}

	return result
}

// confidence maps a z-score to a certainty via the Chebyshev bound
// 1 - 1/z²: monotonic, bounded, and independent of any distributional
// assumption about the amounts.
func (od *OutlierDetector) confidence(zScore float64) float64 {
	if zScore <= 1 {
		return 0
	}

	c := 1.0 - 1.0/(zScore*zScore)
	if c > od.Config.MaxConfidence {
		return od.Config.MaxConfidence
	}
	return models.ClampScore(c)
}

// SeverityForZScore derives a severity classification from the deviation
// magnitude relative to the detection threshold.
func SeverityForZScore(zScore, threshold float64) models.Severity {
	switch {
	case zScore > threshold*2:
		return models.SeverityHigh
	case zScore > threshold*1.5:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
