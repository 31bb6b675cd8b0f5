// Package matcher provides fuzzy, multi-factor matching of chart-of-accounts
// records across two independently maintained financial systems.
//
// Matching combines four similarity factors for each candidate pair:
//   - Code: normalized account codes compared by edit distance, with exact
//     normalized equality forcing a full score
//   - Name: display labels compared by edit distance
//   - Hierarchy: parent-path segments of the hierarchical full name compared
//     level by level
//   - Type: exact account-type equality, with partial credit for related
//     classifications
//
// The composite score is a configurable weighted sum; the weights are a
// tunable policy exposed through MatchingConfig rather than constants, since
// their exact calibration differs between deployments.
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.MinScore = 0.85
//
//	engine := matcher.NewAccountMatcher(config)
//	matches, err := engine.FindBestMatches(sourceAccounts, targetAccounts)
package matcher

import (
	"fmt"

	"account-reconciliation-service/internal/models"
)

// MatchingWeights defines the relative importance of the four matching
// factors. Weights should sum to approximately 1.0.
type MatchingWeights struct {
	CodeWeight      float64 `json:"code_weight"`
	NameWeight      float64 `json:"name_weight"`
	HierarchyWeight float64 `json:"hierarchy_weight"`
	TypeWeight      float64 `json:"type_weight"`
}

// MatchingConfig holds configuration parameters for account matching.
// Use the provided factory functions for common scenarios:
//   - DefaultMatchingConfig(): balanced approach for most charts of accounts
//   - StrictMatchingConfig(): code-dominated matching for systems with
//     reliable account numbering
//   - RelaxedMatchingConfig(): looser threshold for exploratory matching
type MatchingConfig struct {
	// MinScore defines the minimum composite score for a pair to be
	// reported as a match (0.0 to 1.0)
	MinScore float64 `json:"min_score"`

	// RelatedTypeCredit is the type score granted when two account types
	// are different but related (e.g. accounts_receivable and revenue)
	RelatedTypeCredit float64 `json:"related_type_credit"`

	// Weights for the four matching factors
	Weights MatchingWeights `json:"weights"`
}

// DefaultMatchingConfig returns a configuration with sensible defaults:
// code and name weighted equally and dominant, smaller contributions from
// hierarchy and type, and a 0.9 match threshold.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		MinScore:          0.9,
		RelatedTypeCredit: 0.5,
		Weights: MatchingWeights{
			CodeWeight:      0.35,
			NameWeight:      0.35,
			HierarchyWeight: 0.20,
			TypeWeight:      0.10,
		},
	}
}

// StrictMatchingConfig returns a configuration for code-dominated matching
func StrictMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		MinScore:          0.95,
		RelatedTypeCredit: 0.0,
		Weights: MatchingWeights{
			CodeWeight:      0.5,
			NameWeight:      0.3,
			HierarchyWeight: 0.1,
			TypeWeight:      0.1,
		},
	}
}

// RelaxedMatchingConfig returns a configuration for exploratory matching
func RelaxedMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		MinScore:          0.7,
		RelatedTypeCredit: 0.5,
		Weights: MatchingWeights{
			CodeWeight:      0.3,
			NameWeight:      0.4,
			HierarchyWeight: 0.2,
			TypeWeight:      0.1,
		},
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.MinScore < 0.0 || mc.MinScore > 1.0 {
		return fmt.Errorf("minimum score must be between 0.0 and 1.0: %f", mc.MinScore)
	}

	if mc.RelatedTypeCredit < 0.0 || mc.RelatedTypeCredit > 1.0 {
		return fmt.Errorf("related type credit must be between 0.0 and 1.0: %f", mc.RelatedTypeCredit)
	}

	if err := mc.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	return nil
}

// Validate checks if the matching weights are valid
func (mw *MatchingWeights) Validate() error {
	if mw.CodeWeight < 0.0 || mw.CodeWeight > 1.0 {
		return fmt.Errorf("code weight must be between 0.0 and 1.0: %f", mw.CodeWeight)
	}

	if mw.NameWeight < 0.0 || mw.NameWeight > 1.0 {
		return fmt.Errorf("name weight must be between 0.0 and 1.0: %f", mw.NameWeight)
	}

	if mw.HierarchyWeight < 0.0 || mw.HierarchyWeight > 1.0 {
		return fmt.Errorf("hierarchy weight must be between 0.0 and 1.0: %f", mw.HierarchyWeight)
	}

	if mw.TypeWeight < 0.0 || mw.TypeWeight > 1.0 {
		return fmt.Errorf("type weight must be between 0.0 and 1.0: %f", mw.TypeWeight)
	}

	// Weights should sum to approximately 1.0 (allow some tolerance)
	total := mw.CodeWeight + mw.NameWeight + mw.HierarchyWeight + mw.TypeWeight
	if total < 0.9 || total > 1.1 {
		return fmt.Errorf("weights should sum to approximately 1.0, got %f", total)
	}

	return nil
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}

	clone := *mc
	return &clone
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{MinScore: %.2f, Weights: code=%.2f name=%.2f hierarchy=%.2f type=%.2f}",
		mc.MinScore, mc.Weights.CodeWeight, mc.Weights.NameWeight,
		mc.Weights.HierarchyWeight, mc.Weights.TypeWeight)
}

// relatedTypes maps account-type pairs that commonly correspond across
// systems even when classified differently (receivables feed revenue,
// payables feed expenses).
var relatedTypes = map[models.AccountType]map[models.AccountType]bool{
	models.AccountTypeReceivable: {models.AccountTypeRevenue: true},
	models.AccountTypeRevenue:    {models.AccountTypeReceivable: true},
	models.AccountTypePayable:    {models.AccountTypeExpense: true},
	models.AccountTypeExpense:    {models.AccountTypePayable: true},
	models.AccountTypeBank:       {models.AccountTypeOther: true},
	models.AccountTypeOther:      {models.AccountTypeBank: true},
}

// typeScore returns 1.0 for equal types, the configured partial credit for
// related types, and 0 otherwise.
func (mc *MatchingConfig) typeScore(a, b models.AccountType) float64 {
	if a == b {
		return 1.0
	}
	if relatedTypes[a][b] {
		return mc.RelatedTypeCredit
	}
	return 0.0
}
