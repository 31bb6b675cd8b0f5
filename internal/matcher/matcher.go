package matcher

import (
	"sort"

	"account-reconciliation-service/internal/models"
	"account-reconciliation-service/pkg/errors"
)

// AccountMatcher is the engine responsible for reconciling accounts across
// two systems. It is a pure function of its inputs and configuration and is
// safe for concurrent use.
type AccountMatcher struct {
	Config *MatchingConfig
}

// NewAccountMatcher creates a new account matcher with the specified
// configuration. A nil configuration selects the defaults.
func NewAccountMatcher(config *MatchingConfig) *AccountMatcher {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &AccountMatcher{
		Config: config,
	}
}

// FindBestMatches computes the best-scoring target candidate for every
// source account and returns the pairs whose composite score meets the
// configured threshold, sorted descending by score. Ties are broken by
// source code so repeated runs over identical input produce identical
// output.
//
// Empty inputs yield an empty result, not an error.
func (am *AccountMatcher) FindBestMatches(sources, targets []*models.AccountRecord) ([]*models.MatchResult, error) {
	if err := am.Config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching_config", am.Config, err)
	}

	if len(sources) == 0 || len(targets) == 0 {
		return []*models.MatchResult{}, nil
	}

	// Normalized codes and parent paths are reused across the candidate
	// grid, so precompute them once per record.
	sourceKeys := precomputeKeys(sources)
	targetKeys := precomputeKeys(targets)

	results := make([]*models.MatchResult, 0, len(sources))

	for i, source := range sources {
		best := am.bestCandidate(source, sourceKeys[i], targets, targetKeys)
		if best != nil && best.Score >= am.Config.MinScore {
			results = append(results, best)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Source.Code < results[j].Source.Code
	})

	return results, nil
}

// ScorePair computes the composite match score and factor breakdown for a
// single source/target account pair.
func (am *AccountMatcher) ScorePair(source, target *models.AccountRecord) *models.MatchResult {
	return am.score(source, accountKey{
		normalizedCode: NormalizeCode(source.Code),
		parentPath:     source.ParentPath(),
	}, target, accountKey{
		normalizedCode: NormalizeCode(target.Code),
		parentPath:     target.ParentPath(),
	})
}

// accountKey caches the derived comparison inputs for one account.
type accountKey struct {
	normalizedCode string
	parentPath     []string
}

func precomputeKeys(accounts []*models.AccountRecord) []accountKey {
	keys := make([]accountKey, len(accounts))
	for i, a := range accounts {
		keys[i] = accountKey{
			normalizedCode: NormalizeCode(a.Code),
			parentPath:     a.ParentPath(),
		}
	}
	return keys
}

func (am *AccountMatcher) bestCandidate(source *models.AccountRecord, sourceKey accountKey, targets []*models.AccountRecord, targetKeys []accountKey) *models.MatchResult {
	var best *models.MatchResult

	for i, target := range targets {
		result := am.score(source, sourceKey, target, targetKeys[i])
		if best == nil || result.Score > best.Score {
			best = result
		}
	}

	return best
}

func (am *AccountMatcher) score(source *models.AccountRecord, sourceKey accountKey, target *models.AccountRecord, targetKey accountKey) *models.MatchResult {
	factors := models.MatchFactors{}

	// Exact normalized-code equality always earns the full code score,
	// independent of the edit-distance measure.
	if sourceKey.normalizedCode != "" && sourceKey.normalizedCode == targetKey.normalizedCode {
		factors.CodeScore = 1.0
	} else {
		factors.CodeScore = Similarity(sourceKey.normalizedCode, targetKey.normalizedCode)
	}

	factors.NameScore = Similarity(source.Name, target.Name)
	factors.HierarchyScore = HierarchySimilarity(sourceKey.parentPath, targetKey.parentPath)
	factors.TypeScore = am.Config.typeScore(source.Type, target.Type)

	weights := am.Config.Weights
	composite := factors.CodeScore*weights.CodeWeight +
		factors.NameScore*weights.NameWeight +
		factors.HierarchyScore*weights.HierarchyWeight +
		factors.TypeScore*weights.TypeWeight

	return &models.MatchResult{
		Source:  source,
		Target:  target,
		Score:   models.ClampScore(composite),
		Factors: factors,
	}
}
