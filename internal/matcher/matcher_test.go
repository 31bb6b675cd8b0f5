package matcher

import (
	"testing"

	"account-reconciliation-service/internal/models"
)

func account(code, name, fullName string, accountType models.AccountType) *models.AccountRecord {
	return &models.AccountRecord{
		Code:     code,
		Name:     name,
		FullName: fullName,
		Type:     accountType,
	}
}

func TestFindBestMatchesAcrossConventions(t *testing.T) {
	sources := []*models.AccountRecord{
		account("0001000", "Cash Account", "Assets:Current:Cash Account", models.AccountTypeBank),
	}
	targets := []*models.AccountRecord{
		account("1000", "Cash-Account", "Assets/Current/Cash-Account", models.AccountTypeBank),
		account("2000", "Accounts Payable", "Liabilities/Accounts Payable", models.AccountTypePayable),
	}

	m := NewAccountMatcher(nil)
	matches, err := m.FindBestMatches(sources, targets)
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}

	if len(matches) != 1 {
		t.Fatalf("FindBestMatches() returned %d matches, want 1", len(matches))
	}

	match := matches[0]
	if match.Target.Code != "1000" {
		t.Errorf("matched target = %s, want 1000", match.Target.Code)
	}
	if match.Score < 0.9 {
		t.Errorf("match score = %f, want >= 0.9", match.Score)
	}
	if match.Factors.CodeScore != 1.0 {
		t.Errorf("code score = %f, want 1.0 for normalized-equal codes", match.Factors.CodeScore)
	}
	if match.Factors.NameScore != 1.0 {
		t.Errorf("name score = %f, want 1.0 for punctuation-only difference", match.Factors.NameScore)
	}
}

func TestFindBestMatchesExactCodeOverridesNameDistance(t *testing.T) {
	source := account("ACC-001", "Petty Cash", "", models.AccountTypeBank)
	target := account("ACC_001", "Till Float", "", models.AccountTypeBank)

	m := NewAccountMatcher(nil)
	result := m.ScorePair(source, target)

	if result.Factors.CodeScore != 1.0 {
		t.Errorf("code score = %f, want 1.0", result.Factors.CodeScore)
	}
	if result.Factors.NameScore >= 0.9 {
		t.Errorf("name score = %f, want below 0.9 for unrelated names", result.Factors.NameScore)
	}
}

func TestFindBestMatchesThreshold(t *testing.T) {
	sources := []*models.AccountRecord{
		account("1000", "Cash", "Assets:Cash", models.AccountTypeBank),
		account("9999", "Suspense", "Other:Suspense", models.AccountTypeOther),
	}
	targets := []*models.AccountRecord{
		account("1000", "Cash", "Assets/Cash", models.AccountTypeBank),
	}

	m := NewAccountMatcher(nil)
	matches, err := m.FindBestMatches(sources, targets)
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}

	if len(matches) != 1 {
		t.Fatalf("FindBestMatches() returned %d matches, want 1", len(matches))
	}
	if matches[0].Source.Code != "1000" {
		t.Errorf("surviving match source = %s, want 1000", matches[0].Source.Code)
	}
}

func TestFindBestMatchesSortedDescending(t *testing.T) {
	sources := []*models.AccountRecord{
		account("2000", "Accounts Receivable", "Assets:Accounts Receivable", models.AccountTypeReceivable),
		account("1000", "Cash", "Assets:Cash", models.AccountTypeBank),
	}
	targets := []*models.AccountRecord{
		account("1000", "Cash", "Assets/Cash", models.AccountTypeBank),
		account("2000", "Accounts Receivable (net)", "Assets/Accounts Receivable (net)", models.AccountTypeReceivable),
	}

	m := NewAccountMatcher(RelaxedMatchingConfig())
	matches, err := m.FindBestMatches(sources, targets)
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}

	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not sorted descending: %f before %f", matches[i-1].Score, matches[i].Score)
		}
	}
}

func TestFindBestMatchesDeterministic(t *testing.T) {
	sources := []*models.AccountRecord{
		account("1000", "Cash", "Assets:Cash", models.AccountTypeBank),
		account("1001", "Cash", "Assets:Cash", models.AccountTypeBank),
	}
	targets := []*models.AccountRecord{
		account("1000", "Cash", "Assets:Cash", models.AccountTypeBank),
	}

	m := NewAccountMatcher(RelaxedMatchingConfig())
	first, err := m.FindBestMatches(sources, targets)
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := m.FindBestMatches(sources, targets)
		if err != nil {
			t.Fatalf("FindBestMatches() error = %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d returned %d matches, want %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].Source.Code != first[j].Source.Code || again[j].Score != first[j].Score {
				t.Errorf("run %d position %d differs from first run", i, j)
			}
		}
	}
}

func TestFindBestMatchesEmptyInputs(t *testing.T) {
	m := NewAccountMatcher(nil)

	matches, err := m.FindBestMatches(nil, nil)
	if err != nil {
		t.Fatalf("FindBestMatches() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("FindBestMatches() returned %d matches for empty inputs, want 0", len(matches))
	}
}

func TestFindBestMatchesInvalidConfig(t *testing.T) {
	m := NewAccountMatcher(&MatchingConfig{
		MinScore: 2.0,
		Weights:  DefaultMatchingConfig().Weights,
	})

	_, err := m.FindBestMatches(
		[]*models.AccountRecord{account("1000", "Cash", "", models.AccountTypeBank)},
		[]*models.AccountRecord{account("1000", "Cash", "", models.AccountTypeBank)})
	if err == nil {
		t.Error("FindBestMatches() with invalid config did not return an error")
	}
}

func TestTypeScore(t *testing.T) {
	config := DefaultMatchingConfig()

	tests := []struct {
		name string
		a    models.AccountType
		b    models.AccountType
		want float64
	}{
		{"equal types", models.AccountTypeBank, models.AccountTypeBank, 1.0},
		{"receivable and revenue", models.AccountTypeReceivable, models.AccountTypeRevenue, 0.5},
		{"payable and expense", models.AccountTypeExpense, models.AccountTypePayable, 0.5},
		{"bank and other", models.AccountTypeBank, models.AccountTypeOther, 0.5},
		{"unrelated", models.AccountTypeBank, models.AccountTypeRevenue, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := config.typeScore(tt.a, tt.b); got != tt.want {
				t.Errorf("typeScore(%s, %s) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMatchingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*MatchingConfig)
		wantErr bool
	}{
		{"default valid", func(*MatchingConfig) {}, false},
		{"strict valid", func(c *MatchingConfig) { *c = *StrictMatchingConfig() }, false},
		{"relaxed valid", func(c *MatchingConfig) { *c = *RelaxedMatchingConfig() }, false},
		{"min score above one", func(c *MatchingConfig) { c.MinScore = 1.5 }, true},
		{"negative weight", func(c *MatchingConfig) { c.Weights.CodeWeight = -0.1 }, true},
		{"weights sum too low", func(c *MatchingConfig) {
			c.Weights = MatchingWeights{CodeWeight: 0.2, NameWeight: 0.2, HierarchyWeight: 0.1, TypeWeight: 0.1}
		}, true},
		{"related credit above one", func(c *MatchingConfig) { c.RelatedTypeCredit = 1.2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMatchingConfig()
			tt.modify(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
