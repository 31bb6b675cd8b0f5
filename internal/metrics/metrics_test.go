package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"account-reconciliation-service/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCurrentRatio(t *testing.T) {
	tests := []struct {
		name        string
		assets      string
		liabilities string
		want        string
	}{
		{"typical", "100000", "50000", "2"},
		{"zero liabilities", "100000", "0", "0"},
		{"zero assets", "0", "50000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentRatio(dec(tt.assets), dec(tt.liabilities))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("CurrentRatio(%s, %s) = %s, want %s", tt.assets, tt.liabilities, got, tt.want)
			}
		})
	}
}

func TestQuickRatio(t *testing.T) {
	tests := []struct {
		name        string
		assets      string
		liabilities string
		want        string
	}{
		{"applies liquidity factor", "100000", "50000", "1.6"},
		{"zero liabilities", "100000", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuickRatio(dec(tt.assets), dec(tt.liabilities))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("QuickRatio(%s, %s) = %s, want %s", tt.assets, tt.liabilities, got, tt.want)
			}
		})
	}
}

func TestGrossMargin(t *testing.T) {
	tests := []struct {
		name    string
		revenue string
		costs   string
		want    string
	}{
		{"typical", "500000", "200000", "0.6"},
		{"zero revenue", "0", "200000", "0"},
		{"costs exceed revenue", "100000", "150000", "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrossMargin(dec(tt.revenue), dec(tt.costs))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("GrossMargin(%s, %s) = %s, want %s", tt.revenue, tt.costs, got, tt.want)
			}
		})
	}
}

func TestCollectionRate(t *testing.T) {
	tests := []struct {
		name        string
		invoiced    string
		outstanding string
		want        string
	}{
		{"partially collected", "100000", "25000", "75"},
		{"fully collected", "100000", "0", "100"},
		{"nothing invoiced", "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CollectionRate(dec(tt.invoiced), dec(tt.outstanding))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("CollectionRate(%s, %s) = %s, want %s", tt.invoiced, tt.outstanding, got, tt.want)
			}
		})
	}
}

func TestComputeSnapshot(t *testing.T) {
	accounts := []*models.AccountRecord{
		{Code: "1000", Name: "Checking", Type: models.AccountTypeBank},
		{Code: "1200", Name: "Accounts Receivable", Type: models.AccountTypeReceivable},
		{Code: "2000", Name: "Accounts Payable", Type: models.AccountTypePayable},
		{Code: "4000", Name: "Sales", Type: models.AccountTypeRevenue},
		{Code: "5000", Name: "Office Supplies", Type: models.AccountTypeExpense},
	}

	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tx := func(id, code, amount string) *models.TransactionRecord {
		return &models.TransactionRecord{
			ID:          id,
			AccountCode: code,
			Amount:      dec(amount),
			Timestamp:   ts,
			Type:        models.TransactionTypeIncome,
		}
	}

	transactions := []*models.TransactionRecord{
		tx("t1", "1000", "80000"),
		tx("t2", "1200", "20000"),
		tx("t3", "2000", "50000"),
		tx("t4", "4000", "500000"),
		tx("t5", "5000", "200000"),
		tx("t6", "9999", "123"),
	}

	snapshot := Compute(transactions, accounts)

	if !snapshot.TotalsByType[models.AccountTypeBank].Equal(dec("80000")) {
		t.Errorf("bank total = %s, want 80000", snapshot.TotalsByType[models.AccountTypeBank])
	}
	if !snapshot.TotalsByType[models.AccountTypeOther].Equal(dec("123")) {
		t.Errorf("unknown-account total = %s, want 123", snapshot.TotalsByType[models.AccountTypeOther])
	}
	if !snapshot.NetIncome.Equal(dec("300000")) {
		t.Errorf("net income = %s, want 300000", snapshot.NetIncome)
	}
	if !snapshot.CurrentRatio.Equal(dec("2")) {
		t.Errorf("current ratio = %s, want 2", snapshot.CurrentRatio)
	}
	if !snapshot.QuickRatio.Equal(dec("1.6")) {
		t.Errorf("quick ratio = %s, want 1.6", snapshot.QuickRatio)
	}
	if !snapshot.GrossMargin.Equal(dec("0.6")) {
		t.Errorf("gross margin = %s, want 0.6", snapshot.GrossMargin)
	}
	if !snapshot.CollectionRate.Equal(dec("96")) {
		t.Errorf("collection rate = %s, want 96", snapshot.CollectionRate)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	snapshot := Compute(nil, nil)

	if !snapshot.NetIncome.IsZero() {
		t.Errorf("net income = %s, want 0", snapshot.NetIncome)
	}
	if !snapshot.CurrentRatio.IsZero() || !snapshot.QuickRatio.IsZero() {
		t.Error("ratios on empty input should be zero")
	}
	if !snapshot.GrossMargin.IsZero() || !snapshot.CollectionRate.IsZero() {
		t.Error("margin and collection rate on empty input should be zero")
	}
}
