// Package metrics computes key financial ratios and per-account-type
// balance totals from transaction activity. All arithmetic stays in
// decimal; ratios with a zero denominator report zero rather than an
// error or a NaN.
package metrics

import (
	"github.com/shopspring/decimal"

	"account-reconciliation-service/internal/models"
)

// quick ratio approximates liquid assets by excluding an inventory share
var inventoryExclusionFactor = decimal.RequireFromString("0.8")

var hundred = decimal.NewFromInt(100)

// Snapshot aggregates transaction activity by account type and derives the
// standard liquidity and profitability ratios from it.
type Snapshot struct {
	TotalsByType   map[models.AccountType]decimal.Decimal `json:"totalsByType"`
	NetIncome      decimal.Decimal                        `json:"netIncome"`
	CurrentRatio   decimal.Decimal                        `json:"currentRatio"`
	QuickRatio     decimal.Decimal                        `json:"quickRatio"`
	GrossMargin    decimal.Decimal                        `json:"grossMargin"`
	CollectionRate decimal.Decimal                        `json:"collectionRate"`
}

// Compute joins transactions to accounts by account code and builds a
// metrics snapshot. Transactions referencing unknown accounts count under
// the "other" type.
func Compute(transactions []*models.TransactionRecord, accounts []*models.AccountRecord) *Snapshot {
	typeByCode := make(map[string]models.AccountType, len(accounts))
	for _, account := range accounts {
		typeByCode[account.Code] = account.Type
	}

	totals := make(map[models.AccountType]decimal.Decimal)
	for _, tx := range transactions {
		accountType, ok := typeByCode[tx.AccountCode]
		if !ok {
			accountType = models.AccountTypeOther
		}
		totals[accountType] = totals[accountType].Add(tx.Amount)
	}

	assets := totals[models.AccountTypeBank].Add(totals[models.AccountTypeReceivable])
	liabilities := totals[models.AccountTypePayable]
	revenue := totals[models.AccountTypeRevenue]
	expenses := totals[models.AccountTypeExpense]
	receivables := totals[models.AccountTypeReceivable]

	return &Snapshot{
		TotalsByType:   totals,
		NetIncome:      revenue.Sub(expenses),
		CurrentRatio:   CurrentRatio(assets, liabilities),
		QuickRatio:     QuickRatio(assets, liabilities),
		GrossMargin:    GrossMargin(revenue, expenses),
		CollectionRate: CollectionRate(revenue, receivables),
	}
}

// CurrentRatio is assets over liabilities, zero when liabilities are zero.
func CurrentRatio(assets, liabilities decimal.Decimal) decimal.Decimal {
	if liabilities.IsZero() {
		return decimal.Zero
	}
	return assets.Div(liabilities)
}

// QuickRatio is the current ratio restricted to liquid assets, applying
// the inventory exclusion factor to the asset total. Zero when liabilities
// are zero.
func QuickRatio(assets, liabilities decimal.Decimal) decimal.Decimal {
	if liabilities.IsZero() {
		return decimal.Zero
	}
	return assets.Mul(inventoryExclusionFactor).Div(liabilities)
}

// GrossMargin is (revenue - costs) over revenue, zero when revenue is zero.
func GrossMargin(revenue, costs decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return revenue.Sub(costs).Div(revenue)
}

// CollectionRate is the percentage of invoiced revenue already collected,
// with outstanding receivables counted as uncollected. Zero when nothing
// was invoiced.
func CollectionRate(invoiced, outstanding decimal.Decimal) decimal.Decimal {
	if invoiced.IsZero() || invoiced.IsNegative() {
		return decimal.Zero
	}
	return invoiced.Sub(outstanding).Div(invoiced).Mul(hundred)
}
