package model

import "github.com/shopspring/decimal"

// FeeRecord represents one parsed application-fee row from a Stripe export.
type FeeRecord struct {
	AccountID string // connected account identifier (acct_...)
	Email     string
	Amount    decimal.Decimal // fee in major units, 2 decimal places
	Currency  string
}

// AccountSummary is the per-account aggregate emitted in the summary CSV.
type AccountSummary struct {
	AccountID        string
	Email            string
	TransactionCount int
	TotalFees        decimal.Decimal
}
