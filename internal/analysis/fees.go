package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kosta-Git/stripe-csv/internal/amount"
	"github.com/Kosta-Git/stripe-csv/internal/model"
)

// SummaryHeader is the CSV header for the fees summary.
const SummaryHeader = "account_id,email,transaction_count,total_fees_eur"

// DefaultCurrency is the Currency column value expected by default.
const DefaultCurrency = "eur"

// Required columns in the export header. The export carries more (id,
// Created (UTC), Amount Refunded, ...); everything else is ignored.
const (
	colAmount   = "Amount"
	colCurrency = "Currency"
	colUserID   = "User ID"
	colEmail    = "User Email"
)

const (
	summaryFields  = 4
	colOutAcct     = 0
	colOutEmail    = 1
	colOutTxnCount = 2
	colOutTotal    = 3
)

// FeesAnalysis aggregates application fees per connected account.
type FeesAnalysis struct {
	opts Options
}

// NewFeesAnalysis creates a fees analysis with the given options.
func NewFeesAnalysis(opts Options) *FeesAnalysis {
	if opts.Currency == "" {
		opts.Currency = DefaultCurrency
	}
	return &FeesAnalysis{opts: opts}
}

// Name returns the analysis name.
func (a *FeesAnalysis) Name() string { return "fees" }

// Run reads the export, folds every valid row into its account summary, and
// writes the summary CSV. Rows that fail to parse are skipped and listed in
// the Result; a header missing a required column aborts the run before any
// output is written.
func (a *FeesAnalysis) Run(r io.Reader, w io.Writer) (Result, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		// Empty export: header-only summary.
		return Result{}, writeSummaries(w, nil)
	}
	if err != nil {
		return Result{}, fmt.Errorf("reading header: %w", err)
	}

	parser, err := newRowParser(header, a.opts.Currency)
	if err != nil {
		return Result{}, err
	}

	agg := newAggregator()
	var res Result
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		res.Rows++
		if err != nil {
			// Malformed CSV row (bad quoting, wrong field count).
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err})
			continue
		}

		fee, err := parser.parseRow(rec)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err})
			continue
		}
		agg.fold(fee)
	}

	summaries := agg.finalize(a.opts.SortOutput)
	res.Accounts = len(summaries)
	if err := writeSummaries(w, summaries); err != nil {
		return res, err
	}
	return res, nil
}

// rowParser binds required column names to their header positions.
type rowParser struct {
	idx      map[string]int
	currency string
}

func newRowParser(header []string, currency string) (*rowParser, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range []string{colAmount, colCurrency, colUserID, colEmail} {
		if _, ok := idx[col]; !ok {
			return nil, &MissingFieldError{Column: col}
		}
	}
	return &rowParser{idx: idx, currency: currency}, nil
}

// parseRow converts one data row into a FeeRecord. Pure: no cross-row state.
func (p *rowParser) parseRow(rec []string) (model.FeeRecord, error) {
	rawAmount := rec[p.idx[colAmount]]
	amt, err := amount.Parse(rawAmount)
	if err != nil {
		return model.FeeRecord{}, &InvalidAmountError{Raw: rawAmount, Err: err}
	}

	accountID := strings.TrimSpace(rec[p.idx[colUserID]])
	if accountID == "" {
		return model.FeeRecord{}, errors.New("empty User ID")
	}

	currency := strings.TrimSpace(rec[p.idx[colCurrency]])
	if !strings.EqualFold(currency, p.currency) {
		return model.FeeRecord{}, fmt.Errorf("unexpected currency %q", currency)
	}

	return model.FeeRecord{
		AccountID: accountID,
		Email:     rec[p.idx[colEmail]],
		Amount:    amt,
		Currency:  currency,
	}, nil
}

// aggregator accumulates one AccountSummary per account, preserving
// first-seen order.
type aggregator struct {
	byAccount map[string]*model.AccountSummary
	order     []string
}

func newAggregator() *aggregator {
	return &aggregator{byAccount: make(map[string]*model.AccountSummary)}
}

// fold merges one fee record into its account summary. Email always takes
// the incoming value, so the last row for an account wins.
func (a *aggregator) fold(fee model.FeeRecord) {
	s, ok := a.byAccount[fee.AccountID]
	if !ok {
		s = &model.AccountSummary{AccountID: fee.AccountID, TotalFees: decimal.Zero}
		a.byAccount[fee.AccountID] = s
		a.order = append(a.order, fee.AccountID)
	}
	s.Email = fee.Email
	s.TransactionCount++
	s.TotalFees = s.TotalFees.Add(fee.Amount)
}

// finalize returns summaries in first-seen order, or sorted by account ID.
func (a *aggregator) finalize(sorted bool) []model.AccountSummary {
	ids := a.order
	if sorted {
		ids = append([]string(nil), a.order...)
		sort.Strings(ids)
	}

	summaries := make([]model.AccountSummary, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, *a.byAccount[id])
	}
	return summaries
}

// writeSummaries writes the summary CSV (including header).
func writeSummaries(w io.Writer, summaries []model.AccountSummary) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(SummaryHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, s := range summaries {
		if err := cw.Write(marshalSummary(s)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// marshalSummary converts an AccountSummary to a CSV row.
func marshalSummary(s model.AccountSummary) []string {
	row := make([]string, summaryFields)
	row[colOutAcct] = s.AccountID
	row[colOutEmail] = s.Email
	row[colOutTxnCount] = strconv.Itoa(s.TransactionCount)
	row[colOutTotal] = s.TotalFees.StringFixed(2)
	return row
}
