package analysis

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalHeader = "Amount,Currency,User ID,User Email\n"

func runFees(t *testing.T, input string, opts Options) (Result, string) {
	t.Helper()
	var buf bytes.Buffer
	res, err := NewFeesAnalysis(opts).Run(strings.NewReader(input), &buf)
	require.NoError(t, err)
	return res, buf.String()
}

func TestFeesAnalysis_Sample(t *testing.T) {
	data, err := os.ReadFile("../../testdata/stripe_fees.csv")
	require.NoError(t, err)

	res, out := runFees(t, string(data), Options{})
	assert.Equal(t, 6, res.Rows)
	assert.Equal(t, 3, res.Accounts)
	assert.Empty(t, res.Skipped)

	assert.Equal(t, SummaryHeader+"\n"+
		"acct_2TEST002DEF456GHI,user2@example.com,2,2.50\n"+
		"acct_1TEST001ABC123XYZ,user1@example.com,2,1.50\n"+
		"acct_3TEST003JKL789MNO,user3.new@example.com,2,0.15\n", out)
}

func TestFeesAnalysis_TwoRowExample(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",eur,acct_1,user1@example.com\n" +
		"\"0,50\",eur,acct_2,user2@example.com\n"

	res, out := runFees(t, input, Options{})
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, res.Accounts)
	assert.Empty(t, res.Skipped)

	assert.Equal(t, SummaryHeader+"\n"+
		"acct_1,user1@example.com,1,0.25\n"+
		"acct_2,user2@example.com,1,0.50\n", out)
}

func TestFeesAnalysis_GroupsByAccount(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",eur,acct_1,a@example.com\n" +
		"\"0,25\",eur,acct_1,a@example.com\n" +
		"\"0,25\",eur,acct_1,a@example.com\n" +
		"\"0,50\",eur,acct_2,b@example.com\n"

	res, out := runFees(t, input, Options{})
	assert.Equal(t, 2, res.Accounts)
	assert.Contains(t, out, "acct_1,a@example.com,3,0.75\n")
	assert.Contains(t, out, "acct_2,b@example.com,1,0.50\n")
}

func TestFeesAnalysis_ExactSum(t *testing.T) {
	// 100 additions of 0,10 must sum to exactly 10.00, with no float drift.
	var sb strings.Builder
	sb.WriteString(minimalHeader)
	for i := 0; i < 100; i++ {
		sb.WriteString("\"0,10\",eur,acct_1,a@example.com\n")
	}

	res, out := runFees(t, sb.String(), Options{})
	assert.Equal(t, 100, res.Rows)
	assert.Contains(t, out, "acct_1,a@example.com,100,10.00\n")
}

func TestFeesAnalysis_EmailLastSeenWins(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",eur,acct_1,old@example.com\n" +
		"\"0,25\",eur,acct_1,new@example.com\n"

	_, out := runFees(t, input, Options{})
	assert.Contains(t, out, "acct_1,new@example.com,2,0.50\n")
	assert.NotContains(t, out, "old@example.com")
}

func TestFeesAnalysis_FirstSeenOrder(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",eur,acct_9,z@example.com\n" +
		"\"0,25\",eur,acct_1,a@example.com\n" +
		"\"0,25\",eur,acct_5,m@example.com\n"

	_, out := runFees(t, input, Options{})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "acct_9,"))
	assert.True(t, strings.HasPrefix(lines[2], "acct_1,"))
	assert.True(t, strings.HasPrefix(lines[3], "acct_5,"))
}

func TestFeesAnalysis_SortedOrder(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",eur,acct_9,z@example.com\n" +
		"\"0,25\",eur,acct_1,a@example.com\n" +
		"\"0,25\",eur,acct_5,m@example.com\n"

	_, out := runFees(t, input, Options{SortOutput: true})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "acct_1,"))
	assert.True(t, strings.HasPrefix(lines[2], "acct_5,"))
	assert.True(t, strings.HasPrefix(lines[3], "acct_9,"))
}

func TestFeesAnalysis_MissingColumnAborts(t *testing.T) {
	input := "Amount,Currency,User ID\n\"0,25\",eur,acct_1\n"

	var buf bytes.Buffer
	_, err := NewFeesAnalysis(Options{}).Run(strings.NewReader(input), &buf)
	require.Error(t, err)

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "User Email", missing.Column)

	// No partial output.
	assert.Empty(t, buf.String())
}

func TestFeesAnalysis_InvalidAmountSkipped(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",eur,acct_1,a@example.com\n" +
		"invalid,eur,acct_2,b@example.com\n" +
		"\"0,50\",eur,acct_3,c@example.com\n"

	res, out := runFees(t, input, Options{})
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 2, res.Accounts)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Line)

	var invalid *InvalidAmountError
	require.ErrorAs(t, res.Skipped[0].Err, &invalid)
	assert.Equal(t, "invalid", invalid.Raw)

	assert.NotContains(t, out, "acct_2")
	assert.Contains(t, out, "acct_3,c@example.com,1,0.50\n")
}

func TestFeesAnalysis_NegativeAmountSkipped(t *testing.T) {
	input := minimalHeader + "\"-0,25\",eur,acct_1,a@example.com\n"

	res, out := runFees(t, input, Options{})
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, SummaryHeader+"\n", out)
}

func TestFeesAnalysis_CurrencyMismatchSkipped(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",usd,acct_1,a@example.com\n" +
		"\"0,50\",eur,acct_2,b@example.com\n"

	res, out := runFees(t, input, Options{})
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Error(), "unexpected currency")
	assert.NotContains(t, out, "acct_1,")
	assert.Contains(t, out, "acct_2,")
}

func TestFeesAnalysis_CustomCurrency(t *testing.T) {
	input := minimalHeader + "\"0,25\",usd,acct_1,a@example.com\n"

	res, out := runFees(t, input, Options{Currency: "usd"})
	assert.Empty(t, res.Skipped)
	assert.Contains(t, out, "acct_1,a@example.com,1,0.25\n")
}

func TestFeesAnalysis_EmptyUserIDSkipped(t *testing.T) {
	input := minimalHeader + "\"0,25\",eur,,a@example.com\n"

	res, out := runFees(t, input, Options{})
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Error(), "empty User ID")
	assert.Equal(t, SummaryHeader+"\n", out)
}

func TestFeesAnalysis_FieldCountMismatchSkipped(t *testing.T) {
	input := minimalHeader +
		"\"0,25\",eur,acct_1\n" +
		"\"0,50\",eur,acct_2,b@example.com\n"

	res, out := runFees(t, input, Options{})
	assert.Equal(t, 2, res.Rows)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Line)
	assert.Contains(t, out, "acct_2,")
}

func TestFeesAnalysis_HeaderOnly(t *testing.T) {
	res, out := runFees(t, minimalHeader, Options{})
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, 0, res.Accounts)
	assert.Equal(t, SummaryHeader+"\n", out)
}

func TestFeesAnalysis_EmptyInput(t *testing.T) {
	res, out := runFees(t, "", Options{})
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, SummaryHeader+"\n", out)
}

func TestFeesAnalysis_IgnoresExtraColumns(t *testing.T) {
	input := "id,Amount,Amount Refunded,Currency,User ID,User Email,Extra\n" +
		"fee_1,\"0,25\",\"0,00\",eur,acct_1,a@example.com,whatever\n"

	res, out := runFees(t, input, Options{})
	assert.Empty(t, res.Skipped)
	assert.Contains(t, out, "acct_1,a@example.com,1,0.25\n")
}

func TestFeesAnalysis_Idempotent(t *testing.T) {
	data, err := os.ReadFile("../../testdata/stripe_fees.csv")
	require.NoError(t, err)

	_, first := runFees(t, string(data), Options{})
	_, second := runFees(t, string(data), Options{})
	assert.Equal(t, first, second)
}

func TestFeesAnalysis_Name(t *testing.T) {
	assert.Equal(t, "fees", NewFeesAnalysis(Options{}).Name())
}

func TestRowError_Unwrap(t *testing.T) {
	inner := &InvalidAmountError{Raw: "x", Err: errors.New("boom")}
	re := RowError{Line: 2, Err: inner}

	var invalid *InvalidAmountError
	assert.ErrorAs(t, re, &invalid)
	assert.Contains(t, re.Error(), "row 2")
}
