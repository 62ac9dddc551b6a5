package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconcileai/internal/models"
)

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr string
	}{
		{name: "two decimals", input: "120.00", want: 12000},
		{name: "negative", input: "-33.10", want: -3310},
		{name: "no decimals", input: "45", want: 4500},
		{name: "one decimal", input: "7.5", want: 750},
		{name: "sub-minor precision", input: "1.005", wantErr: "more than two decimal places"},
		{name: "not a number", input: "12,00", wantErr: "invalid decimal amount"},
		{name: "empty", input: "", wantErr: "value is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMinorUnits(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBankTransactionInputToModel(t *testing.T) {
	input := BankTransactionInput{
		TransactionID: "T-100",
		StatementID:   "stmt-1",
		Amount:        "-120.00",
		Date:          "2025-03-04",
		Description:   "Acme rent",
		Reference:     "RENT-01",
		Balance:       "880.50",
	}

	got, err := input.toModel()
	require.NoError(t, err)

	assert.Equal(t, int64(-12000), got.AmountMinor)
	assert.Equal(t, models.DirectionDebit, got.Direction())
	assert.Equal(t, "2025-03-04", got.Date.Format("2006-01-02"))
	require.NotNil(t, got.BalanceMinor)
	assert.Equal(t, int64(88050), *got.BalanceMinor)
}

func TestBankTransactionInputToModelRejections(t *testing.T) {
	valid := BankTransactionInput{
		TransactionID: "T-100",
		StatementID:   "stmt-1",
		Amount:        "-120.00",
		Date:          "2025-03-04",
	}

	tests := []struct {
		name    string
		mutate  func(*BankTransactionInput)
		wantErr string
	}{
		{"missing id", func(in *BankTransactionInput) { in.TransactionID = "" }, "transaction_id is required"},
		{"missing statement", func(in *BankTransactionInput) { in.StatementID = "" }, "statement_id is required"},
		{"zero amount", func(in *BankTransactionInput) { in.Amount = "0.00" }, "must be non-zero"},
		{"bad date", func(in *BankTransactionInput) { in.Date = "04/03/2025" }, "use YYYY-MM-DD"},
		{"bad balance", func(in *BankTransactionInput) { in.Balance = "abc" }, "balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			_, err := input.toModel()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAccountingEntryInputToModel(t *testing.T) {
	input := AccountingEntryInput{
		EntryID:     "E-1",
		Amount:      "120.00",
		Date:        "2025-03-04",
		AccountCode: "4000",
		Kind:        models.EntryKindInvoice,
	}

	got, err := input.toModel()
	require.NoError(t, err)
	assert.Equal(t, int64(12000), got.AmountMinor)
	assert.Equal(t, models.EntryKindInvoice, got.Kind)

	input.Kind = ""
	got, err = input.toModel()
	require.NoError(t, err)
	assert.Equal(t, models.EntryKindJournal, got.Kind)

	input.Kind = "receipt"
	_, err = input.toModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entry_kind")
}

func TestParseBankStatementCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"transaction_id,date,amount,description,reference,balance",
		"T-1,2025-03-04,-120.00,Acme rent,RENT-01,880.00",
		",2025-03-05,45.50,Refund,,925.50",
		"T-3,2025-03-06,not-a-number,Broken,,",
	}, "\n")

	inputs, parseErrors, err := ParseBankStatementCSV("stmt-9", strings.NewReader(csvData))
	require.NoError(t, err)
	require.Empty(t, parseErrors)
	require.Len(t, inputs, 3)

	assert.Equal(t, "T-1", inputs[0].TransactionID)
	assert.Equal(t, "stmt-9", inputs[0].StatementID)
	assert.Equal(t, "-120.00", inputs[0].Amount)

	// Missing transaction id is derived from statement and line number.
	assert.Equal(t, "stmt-9-3", inputs[1].TransactionID)

	// Bad amounts surface later, during per-record validation.
	_, err = inputs[2].toModel()
	require.Error(t, err)
}

func TestParseBankStatementCSVMissingColumn(t *testing.T) {
	csvData := "transaction_id,description\nT-1,no amounts here"

	_, _, err := ParseBankStatementCSV("stmt-9", strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "date"`)
}
