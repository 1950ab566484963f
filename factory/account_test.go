package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/icl-engine/engine"
	"github.com/warp/icl-engine/factory"
)

func TestParseAccount_Defaults(t *testing.T) {
	// GIVEN: Only a name and start date
	// WHEN: Parsing
	// THEN: House defaults fill the rest

	f := factory.NewAccountFactory()
	a, err := f.ParseAccount(`{"name": "Acme", "start_date": "2023-01-01"}`)
	require.NoError(t, err)

	assert.Equal(t, "12", a.AnnualRate.String())
	assert.Equal(t, "10", a.TDSRate.String())
	assert.Equal(t, "2", a.PenaltyRate.String())
	assert.Equal(t, engine.InterestCompound, a.InterestType)
	assert.Equal(t, engine.FrequencyQuarterly, a.Frequency)
	assert.Equal(t, engine.ConventionExclusive, a.RepaymentConvention)
	assert.Equal(t, 30, a.GracePeriodDays)
	assert.Equal(t, engine.StatusActive, a.Status)
	assert.Nil(t, a.EndDate)
}

func TestParseAccount_ExplicitValues(t *testing.T) {
	f := factory.NewAccountFactory()
	a, err := f.ParseAccount(`{
		"name": "Acme",
		"start_date": "2023-04-01",
		"end_date": "2024-03-31",
		"annual_rate": "9.75",
		"tds_rate": 0,
		"penalty_rate": 3,
		"interest_type": "simple",
		"frequency": "yearly",
		"repayment_convention": "inclusive",
		"grace_period_days": 0
	}`)
	require.NoError(t, err)

	assert.Equal(t, "9.75", a.AnnualRate.String())
	assert.True(t, a.TDSRate.IsZero(), "explicit zero is kept")
	assert.Equal(t, engine.InterestSimple, a.InterestType)
	assert.Equal(t, engine.FrequencyYearly, a.Frequency)
	assert.Equal(t, engine.ConventionInclusive, a.RepaymentConvention)
	assert.Equal(t, 0, a.GracePeriodDays)
	require.NotNil(t, a.EndDate)
	assert.Equal(t, engine.MustParseDate("2024-03-31"), *a.EndDate)
}

func TestParseAccount_EmptyEndDateIsOpenEnded(t *testing.T) {
	a, err := factory.NewAccountFactory().ParseAccount(`{"name": "Acme", "start_date": "2023-01-01", "end_date": ""}`)
	require.NoError(t, err)
	assert.Nil(t, a.EndDate)
}

func TestParseAccount_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"missing start", `{"name": "Acme"}`, engine.ErrMissingStartDate},
		{"unknown type", `{"start_date": "2023-01-01", "interest_type": "daily"}`, engine.ErrUnknownInterestType},
		{"unknown frequency", `{"start_date": "2023-01-01", "frequency": "weekly"}`, engine.ErrUnknownFrequency},
		{"unknown convention", `{"start_date": "2023-01-01", "repayment_convention": "both"}`, engine.ErrUnknownConvention},
		{"negative rate", `{"start_date": "2023-01-01", "annual_rate": -1}`, engine.ErrInvalidRate},
		{"tds over 100", `{"start_date": "2023-01-01", "tds_rate": 101}`, engine.ErrInvalidRate},
		{"end before start", `{"start_date": "2023-01-01", "end_date": "2022-12-31"}`, engine.ErrInvalidPeriod},
	}

	f := factory.NewAccountFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseAccount(tt.json)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseAccount_MalformedJSON(t *testing.T) {
	_, err := factory.NewAccountFactory().ParseAccount(`{"start_date": "01/01/2023"}`)
	assert.Error(t, err)
}

func TestParseInput(t *testing.T) {
	// GIVEN: An account with two transactions, one without an ID
	// WHEN: Parsing the bundle
	// THEN: Transactions keep order and get positional IDs

	data := []byte(`{
		"account": {"name": "Acme", "start_date": "2023-01-01"},
		"transactions": [
			{"id": "d1", "date": "2023-01-01", "description": "Disbursement", "paid": "100000", "received": 0},
			{"date": "2023-02-15", "description": "Repayment", "paid": 0, "received": "25000.50"}
		]
	}`)

	a, txs, err := factory.NewAccountFactory().ParseInput(data)
	require.NoError(t, err)
	assert.Equal(t, "Acme", a.Name)
	require.Len(t, txs, 2)
	assert.Equal(t, "d1", txs[0].ID)
	assert.Equal(t, "tx-2", txs[1].ID)
	assert.Equal(t, "25000.5", txs[1].Received.String())
	assert.True(t, txs[1].IsRepayment())
}

func TestParseInput_TransactionAfterEndDate(t *testing.T) {
	data := []byte(`{
		"account": {"start_date": "2023-01-01", "end_date": "2023-06-30"},
		"transactions": [{"date": "2023-07-01", "paid": "1"}]
	}`)

	_, _, err := factory.NewAccountFactory().ParseInput(data)
	assert.ErrorIs(t, err, engine.ErrTransactionAfterEndDate)
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewAccountFactory()
	a, err := f.ParseAccount(`{"name": "Acme", "start_date": "2023-01-01", "annual_rate": "11.5", "grace_period_days": 15}`)
	require.NoError(t, err)

	back, err := f.FromJSON(f.ToJSON(a))
	require.NoError(t, err)
	assert.Equal(t, a.Name, back.Name)
	assert.True(t, a.AnnualRate.Equal(back.AnnualRate))
	assert.Equal(t, 15, back.GracePeriodDays)
	assert.Equal(t, a.Frequency, back.Frequency)
}
