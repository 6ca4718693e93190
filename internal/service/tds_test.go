package service

import (
	"testing"

	"paylog/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTDS_ExactMode(t *testing.T) {
	tds, err := ComputeTDS(decStr("1000.00"), decStr("10"), model.RoundingExact)
	require.NoError(t, err)
	assert.True(t, tds.Equal(decStr("100.00")), "got %s", tds)

	// Fractional result stays at the cent in exact mode
	tds, err = ComputeTDS(decStr("22.98"), decStr("2"), model.RoundingExact)
	require.NoError(t, err)
	assert.True(t, tds.Equal(decStr("0.46")), "got %s", tds)
}

func TestComputeTDS_RoundUpCeilsToWholeUnit(t *testing.T) {
	tds, err := ComputeTDS(decStr("22.98"), decStr("2"), model.RoundingRoundUp)
	require.NoError(t, err)
	assert.True(t, tds.Equal(decStr("1")), "got %s", tds)

	// Already-whole amounts are unchanged by the ceil
	tds, err = ComputeTDS(decStr("1000.00"), decStr("10"), model.RoundingRoundUp)
	require.NoError(t, err)
	assert.True(t, tds.Equal(decStr("100")), "got %s", tds)
}

func TestComputeTDS_EmptyModeDefaultsToExact(t *testing.T) {
	tds, err := ComputeTDS(decStr("500"), decStr("5"), "")
	require.NoError(t, err)
	assert.True(t, tds.Equal(decStr("25")), "got %s", tds)
}

func TestComputeTDS_PercentageBounds(t *testing.T) {
	_, err := ComputeTDS(decStr("100"), decStr("-1"), model.RoundingExact)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = ComputeTDS(decStr("100"), decStr("100.01"), model.RoundingExact)
	assert.Equal(t, CodeValidation, CodeOf(err))

	// Boundaries are inclusive
	zero, err := ComputeTDS(decStr("100"), decStr("0"), model.RoundingExact)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	all, err := ComputeTDS(decStr("100"), decStr("100"), model.RoundingExact)
	require.NoError(t, err)
	assert.True(t, all.Equal(decStr("100")))
}

func TestComputeTDS_UnknownMode(t *testing.T) {
	_, err := ComputeTDS(decStr("100"), decStr("10"), "banker")
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestNetPayable(t *testing.T) {
	pct := decStr("10")
	inv := &model.Invoice{
		InvoiceAmount:   decStr("1000.00"),
		TDSApplicable:   true,
		TDSPercentage:   &pct,
		TDSRoundingMode: model.RoundingRoundUp,
	}
	assert.True(t, NetPayable(inv).Equal(decStr("900.00")), "got %s", NetPayable(inv))
	assert.True(t, TDSAmount(inv).Equal(decStr("100.00")))

	// No TDS → net payable equals gross
	plain := &model.Invoice{InvoiceAmount: decStr("22.98")}
	assert.True(t, NetPayable(plain).Equal(decStr("22.98")))
	assert.True(t, TDSAmount(plain).Equal(decimal.Zero))
}
