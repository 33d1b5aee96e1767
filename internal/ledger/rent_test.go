package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRentMinimumBalance(t *testing.T) {
	// (128 + 245) * 3480 * 2
	assert.Equal(t, uint64(2_596_080), DefaultRent.MinimumBalance(245))
	assert.Equal(t, uint64(890_880), DefaultRent.MinimumBalance(0))
}

func TestRentScalesWithSize(t *testing.T) {
	r := Rent{LamportsPerByteYear: 1, ExemptionYears: 1}
	assert.Equal(t, uint64(128), r.MinimumBalance(0))
	assert.Equal(t, uint64(228), r.MinimumBalance(100))
}

func TestAddBalance(t *testing.T) {
	got, err := AddBalance(10, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), got)

	_, err = AddBalance(MaxBalance, 1)
	assert.ErrorIs(t, err, ErrBalanceOverflow)

	_, err = AddBalance(0, MaxBalance+1)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
}

func TestMinimumBalanceSaturates(t *testing.T) {
	huge := Rent{LamportsPerByteYear: math.MaxUint64 / 2, ExemptionYears: 1}
	assert.Equal(t, uint64(math.MaxUint64), huge.MinimumBalance(245))

	manyYears := Rent{LamportsPerByteYear: 3480, ExemptionYears: math.MaxUint64 / 1000}
	assert.Equal(t, uint64(math.MaxUint64), manyYears.MinimumBalance(245))

	_, err := AddBalance(0, huge.MinimumBalance(245))
	assert.ErrorIs(t, err, ErrBalanceOverflow, "a saturated deposit is unaffordable")
}
