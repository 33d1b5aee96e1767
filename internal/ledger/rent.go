package ledger

import (
	"math"
	"math/bits"
)

// AccountStorageOverhead is the per-account metadata size charged on top of
// the data length.
const AccountStorageOverhead = 128

// Rent prices storage deposits.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent matches the reference cluster's rent-exempt pricing.
var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionYears:      2,
}

// MinimumBalance returns the deposit needed to back dataLen bytes.
// A product past uint64 saturates at math.MaxUint64, which no balance
// can cover.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	perYear, ok := mul(uint64(AccountStorageOverhead+dataLen), r.LamportsPerByteYear)
	if !ok {
		return math.MaxUint64
	}
	total, ok := mul(perYear, r.ExemptionYears)
	if !ok {
		return math.MaxUint64
	}
	return total
}

func mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}
