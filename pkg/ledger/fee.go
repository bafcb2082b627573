package ledger

import (
	"math"
	"math/bits"
)

// Consultation pricing, in whole currency units.
const (
	FirstHourFee      uint64 = 3500
	AdditionalHourFee uint64 = 1500
	minutesPerHour    uint64 = 60
)

// ConsultationFee prices a consultation of the given length in minutes.
//
// A zero duration is free. Anything else pays FirstHourFee, plus
// AdditionalHourFee for every full hour past the first; a partial hour is
// dropped, so 61 to 120 minutes cost the same. The result saturates at
// math.MaxUint64 rather than wrapping.
func ConsultationFee(totalDuration uint64) uint64 {
	if totalDuration == 0 {
		return 0
	}
	fee := FirstHourFee
	if totalDuration <= minutesPerHour {
		return fee
	}
	additionalHours := (totalDuration - minutesPerHour) / minutesPerHour
	hi, extra := bits.Mul64(additionalHours, AdditionalHourFee)
	if hi != 0 {
		return math.MaxUint64
	}
	sum, carry := bits.Add64(fee, extra, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
