package domain

// Service fee schedule. Transfers up to the ceiling pay a flat fee;
// above it the fee is a percentage of the amount, rounded half-up to
// the nearest centavo. The same function is used for the review screen
// and at commit time, so the displayed fee is the charged fee.
const (
	FlatFeeCeiling = 25_00 // R$ 25.00
	FlatFee        = 50    // R$ 0.50

	// 2.8% expressed as a rational to keep the math on int64.
	feeRateNum = 28
	feeRateDen = 1000
)

// ComputeFee returns the service fee for a transfer amount in centavos.
func ComputeFee(amount int64) int64 {
	if amount <= FlatFeeCeiling {
		return FlatFee
	}
	return (amount*feeRateNum + feeRateDen/2) / feeRateDen
}

// ComputeTotal returns the full amount debited from the payer.
func ComputeTotal(amount int64) int64 {
	return amount + ComputeFee(amount)
}
