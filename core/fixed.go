package core

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// WrappedI80F48 is the on-chain fixed-point format: a signed 128-bit integer
// scaled by 2^48, serialized as 16 little-endian bytes. Share values and risk
// weights cross the wire in this format. Conversion to decimal.Decimal is
// exact in both directions: x / 2^48 == x * 5^48 / 10^48.
type WrappedI80F48 [16]byte

var (
	fivePow48  = new(big.Int).Exp(big.NewInt(5), big.NewInt(48), nil)
	twoPow48   = new(big.Int).Lsh(big.NewInt(1), 48)
	i80f48Max  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	i80f48Min  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	twoPow48De = decimal.NewFromBigInt(twoPow48, 0)
)

// Decimal converts the wire value into an exact decimal.
func (w WrappedI80F48) Decimal() decimal.Decimal {
	raw := new(big.Int)
	buf := make([]byte, 16)
	// little endian to big endian
	for i := 0; i < 16; i++ {
		buf[15-i] = w[i]
	}
	raw.SetBytes(buf)
	// two's complement sign
	if buf[0]&0x80 != 0 {
		raw.Sub(raw, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return decimal.NewFromBigInt(new(big.Int).Mul(raw, fivePow48), -48)
}

// NewWrappedI80F48 encodes a decimal into the wire format. The value must be
// exactly representable (an integer multiple of 2^-48) and within range.
func NewWrappedI80F48(d decimal.Decimal) (WrappedI80F48, error) {
	scaled := d.Mul(twoPow48De)
	if !scaled.IsInteger() {
		return WrappedI80F48{}, ErrValueOutOfRange
	}
	raw := scaled.BigInt()
	if raw.Cmp(i80f48Max) > 0 || raw.Cmp(i80f48Min) < 0 {
		return WrappedI80F48{}, ErrValueOutOfRange
	}
	if raw.Sign() < 0 {
		raw = new(big.Int).Add(raw, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	var w WrappedI80F48
	buf := raw.Bytes()
	for i := 0; i < len(buf); i++ {
		w[i] = buf[len(buf)-1-i]
	}
	return w, nil
}

// QuantizeI80F48 rounds a decimal down to the nearest representable
// fixed-point value, for callers that need a best-effort encoding.
func QuantizeI80F48(d decimal.Decimal) decimal.Decimal {
	scaled := d.Mul(twoPow48De).Floor()
	return decimal.NewFromBigInt(new(big.Int).Mul(scaled.BigInt(), fivePow48), -48)
}

// SafeDiv divides a by b, signalling ErrDivisionByZero instead of panicking.
func SafeDiv(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return a.Div(b), nil
}

// NativeToUi converts a raw integer token amount into a decimal quantity
// using the mint's decimal count.
func NativeToUi(native uint64, mintDecimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(native).Shift(-int32(mintDecimals))
}

// UiToNative converts a decimal quantity into a raw integer token amount,
// truncating toward zero.
func UiToNative(ui decimal.Decimal, mintDecimals uint8) uint64 {
	shifted := ui.Shift(int32(mintDecimals)).Truncate(0)
	if shifted.Sign() <= 0 {
		return 0
	}
	return shifted.BigInt().Uint64()
}
