package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrappedI80F48RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value decimal.Decimal
	}{
		{name: "zero", value: decimal.Zero},
		{name: "one", value: decimal.NewFromInt(1)},
		{name: "negative one", value: decimal.NewFromInt(-1)},
		{name: "half", value: decimal.NewFromFloat(0.5)},
		{name: "negative fraction", value: decimal.NewFromFloat(-2.25)},
		{name: "large", value: decimal.NewFromInt(1_000_000_000)},
		{name: "share value style", value: decimal.NewFromFloat(1.046875)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWrappedI80F48(tt.value)
			require.NoError(t, err)
			got := w.Decimal()
			assert.True(t, got.Equal(tt.value), "expected %s, got %s", tt.value, got)
		})
	}
}

func TestWrappedI80F48DecodeKnownBytes(t *testing.T) {
	// 1.0 in I80F48 is 2^48: byte 6 set, little endian.
	var one WrappedI80F48
	one[6] = 1
	assert.True(t, one.Decimal().Equal(decimal.NewFromInt(1)))

	// -1.0 is the two's complement of 2^48.
	var negOne WrappedI80F48
	for i := 7; i < 16; i++ {
		negOne[i] = 0xff
	}
	assert.True(t, negOne.Decimal().Equal(decimal.NewFromInt(-1)))

	// 0.5 is 2^47.
	var half WrappedI80F48
	half[5] = 0x80
	assert.True(t, half.Decimal().Equal(decimal.NewFromFloat(0.5)))
}

func TestNewWrappedI80F48Unrepresentable(t *testing.T) {
	_, err := NewWrappedI80F48(decimal.NewFromFloat(0.1))
	assert.ErrorIs(t, err, ErrValueOutOfRange)

	// quantize first, then it encodes
	q := QuantizeI80F48(decimal.NewFromFloat(0.1))
	_, err = NewWrappedI80F48(q)
	assert.NoError(t, err)
	assert.True(t, q.LessThanOrEqual(decimal.NewFromFloat(0.1)))
	assert.True(t, q.GreaterThan(decimal.NewFromFloat(0.0999999)))
}

func TestSafeDiv(t *testing.T) {
	_, err := SafeDiv(ONE, decimal.Zero)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	out, err := SafeDiv(decimal.NewFromInt(10), decimal.NewFromInt(4))
	assert.NoError(t, err)
	assert.True(t, out.Equal(decimal.NewFromFloat(2.5)))
}

func TestNativeUiConversions(t *testing.T) {
	assert.True(t, NativeToUi(1_500_000, 6).Equal(decimal.NewFromFloat(1.5)))
	assert.Equal(t, uint64(1_500_000), UiToNative(decimal.NewFromFloat(1.5), 6))
	// truncation toward zero, not rounding
	assert.Equal(t, uint64(1), UiToNative(decimal.NewFromFloat(0.0000019), 6))
	assert.Equal(t, uint64(0), UiToNative(decimal.NewFromFloat(-3), 6))
}
