package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	got := Sign("S", "O1", "P1")
	assert.Len(t, got, 64)
	assert.Equal(t, got, Sign("S", "O1", "P1"))
	assert.NotEqual(t, got, Sign("S", "O1", "P2"))
	assert.NotEqual(t, got, Sign("other", "O1", "P1"))
}

func TestVerifySignature(t *testing.T) {
	g, err := NewRazorpay("rzp_test_key", "secret")
	require.NoError(t, err)

	sig := Sign("secret", "order_1", "pay_1")
	assert.True(t, g.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, g.VerifySignature("order_1", "pay_1", "tampered"))
	assert.False(t, g.VerifySignature("order_2", "pay_1", sig))
	assert.False(t, g.VerifySignature("order_1", "pay_1", ""))
}

func TestNewRazorpayRequiresCredentials(t *testing.T) {
	_, err := NewRazorpay("", "secret")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	_, err = NewRazorpay("key", "")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(100), ToMinorUnits(1))
	assert.Equal(t, int64(24000), ToMinorUnits(240))
	assert.Equal(t, int64(12345), ToMinorUnits(123.45))
	// Float money that would drift with naive multiplication.
	assert.Equal(t, int64(29), ToMinorUnits(0.29))
	assert.Equal(t, int64(0), ToMinorUnits(0))
}
