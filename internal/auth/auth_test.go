package auth

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	ok, err := h.Compare(hash, "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasherMalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	ok, err := h.Compare("not-a-hash", "x")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewHasherCostFallback(t *testing.T) {
	tests := []struct {
		cost int
		want int
	}{
		{cost: 0, want: bcrypt.DefaultCost},
		{cost: 100, want: bcrypt.DefaultCost},
		{cost: bcrypt.MinCost, want: bcrypt.MinCost},
		{cost: 12, want: 12},
	}
	for _, tt := range tests {
		if got := NewHasher(tt.cost).cost; got != tt.want {
			t.Errorf("NewHasher(%d).cost = %d, want %d", tt.cost, got, tt.want)
		}
	}
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, otp, 4)
		n, err := strconv.Atoi(otp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}

func TestGenerateLinkToken(t *testing.T) {
	a := GenerateLinkToken("user-1")
	b := GenerateLinkToken("user-1")

	assert.True(t, strings.HasSuffix(a, "user-1"))
	assert.Len(t, a, 36+len("user-1"))
	assert.NotEqual(t, a, b)
}
