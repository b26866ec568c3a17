package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		cost     int
		wantCost int
		wantErr  error
	}{
		{
			name:     "default cost",
			password: "correct horse battery staple",
			cost:     DefaultPasswordCost,
			wantCost: DefaultPasswordCost,
		},
		{
			name:     "out of range cost falls back to default",
			password: "another-password",
			cost:     1,
			wantCost: DefaultPasswordCost,
		},
		{
			name:     "min cost",
			password: "fast-password",
			cost:     bcrypt.MinCost,
			wantCost: bcrypt.MinCost,
		},
		{
			name:     "empty password",
			password: "",
			cost:     DefaultPasswordCost,
			wantErr:  ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, tt.cost)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, hash)
				return
			}

			require.NoError(t, err)
			cost, err := bcrypt.Cost([]byte(hash))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, cost)
		})
	}
}

func TestHashPassword_Salted(t *testing.T) {
	// Один и тот же пароль дает разные хеши из-за соли
	h1, err := HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword("same-password", h1))
	assert.True(t, VerifyPassword("same-password", h2))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password", bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "matching password", password: "s3cret-password", hash: hash, want: true},
		{name: "wrong password", password: "s3cret-passwordX", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "empty hash", password: "s3cret-password", hash: "", want: false},
		{name: "malformed hash", password: "s3cret-password", hash: "not-a-bcrypt-hash", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.password, tt.hash))
		})
	}
}

func TestBurnPasswordCheck(t *testing.T) {
	assert.NotPanics(t, func() { BurnPasswordCheck("whatever") })
}
