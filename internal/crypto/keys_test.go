package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRefreshSecret(t *testing.T) {
	secret, err := GenerateRefreshSecret()
	require.NoError(t, err)
	assert.Len(t, secret, RefreshSecretSize*2)
	assert.Regexp(t, "^[a-f0-9]{128}$", secret)

	raw, err := hex.DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, raw, RefreshSecretSize)

	// Два секрета не должны совпадать
	other, err := GenerateRefreshSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}
