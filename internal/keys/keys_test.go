package keys

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProjectKeys(t *testing.T) {
	pair, err := GenerateProjectKeys("fac001")
	require.NoError(t, err)

	pub, err := hex.DecodeString(pair.PublicKey)
	require.NoError(t, err)
	priv, err := hex.DecodeString(pair.PrivateKey)
	require.NoError(t, err)

	assert.Len(t, pub, 32)
	assert.Len(t, priv, 32)
	assert.NotEqual(t, pair.PublicKey, pair.PrivateKey)
}

func TestKeysAreFreshPerCall(t *testing.T) {
	// Same project id twice must not yield the same material: the id is
	// metadata, not a seed.
	a, err := GenerateProjectKeys("fac001")
	require.NoError(t, err)
	b, err := GenerateProjectKeys("fac001")
	require.NoError(t, err)

	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
	assert.NotEqual(t, a.PublicKey, b.PublicKey)
}
