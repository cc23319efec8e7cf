package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDBKey_Deterministic(t *testing.T) {
	master := strings.Repeat("ab", 32)

	k1, err := DeriveDBKey(master)
	require.NoError(t, err)
	k2, err := DeriveDBKey(master)
	require.NoError(t, err)

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2)
}

func TestDeriveDBKey_DifferentMastersDiffer(t *testing.T) {
	k1, err := DeriveDBKey(strings.Repeat("ab", 32))
	require.NoError(t, err)
	k2, err := DeriveDBKey(strings.Repeat("cd", 32))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestDeriveDBKey_RejectsBadInput(t *testing.T) {
	_, err := DeriveDBKey("not-hex")
	assert.Error(t, err)

	_, err = DeriveDBKey("abcd")
	assert.Error(t, err)
}
