package syncd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	require.Equal(t, "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ComputeHash(""))
	require.Equal(t, emptyHash, ComputeHash(""))

	// Determinism: identical content always hashes identically.
	require.Equal(t, ComputeHash("hello"), ComputeHash("hello"))
	require.NotEqual(t, ComputeHash("hello"), ComputeHash("Hello"))
}
