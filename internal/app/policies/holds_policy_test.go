package policies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiredHoldPolicy(t *testing.T) {
	p, err := ParseExpiredHoldPolicy("")
	require.NoError(t, err)
	assert.Equal(t, KeepPending, p)

	p, err = ParseExpiredHoldPolicy(" Cancel ")
	require.NoError(t, err)
	assert.Equal(t, CancelPending, p)

	_, err = ParseExpiredHoldPolicy("delete")
	assert.Error(t, err)
}
