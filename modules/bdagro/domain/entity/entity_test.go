package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	s, err := ParseSelection("111, 98\n7,111")
	require.NoError(t, err)
	require.Equal(t, []int64{7, 98, 111}, s.IDs())
	require.True(t, s.Contains(98))
	require.False(t, s.Contains(5))

	empty, err := ParseSelection("")
	require.NoError(t, err)
	require.True(t, empty.IsEmpty())
	require.Empty(t, empty.IDs())

	_, err = ParseSelection("12,abc")
	require.Error(t, err)
}

func TestSelection_ZeroValue(t *testing.T) {
	var s Selection
	require.True(t, s.IsEmpty())
	require.False(t, s.Contains(1))
}
