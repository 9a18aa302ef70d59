package testing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandString(t *testing.T) {
	require.Len(t, RandString(), 10)
	require.NotEqual(t, RandString(), RandString())
}

func TestRandEmail(t *testing.T) {
	email := RandEmail()
	require.True(t, strings.HasSuffix(email, "@example.com"))
	require.Equal(t, strings.ToLower(email), email)
}
