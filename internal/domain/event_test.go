package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveGroupingKey(t *testing.T) {
	key, ok := DeriveGroupingKey("api", "prod", "42")
	require.True(t, ok)
	require.Equal(t, GroupingKey("api:prod:42"), key)

	again, ok := DeriveGroupingKey("api", "prod", "42")
	require.True(t, ok)
	require.Equal(t, key, again, "same inputs must derive the same key")
}

func TestDeriveGroupingKeyDiffersPerComponent(t *testing.T) {
	base, _ := DeriveGroupingKey("api", "prod", "42")

	for _, tc := range []struct {
		name                        string
		project, environment, issue string
	}{
		{"different project", "web", "prod", "42"},
		{"different environment", "api", "staging", "42"},
		{"different issue", "api", "prod", "43"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := DeriveGroupingKey(tc.project, tc.environment, tc.issue)
			require.True(t, ok)
			require.NotEqual(t, base, key)
		})
	}
}

func TestDeriveGroupingKeyMissingIssueID(t *testing.T) {
	_, ok := DeriveGroupingKey("api", "prod", "")
	require.False(t, ok)
}

func TestDeriveGroupingKeyNoCaseFolding(t *testing.T) {
	upper, _ := DeriveGroupingKey("api", "Prod", "42")
	lower, _ := DeriveGroupingKey("api", "prod", "42")
	require.NotEqual(t, upper, lower)
}
