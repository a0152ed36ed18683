package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "alert-bridge", cfg.App.Name)
	require.Equal(t, "ai-to-fix", cfg.Bridge.TriggerTag)
	require.True(t, cfg.Bridge.CommentOnRepeatUpdate)
	require.False(t, cfg.Bridge.CreatePrimaryOnFirstEvent)
	require.Equal(t, 8, cfg.Bridge.PrimaryFrameLimit)
	require.Equal(t, 4, cfg.Bridge.SecondaryFrameLimit)
	require.Equal(t, "comment", cfg.Bridge.PrimaryUpdateStrategy)
	require.Equal(t, "patch", cfg.Bridge.SecondaryUpdateStrategy)
	require.Equal(t, "critical", cfg.GitLab.SeverityLabels["fatal"])
	require.Equal(t, "bug", cfg.GitLab.SeverityLabels["error"])
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRIGGER_TAG", "escalate-me")
	t.Setenv("COMMENT_ON_REPEAT_UPDATE", "false")
	t.Setenv("SEVERITY_LABELS", "warning=minor")
	t.Setenv("GITLAB_LABELS", "bridge, auto")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "escalate-me", cfg.Bridge.TriggerTag)
	require.False(t, cfg.Bridge.CommentOnRepeatUpdate)
	require.Equal(t, map[string]string{"warning": "minor"}, cfg.GitLab.SeverityLabels)
	require.Equal(t, []string{"bridge", "auto"}, cfg.GitLab.Labels)
}

func TestLoadRejectsMalformedSeverityLabels(t *testing.T) {
	t.Setenv("SEVERITY_LABELS", "justakey")
	_, err := Load()
	require.Error(t, err)
}
