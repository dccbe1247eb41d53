package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palvaroni/git-history-parser/pkg/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "-", cfg.Output.Path)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.False(t, cfg.Output.Append)
	assert.Equal(t, 0, cfg.History.Skip)
	assert.Equal(t, 0, cfg.History.MaxCommits)
	assert.Equal(t, 50, cfg.History.RenameThreshold)
	assert.False(t, cfg.History.Strict)
	assert.True(t, cfg.History.FirstParent)
	assert.False(t, cfg.Checkpoint.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 10, cfg.Telemetry.ShutdownTimeoutSec)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	configContent := `
output:
  path: "records.csv"
  format: "yaml"
  append: true

history:
  skip: 100
  max_commits: 500
  rename_threshold: 70
  strict: true

logging:
  level: "debug"
  format: "json"
`

	path := filepath.Join(t.TempDir(), "githist.yaml")
	err := os.WriteFile(path, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "records.csv", cfg.Output.Path)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.True(t, cfg.Output.Append)
	assert.Equal(t, 100, cfg.History.Skip)
	assert.Equal(t, 500, cfg.History.MaxCommits)
	assert.Equal(t, 70, cfg.History.RenameThreshold)
	assert.True(t, cfg.History.Strict)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "bad format",
			content: "output:\n  format: xml\n",
			wantErr: config.ErrInvalidFormat,
		},
		{
			name:    "rename threshold too high",
			content: "history:\n  rename_threshold: 150\n",
			wantErr: config.ErrInvalidRenameThreshold,
		},
		{
			name:    "rename threshold zero",
			content: "history:\n  rename_threshold: 0\n",
			wantErr: config.ErrInvalidRenameThreshold,
		},
		{
			name:    "negative skip",
			content: "history:\n  skip: -1\n",
			wantErr: config.ErrInvalidSkip,
		},
		{
			name:    "negative max commits",
			content: "history:\n  max_commits: -5\n",
			wantErr: config.ErrInvalidMaxCommits,
		},
		{
			name:    "bad log level",
			content: "logging:\n  level: verbose\n",
			wantErr: config.ErrInvalidLogLevel,
		},
		{
			name:    "bad log format",
			content: "logging:\n  format: xml\n",
			wantErr: config.ErrInvalidLogFormat,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "githist.yaml")
			err := os.WriteFile(path, []byte(tc.content), 0o644)
			require.NoError(t, err)

			_, err = config.LoadConfig(path)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRevalidateAfterOverride(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	cfg.History.RenameThreshold = 200

	err = config.Revalidate(cfg)
	require.ErrorIs(t, err, config.ErrInvalidRenameThreshold)
}
