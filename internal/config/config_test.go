package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pcapentropy/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Capture.File)
	assert.Equal(t, 0, cfg.Capture.Limit)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.False(t, cfg.Report.IgnoreErrors)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Log.Outputs.File.Enabled)
	assert.Equal(t, 100, cfg.Log.Outputs.File.Rotation.MaxSizeMB)
	assert.False(t, cfg.Metrics.Summary)
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
pcapentropy:
  capture:
    file: "/tmp/trace.pcap"
    limit: 25
  filter:
    expression: "  udp and port 53 "
  report:
    format: "JSON"
    ignore_errors: true
  metrics:
    textfile: "/tmp/pcapentropy.prom"
    summary: true
  log:
    level: "DEBUG"
    format: "json"
    outputs:
      file:
        enabled: true
        path: "/tmp/pcapentropy.log"
        rotation:
          max_size_mb: 10
          max_backups: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/trace.pcap", cfg.Capture.File)
	assert.Equal(t, 25, cfg.Capture.Limit)
	assert.Equal(t, "udp and port 53", cfg.Filter.Expression)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.True(t, cfg.Report.IgnoreErrors)
	assert.Equal(t, "/tmp/pcapentropy.prom", cfg.Metrics.Textfile)
	assert.True(t, cfg.Metrics.Summary)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Log.Outputs.File.Enabled)
	assert.Equal(t, 10, cfg.Log.Outputs.File.Rotation.MaxSizeMB)
	assert.Equal(t, 2, cfg.Log.Outputs.File.Rotation.MaxBackups)
	assert.Equal(t, 30, cfg.Log.Outputs.File.Rotation.MaxAgeDays, "unset keys keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PCAPENTROPY_LOG_LEVEL", "error")
	t.Setenv("PCAPENTROPY_REPORT_FORMAT", "json")
	t.Setenv("PCAPENTROPY_CAPTURE_LIMIT", "3")

	path := writeConfig(t, `
pcapentropy:
  log:
    level: "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, 3, cfg.Capture.Limit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "log level",
			content: "pcapentropy:\n  log:\n    level: loud\n",
			want:    "invalid log level",
		},
		{
			name:    "log format",
			content: "pcapentropy:\n  log:\n    format: xml\n",
			want:    "invalid log format",
		},
		{
			name:    "report format",
			content: "pcapentropy:\n  report:\n    format: csv\n",
			want:    "invalid report format",
		},
		{
			name:    "negative limit",
			content: "pcapentropy:\n  capture:\n    limit: -1\n",
			want:    "capture.limit",
		},
		{
			name:    "file output without path",
			content: "pcapentropy:\n  log:\n    outputs:\n      file:\n        enabled: true\n        path: \"\"\n",
			want:    "log.outputs.file.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateEmptyReportFormat(t *testing.T) {
	cfg := Config{Log: LogConfig{Level: "info", Format: "text"}}
	require.NoError(t, cfg.ValidateAndApplyDefaults())
	assert.Equal(t, "text", cfg.Report.Format)
}
