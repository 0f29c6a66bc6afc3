package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults uses defaults when the file does not exist
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:8080", cfg.Address())
	assert.Equal(t, "http://localhost:8080", cfg.URL())
	assert.Equal(t, 7, cfg.Reminders.DaysBefore)
	assert.Equal(t, 24*time.Hour, cfg.Reminders.Interval)
	assert.Equal(t, "stdout", cfg.Notifier.Provider)
	assert.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	assert.False(t, cfg.IMAP.Enabled)
	assert.True(t, cfg.Emails.IndexOnStartup)
	assert.Equal(t, filepath.Join(DataDir(), "warranty.db"), cfg.Database.Path)
}

// TestLoad_File reads values from YAML
func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
emails:
  path: /data/mail
imap:
  enabled: true
  host: imap.example.com
  username: me@example.com
  since_days: 30
reminders:
  days_before: 14
  interval: 6h
notifier:
  provider: ses
  ses:
    sender: alerts@example.com
logging:
  format: json
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/data/mail", cfg.Emails.Path)
	assert.True(t, cfg.IMAP.Enabled)
	assert.Equal(t, 993, cfg.IMAP.Port, "Unset keys keep defaults")
	assert.Equal(t, 30, cfg.IMAP.SinceDays)
	assert.Equal(t, 14, cfg.Reminders.DaysBefore)
	assert.Equal(t, 6*time.Hour, cfg.Reminders.Interval)
	assert.Equal(t, "alerts@example.com", cfg.Notifier.SES.Sender)
	assert.Equal(t, "json", cfg.Logging.Format)
}

// TestLoad_EnvOverride applies WARRANTY_ variables over the file
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WARRANTY_SERVER_PORT", "7070")
	t.Setenv("WARRANTY_EMAILS_PATH", "/env/mail")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/env/mail", cfg.Emails.Path)
}

// TestLoad_Invalid rejects unusable settings
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"unknown provider", "notifier:\n  provider: pigeon\n"},
		{"ses without sender", "notifier:\n  provider: ses\n"},
		{"imap without host", "imap:\n  enabled: true\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"zero lead time", "reminders:\n  days_before: 0\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

// TestNewLogger honours level and format
func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}
