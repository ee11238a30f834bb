package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBankFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQuestionBank(t *testing.T) {
	t.Run("plain questions", func(t *testing.T) {
		path := writeBankFile(t, "First question?\nSecond question?\n")
		questions, err := LoadQuestionBank(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"First question?", "Second question?"}, questions)
	})

	t.Run("comments and blank lines ignored", func(t *testing.T) {
		path := writeBankFile(t, "# interview bank\n\nOnly question?\n\n# trailing comment\n")
		questions, err := LoadQuestionBank(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Only question?"}, questions)
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		path := writeBankFile(t, "  padded question?  \n")
		questions, err := LoadQuestionBank(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"padded question?"}, questions)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadQuestionBank(filepath.Join(t.TempDir(), "missing.txt"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeBankFile(t, "# only comments\n\n")
		_, err := LoadQuestionBank(path)
		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AI: AIConfig{Provider: "gemini"},
			Server: ServerConfig{
				Port: "8080",
				TLS:  TLSConfig{Mode: "disabled"},
			},
			Store: StoreConfig{Path: "resumind.db"},
			App: AppConfig{
				LogLevel:         "info",
				DefaultFormat:    "json",
				SupportedFormats: []string{"json", "text", "markdown"},
			},
		}
	}

	t.Run("valid without API key", func(t *testing.T) {
		cfg := base()
		assert.NoError(t, cfg.Validate())
		assert.False(t, cfg.AI.Enabled())
	})

	t.Run("unsupported provider only matters with a key", func(t *testing.T) {
		cfg := base()
		cfg.AI.Provider = "openai"
		assert.NoError(t, cfg.Validate())

		cfg.AI.APIKey = "k"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing store path", func(t *testing.T) {
		cfg := base()
		cfg.Store.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid default format", func(t *testing.T) {
		cfg := base()
		cfg.App.DefaultFormat = "xml"
		assert.Error(t, cfg.Validate())
	})

	t.Run("tls server mode requires files", func(t *testing.T) {
		cfg := base()
		cfg.Server.TLS.Mode = "server"
		assert.Error(t, cfg.Validate())

		cfg.Server.TLS.CertFile = "cert.pem"
		cfg.Server.TLS.KeyFile = "key.pem"
		assert.NoError(t, cfg.Validate())
	})
}
