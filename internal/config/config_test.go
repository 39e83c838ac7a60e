package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 5, cfg.Review.FilesPerBatch)
	assert.Equal(t, 20, cfg.Review.MaxAnchorDistance)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a11yreview.toml")
	content := `
[github]
token = "ghp_test"

[ai]
provider = "openai"
model = "gpt-4o"

[review]
files_per_batch = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, 3, cfg.Review.FilesPerBatch)
	// Untouched keys keep defaults.
	assert.Equal(t, "guides", cfg.Review.GuidesDir)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a11yreview.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ai]\nmodel = \"from-file\"\n"), 0o644))

	t.Setenv("A11YREVIEW_AI__MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AI.Model)
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a11yreview.toml")
	require.NoError(t, Init(path))
	assert.Error(t, Init(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "your-app-id", cfg.GitHub.AppID)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.GitHub.Token = "ghp_test"
		cfg.AI.APIKey = "key"
		return cfg
	}

	assert.NoError(t, Validate(valid()))

	noCreds := valid()
	noCreds.GitHub.Token = ""
	assert.Error(t, Validate(noCreds))

	appCreds := valid()
	appCreds.GitHub.Token = ""
	appCreds.GitHub.AppID = "1"
	appCreds.GitHub.PrivateKey = "pem"
	assert.NoError(t, Validate(appCreds))

	noKey := valid()
	noKey.AI.APIKey = ""
	assert.Error(t, Validate(noKey))

	ollama := valid()
	ollama.AI.Provider = "ollama"
	ollama.AI.APIKey = ""
	assert.NoError(t, Validate(ollama))

	badBatch := valid()
	badBatch.Review.FilesPerBatch = 0
	assert.Error(t, Validate(badBatch))
}
