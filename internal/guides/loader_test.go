package guides

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGuides(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLoadForPlatforms(t *testing.T) {
	dir := writeGuides(t, map[string]string{
		"COMMON_ISSUES.md":        "common issues body",
		"GUIDE_WCAG_REFERENCE.md": "wcag reference body",
		"GUIDE_ANDROID.md":        "android body",
		"GUIDE_WEB.md":            "web body",
		"GUIDE_REACT_NATIVE.md":   "rn body",
	})

	out := NewLoader(dir).LoadForPlatforms([]string{"Android"})
	assert.Contains(t, out, "# COMMON_ISSUES.md")
	assert.Contains(t, out, "common issues body")
	assert.Contains(t, out, "android body")
	assert.NotContains(t, out, "web body")
}

func TestLoadForPlatformsSkipsUnknown(t *testing.T) {
	dir := writeGuides(t, map[string]string{
		"COMMON_ISSUES.md": "common issues body",
	})

	out := NewLoader(dir).LoadForPlatforms([]string{"Commodore 64"})
	assert.Contains(t, out, "common issues body")
}

func TestLoadForPlatformsDeduplicatesSharedGuides(t *testing.T) {
	dir := writeGuides(t, map[string]string{
		"GUIDE_REACT_NATIVE.md": "rn body",
	})

	// Web and React Native both pull in the RN guide.
	out := NewLoader(dir).LoadForPlatforms([]string{"Web", "React Native"})
	assert.Equal(t, 1, strings.Count(out, "rn body"))
}

func TestLoadAllIncludesSubdirectories(t *testing.T) {
	dir := writeGuides(t, map[string]string{
		"COMMON_ISSUES.md":   "common issues body",
		"wcag/perceivable.md": "perceivable body",
		"patterns/forms.md":   "forms body",
	})

	out := NewLoader(dir).LoadAll()
	assert.Contains(t, out, "# wcag/perceivable.md")
	assert.Contains(t, out, "perceivable body")
	assert.Contains(t, out, "# patterns/forms.md")
	assert.Contains(t, out, "forms body")
}

func TestMissingDirectoryYieldsEmpty(t *testing.T) {
	out := NewLoader(filepath.Join(t.TempDir(), "nope")).LoadAll()
	assert.Empty(t, out)
}
