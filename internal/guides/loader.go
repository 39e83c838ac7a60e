package guides

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Common guides included in every prompt regardless of platform.
var commonGuides = []string{
	"COMMON_ISSUES.md",
	"GUIDE_WCAG_REFERENCE.md",
}

// Guides loaded only by LoadAll, in addition to the common and platform sets.
var auditGuides = []string{
	"COMPREHENSIVE_AUDIT_WORKFLOW.md",
	"CODE_REFERENCES_AND_SCREENSHOTS.md",
}

// platformGuides maps a platform phase name to its guide files.
var platformGuides = map[string][]string{
	"android":      {"GUIDE_ANDROID.md", "GUIDE_ANDROID_TV.md"},
	"ios":          {"GUIDE_IOS.md", "GUIDE_TVOS.md"},
	"web":          {"GUIDE_WEB.md", "GUIDE_REACT_NATIVE.md"},
	"flutter":      {"GUIDE_FLUTTER.md"},
	"react native": {"GUIDE_REACT_NATIVE.md"},
}

// Loader reads accessibility guide documents from a directory and combines
// them into prompt context. Missing files are skipped, not errors: guides are
// optional context and a partial set still produces a usable prompt.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = "guides"
	}
	return &Loader{dir: dir}
}

// LoadAll combines every known guide plus the wcag/ and patterns/
// subdirectories into a single string.
func (l *Loader) LoadAll() string {
	var sections []string

	for _, name := range commonGuides {
		sections = l.appendGuide(sections, name)
	}
	for _, name := range auditGuides {
		sections = l.appendGuide(sections, name)
	}

	platforms := make([]string, 0, len(platformGuides))
	for p := range platformGuides {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	seen := make(map[string]bool)
	for _, p := range platforms {
		for _, name := range platformGuides[p] {
			if !seen[name] {
				seen[name] = true
				sections = l.appendGuide(sections, name)
			}
		}
	}

	sections = append(sections, l.loadDir("wcag")...)
	sections = append(sections, l.loadDir("patterns")...)

	return strings.Join(sections, "\n")
}

// LoadForPlatforms combines the common guides with the guides for the given
// platform phases. Unknown platforms contribute nothing.
func (l *Loader) LoadForPlatforms(platforms []string) string {
	var sections []string

	for _, name := range commonGuides {
		sections = l.appendGuide(sections, name)
	}

	seen := make(map[string]bool)
	for _, platform := range platforms {
		names, ok := platformGuides[strings.ToLower(platform)]
		if !ok {
			log.Debug().Str("platform", platform).Msg("no guides for platform")
			continue
		}
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				sections = l.appendGuide(sections, name)
			}
		}
	}

	return strings.Join(sections, "\n")
}

func (l *Loader) appendGuide(sections []string, name string) []string {
	content, ok := l.read(filepath.Join(l.dir, name))
	if !ok {
		return sections
	}
	return append(sections, fmt.Sprintf("\n\n# %s\n\n%s", name, content))
}

// loadDir loads every .md file under a guide subdirectory, sorted by name.
func (l *Loader) loadDir(sub string) []string {
	entries, err := os.ReadDir(filepath.Join(l.dir, sub))
	if err != nil {
		return nil
	}
	var sections []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, ok := l.read(filepath.Join(l.dir, sub, entry.Name()))
		if !ok {
			continue
		}
		sections = append(sections, fmt.Sprintf("\n\n# %s/%s\n\n%s", sub, entry.Name(), content))
	}
	return sections
}

func (l *Loader) read(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("reading guide failed")
		}
		return "", false
	}
	return string(data), true
}
