package review

import (
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

var excludedExtensions = map[string]bool{
	".md":          true,
	".txt":         true,
	".gradle":      true,
	".properties":  true,
	".json":        true,
	".yaml":        true,
	".yml":         true,
	".plist":       true,
	".pbxproj":     true,
	".xcworkspace": true,
	".xcscheme":    true,
	".gitignore":   true,
	".disabled":    true,
	".lock":        true,
}

var excludedDirectories = []string{
	".github",
	"gradle/wrapper",
	".xcodeproj",
	".xcworkspace",
	"build",
	"dist",
}

var excludedFilenames = map[string]bool{
	"gradle.properties":    true,
	"gradlew":              true,
	"gradlew.bat":          true,
	"google-services.json": true,
	"Info.plist":           true,
	"Podfile":              true,
	"Podfile.lock":         true,
	"AndroidManifest.xml":  true,
}

// Non-layout Android resource XML carries no UI semantics worth reviewing.
var excludedXMLFragments = []string{
	"/res/values/",
	"/res/drawable/",
	"/res/mipmap/",
	"/res/xml/",
	"/res/raw/",
	"/res/menu/",
	"/res/anim/",
	"/res/animator/",
	"/res/color/",
	"/res/font/",
	"gradle/",
	"maven/",
}

// FilterReviewableFiles drops documentation, build configuration, and
// resource files, keeping only UI code worth an accessibility pass.
func FilterReviewableFiles(files []string) []string {
	var reviewable []string
	for _, filePath := range files {
		if !isReviewable(filePath) {
			log.Debug().Str("file", filePath).Msg("skipping non-reviewable file")
			continue
		}
		reviewable = append(reviewable, filePath)
	}
	return reviewable
}

func isReviewable(filePath string) bool {
	for _, dir := range excludedDirectories {
		if strings.HasPrefix(filePath, dir+"/") || strings.Contains(filePath, "/"+dir+"/") {
			return false
		}
	}

	filename := path.Base(filePath)
	if excludedFilenames[filename] {
		return false
	}

	if strings.HasSuffix(filePath, ".xml") {
		for _, fragment := range excludedXMLFragments {
			if strings.Contains(filePath, fragment) {
				return false
			}
		}
		return true
	}

	if excludedExtensions[strings.ToLower(path.Ext(filePath))] {
		return false
	}
	if strings.Contains(filename, "settings.gradle") || strings.HasSuffix(filename, ".gradle.kts") {
		return false
	}
	return true
}
