package platform

import (
	"path"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/internal/diff"
)

// Platform names used for phased reviews.
const (
	Android     = "Android"
	IOS         = "iOS"
	Web         = "Web"
	ReactNative = "React Native"
	Flutter     = "Flutter"
)

// PhaseOrder is the fixed order platform phases run in. Batches must be fed
// into one run's posted set in this order so cross-phase duplicates dedupe
// deterministically.
var PhaseOrder = []string{Android, IOS, Web, ReactNative, Flutter}

var (
	rnImportRe = regexp.MustCompile(`(?:from\s+['"]react-native['"]|require\s*\(['"]react-native['"]\))`)
	rnTagRe    = regexp.MustCompile(`<(?:View|Text|TouchableOpacity|ScrollView|FlatList|Image|TextInput|SafeAreaView|Pressable)[\s>]`)
)

// detectReactNative decides whether a js/ts file belongs to React Native by
// looking at its diff slice for react-native imports or RN component tags.
func detectReactNative(filePath, prDiff string, parser *diff.Parser) bool {
	fileDiff, err := parser.FilterForFiles(prDiff, []string{filePath})
	if err != nil || fileDiff == "" {
		return false
	}
	if rnImportRe.MatchString(fileDiff) {
		log.Debug().Str("file", filePath).Msg("react-native import detected")
		return true
	}
	if rnTagRe.MatchString(fileDiff) {
		log.Debug().Str("file", filePath).Msg("react-native component detected")
		return true
	}
	return false
}

// Bucket groups changed files by platform. Extensions decide directly except
// for js/ts files, which are split between Web and React Native based on
// their diff content. Files matching no platform are omitted.
func Bucket(changedFiles []string, prDiff string) map[string][]string {
	parser := diff.NewParser()
	buckets := map[string][]string{
		Android:     {},
		IOS:         {},
		Web:         {},
		ReactNative: {},
		Flutter:     {},
	}

	for _, f := range changedFiles {
		switch strings.ToLower(path.Ext(f)) {
		case ".kt", ".java", ".xml":
			buckets[Android] = append(buckets[Android], f)
		case ".swift", ".m", ".mm":
			buckets[IOS] = append(buckets[IOS], f)
		case ".dart":
			buckets[Flutter] = append(buckets[Flutter], f)
		case ".css", ".html", ".htm":
			buckets[Web] = append(buckets[Web], f)
		case ".tsx", ".jsx", ".ts", ".js":
			if detectReactNative(f, prDiff, parser) {
				buckets[ReactNative] = append(buckets[ReactNative], f)
			} else {
				buckets[Web] = append(buckets[Web], f)
			}
		}
	}
	return buckets
}

// Phases returns the non-empty platform buckets in fixed phase order.
func Phases(buckets map[string][]string) []string {
	var phases []string
	for _, p := range PhaseOrder {
		if len(buckets[p]) > 0 {
			phases = append(phases, p)
		}
	}
	return phases
}
