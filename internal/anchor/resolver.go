package anchor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/pkg/models"
)

// DefaultMaxDistance is how far an anchor match may sit from the proposed
// line before it is rejected as evidence for a different occurrence.
const DefaultMaxDistance = 20

// Resolver re-targets an issue's approximate line onto the commentable line
// that actually contains the referenced construct, using textual evidence
// from the diff instead of trusting the model's line number.
//
// Resolution is deterministic: identical inputs always produce the same line.
type Resolver struct {
	table Table
}

// NewResolver creates a resolver around an injected pattern table.
func NewResolver(table Table) *Resolver {
	return &Resolver{table: table}
}

// DefaultResolver uses the built-in pattern table.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultTable())
}

// elementNameRe pulls capitalized UI element names like "Slider" or
// "TextField" out of free text so they can be tried as call sites and tags.
var elementNameRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:Field|View|Button|Text|Icon|Slider|Switch|Toggle|Label))\b`)

// Candidates returns the ordered anchor candidates for an issue. An explicit
// anchor_text from the model is the sole candidate; otherwise candidates are
// inferred from keywords in the issue's free text via the pattern table for
// the file's platform.
func (r *Resolver) Candidates(issue models.Issue, fileExt string) []string {
	if a := strings.TrimSpace(issue.AnchorText); a != "" {
		return []string{a}
	}

	haystack := strings.ToLower(issue.Title + " " + issue.Description + " " + issue.SuggestedFix)
	var candidates []string
	seen := make(map[string]struct{})
	add := func(c string) {
		if _, dup := seen[c]; dup || c == "" {
			return
		}
		seen[c] = struct{}{}
		candidates = append(candidates, c)
	}

	platform := r.table.PlatformForExtension(fileExt)
	for _, rule := range r.table.Rules[platform] {
		if strings.Contains(haystack, rule.Keyword) {
			for _, p := range rule.Patterns {
				add(p)
			}
		}
	}

	// Capitalized element names mentioned verbatim in the issue text.
	for _, m := range elementNameRe.FindAllStringSubmatch(issue.Title+" "+issue.Description, -1) {
		name := m[1]
		add(name + "(")
		add("<" + name)
		add(name)
	}

	return candidates
}

type match struct {
	line     int
	distance int
	text     string
}

// ResolveLine finds the commentable line best matching the issue's anchor
// candidates. All candidates are searched case-sensitively first; only if
// none match at all is the search retried case-insensitively. Among matches
// the one closest to proposed wins, ties going to the smaller line number.
// A winner farther than maxDistance from proposed is rejected: an anchor far
// from the model's guess is untrustworthy.
func (r *Resolver) ResolveLine(
	issue models.Issue,
	lineTexts map[int]string,
	commentable []int,
	proposed int,
	fileExt string,
	maxDistance int,
) (int, string, bool) {
	if len(commentable) == 0 || len(lineTexts) == 0 {
		return 0, "", false
	}
	candidates := r.Candidates(issue, fileExt)
	if len(candidates) == 0 {
		return 0, "", false
	}

	lines := append([]int(nil), commentable...)
	sort.Ints(lines)

	matches := scan(candidates, lines, lineTexts, proposed, false)
	if len(matches) == 0 {
		matches = scan(candidates, lines, lineTexts, proposed, true)
	}
	if len(matches) == 0 {
		return 0, "", false
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.distance < best.distance || (m.distance == best.distance && m.line < best.line) {
			best = m
		}
	}
	if best.distance > maxDistance {
		log.Debug().
			Str("file_ext", fileExt).
			Int("proposed", proposed).
			Int("matched", best.line).
			Int("max_distance", maxDistance).
			Msg("anchor match too far from proposed line, discarding")
		return 0, "", false
	}
	return best.line, best.text, true
}

// scan collects every candidate match across all commentable lines. It does
// not stop at the first matching candidate: the union is what gets ranked.
func scan(candidates []string, lines []int, lineTexts map[int]string, proposed int, insensitive bool) []match {
	var out []match
	for _, ln := range lines {
		text := lineTexts[ln]
		if text == "" {
			continue
		}
		for _, cand := range candidates {
			matched, ok := matchCandidate(cand, text, insensitive)
			if !ok {
				continue
			}
			d := ln - proposed
			if d < 0 {
				d = -d
			}
			out = append(out, match{line: ln, distance: d, text: matched})
			break
		}
	}
	return out
}

// isRegexPattern reports whether a candidate should be compiled as a regular
// expression rather than searched as a literal substring.
func isRegexPattern(candidate string) bool {
	return strings.ContainsAny(candidate, `\[^$`)
}

func matchCandidate(candidate, text string, insensitive bool) (string, bool) {
	if !isRegexPattern(candidate) {
		if insensitive {
			if idx := strings.Index(strings.ToLower(text), strings.ToLower(candidate)); idx >= 0 {
				return text[idx : idx+len(candidate)], true
			}
			return "", false
		}
		if strings.Contains(text, candidate) {
			return candidate, true
		}
		return "", false
	}

	expr := candidate
	if insensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		// Invalid table entries are skipped, matching nothing.
		return "", false
	}
	if m := re.FindString(text); m != "" {
		return m, true
	}
	return "", false
}
