package diff

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/pkg/models"
)

var (
	// diff --git a/old/path b/new/path
	filePathRe = regexp.MustCompile(`\sb/(\S+)`)
	// @@ -oldStart[,oldLen] +newStart[,newLen] @@
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

// Result holds the parsed form of one unified diff. Files is keyed by the
// new-side path; Order preserves the order sections appeared in the input.
// Diagnostics accumulates non-fatal parse problems (malformed hunk headers).
type Result struct {
	Files       map[string]*models.FileDiff
	Order       []string
	Diagnostics []string
}

// Parser parses unified diff text into structured per-file data.
type Parser struct{}

// NewParser creates a new diff parser.
func NewParser() *Parser {
	return &Parser{}
}

// normalize removes CRLF and stray CR so hunk walking sees clean lines.
func normalize(diffText string) string {
	diffText = strings.ReplaceAll(diffText, "\r\n", "\n")
	return strings.ReplaceAll(diffText, "\r", "")
}

// Parse splits a unified diff into per-file sections and walks every hunk,
// assigning new-side line numbers to context and added lines. Binary file
// sections are kept with zero hunks. A malformed hunk header skips that hunk
// only and is recorded in Diagnostics.
//
// The only fatal condition is input that is not text at all.
func (p *Parser) Parse(diffText string) (*Result, error) {
	if strings.ContainsRune(diffText, 0) {
		return nil, fmt.Errorf("diff input is not text")
	}
	diffText = normalize(diffText)

	res := &Result{Files: make(map[string]*models.FileDiff)}
	if strings.TrimSpace(diffText) == "" {
		return res, nil
	}

	var current *models.FileDiff
	var sectionLines []string

	flush := func() {
		if current == nil {
			return
		}
		// Trailing blank lines belong to the join between sections, not the section.
		for len(sectionLines) > 0 && strings.TrimSpace(sectionLines[len(sectionLines)-1]) == "" {
			sectionLines = sectionLines[:len(sectionLines)-1]
		}
		current.RawSection = strings.Join(sectionLines, "\n")
		if _, dup := res.Files[current.Path]; !dup {
			res.Files[current.Path] = current
			res.Order = append(res.Order, current.Path)
		}
		current = nil
		sectionLines = nil
	}

	var hunk *models.DiffHunk
	newLine := 0

	closeHunk := func() {
		if hunk != nil && current != nil {
			current.Hunks = append(current.Hunks, *hunk)
		}
		hunk = nil
	}

	for _, line := range strings.Split(diffText, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			closeHunk()
			flush()
			if m := filePathRe.FindStringSubmatch(line); m != nil {
				current = &models.FileDiff{Path: m[1]}
				sectionLines = []string{line}
			} else {
				res.Diagnostics = append(res.Diagnostics,
					fmt.Sprintf("unparseable file header: %q", line))
			}
			continue
		}
		if current == nil {
			continue
		}
		sectionLines = append(sectionLines, line)

		if strings.HasPrefix(line, "Binary files ") || line == "GIT binary patch" {
			closeHunk()
			current.Binary = true
			current.Hunks = nil
			continue
		}
		if current.Binary {
			continue
		}

		if strings.HasPrefix(line, "@@") {
			closeHunk()
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				res.Diagnostics = append(res.Diagnostics,
					fmt.Sprintf("%s: malformed hunk header: %q", current.Path, line))
				continue
			}
			hunk = &models.DiffHunk{
				OldStart: atoiDefault(m[1], 0),
				OldLines: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 0),
				NewLines: atoiDefault(m[4], 1),
			}
			newLine = hunk.NewStart
			continue
		}

		if hunk == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// File headers inside a section terminate any open hunk.
			closeHunk()
		case strings.HasPrefix(line, "+"):
			hunk.Lines = append(hunk.Lines, models.DiffLine{
				Kind: models.LineAdded, Content: line[1:], NewNumber: newLine,
			})
			newLine++
		case strings.HasPrefix(line, "-"):
			hunk.Lines = append(hunk.Lines, models.DiffLine{
				Kind: models.LineRemoved, Content: line[1:],
			})
		case strings.HasPrefix(line, " "):
			hunk.Lines = append(hunk.Lines, models.DiffLine{
				Kind: models.LineContext, Content: line[1:], NewNumber: newLine,
			})
			newLine++
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file" - ignore.
		default:
			// Anything else ends the hunk (e.g. mode lines between hunks).
			if line != "" {
				closeHunk()
			}
		}
	}
	closeHunk()
	flush()

	if len(res.Diagnostics) > 0 {
		log.Debug().
			Int("files", len(res.Files)).
			Strs("diagnostics", res.Diagnostics).
			Msg("diff parsed with recoverable problems")
	}
	return res, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// FilterForFiles reconstructs a diff containing only the named files'
// sections, byte-identical to the corresponding slices of the original.
// Requested paths that differ from diff paths by leading directory
// components are matched by suffix, then by unique basename.
func (p *Parser) FilterForFiles(diffText string, filePaths []string) (string, error) {
	if len(filePaths) == 0 {
		return "", nil
	}
	parsed, err := p.Parse(diffText)
	if err != nil {
		return "", err
	}

	var sections []string
	for _, fp := range filePaths {
		matched := matchDiffPath(fp, parsed)
		if matched == "" {
			log.Debug().Str("file", fp).Msg("no diff section for requested file")
			continue
		}
		sections = append(sections, parsed.Files[matched].RawSection)
	}
	return strings.Join(sections, "\n"), nil
}

// matchDiffPath resolves a requested path against the paths present in the
// diff: exact match first, then an unambiguous suffix match, then a unique
// basename match.
func matchDiffPath(filePath string, parsed *Result) string {
	if _, ok := parsed.Files[filePath]; ok {
		return filePath
	}

	var suffixMatches []string
	for _, dp := range parsed.Order {
		switch {
		case strings.HasSuffix(dp, "/"+filePath) || strings.HasSuffix(filePath, "/"+dp):
			suffixMatches = append(suffixMatches, dp)
		case strings.HasSuffix(dp, filePath) || strings.HasSuffix(filePath, dp):
			if strings.Contains(filePath, "/") || strings.Contains(dp, "/") {
				suffixMatches = append(suffixMatches, dp)
			}
		}
	}
	if len(suffixMatches) == 1 {
		return suffixMatches[0]
	}
	if len(suffixMatches) > 1 {
		return ""
	}

	var basenameMatches []string
	base := path.Base(filePath)
	for _, dp := range parsed.Order {
		if path.Base(dp) == base {
			basenameMatches = append(basenameMatches, dp)
		}
	}
	if len(basenameMatches) == 1 {
		return basenameMatches[0]
	}
	return ""
}

// CommentableLines returns, per file, the sorted deduplicated new-side line
// numbers eligible for inline comments: added and context lines.
func (p *Parser) CommentableLines(diffText string) (map[string][]int, error) {
	parsed, err := p.Parse(diffText)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]int, len(parsed.Files))
	for pathKey, fd := range parsed.Files {
		seen := make(map[int]struct{})
		var lines []int
		for _, h := range fd.Hunks {
			for _, l := range h.Lines {
				if l.Kind == models.LineRemoved {
					continue
				}
				if _, dup := seen[l.NewNumber]; dup {
					continue
				}
				seen[l.NewNumber] = struct{}{}
				lines = append(lines, l.NewNumber)
			}
		}
		sort.Ints(lines)
		out[pathKey] = lines
	}
	return out, nil
}

// LineTexts returns, per file, the literal text at each commentable line.
// The map is only used for anchor pattern search within a batch.
func (p *Parser) LineTexts(diffText string) (map[string]map[int]string, error) {
	parsed, err := p.Parse(diffText)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[int]string, len(parsed.Files))
	for pathKey, fd := range parsed.Files {
		texts := make(map[int]string)
		for _, h := range fd.Hunks {
			for _, l := range h.Lines {
				if l.Kind == models.LineRemoved {
					continue
				}
				texts[l.NewNumber] = l.Content
			}
		}
		out[pathKey] = texts
	}
	return out, nil
}

// NearestCommentableLine returns the candidate closest to proposed. Ties are
// broken toward the smaller line number so repeated runs stay deterministic.
func NearestCommentableLine(proposed int, candidates []int) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	best := 0
	bestDist := -1
	for _, c := range candidates {
		d := c - proposed
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && c < best) {
			best = c
			bestDist = d
		}
	}
	return best, true
}

// CodeAnchor extracts a small snippet of new-side content around a line,
// used as extra context when formatting comments.
func (p *Parser) CodeAnchor(diffText, filePath string, lineNum, contextLines int) (string, error) {
	parsed, err := p.Parse(diffText)
	if err != nil {
		return "", err
	}
	fd, ok := parsed.Files[filePath]
	if !ok {
		return "", nil
	}

	type numbered struct {
		line    int
		content string
	}
	var buf []numbered
	for _, h := range fd.Hunks {
		for _, l := range h.Lines {
			if l.Kind == models.LineRemoved {
				continue
			}
			buf = append(buf, numbered{l.NewNumber, l.Content})
		}
	}
	for i, n := range buf {
		if n.line != lineNum {
			continue
		}
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(buf) {
			end = len(buf)
		}
		var snippet []string
		for _, s := range buf[start:end] {
			snippet = append(snippet, s.content)
		}
		return strings.TrimSpace(strings.Join(snippet, "\n")), nil
	}
	return "", nil
}

// IsBinaryContent reports whether content looks like binary data: a NUL byte
// or a high share of non-printable characters in the leading sample.
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}
	if strings.Contains(content, "\x00") {
		return true
	}
	sampleSize := 512
	if len(content) < sampleSize {
		sampleSize = len(content)
	}
	nonPrintable := 0
	for _, r := range content[:sampleSize] {
		if (r < 32 && r != 9 && r != 10 && r != 13) || r >= 127 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(sampleSize) > 0.3
}
