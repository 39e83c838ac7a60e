package batch

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/a11yreview/internal/diff"
)

// TokenCounter estimates model tokens for a piece of content.
type TokenCounter interface {
	CountTokens(content string) int
}

// SimpleTokenCounter estimates tokens from word count plus special
// characters. Coarser than a model tokenizer but good enough for budget
// planning.
type SimpleTokenCounter struct{}

var specialCharRe = regexp.MustCompile(`[.,!?;:(){}\[\]<>+\-*/=@#$%^&|~]`)

func (c *SimpleTokenCounter) CountTokens(content string) int {
	words := strings.Fields(content)
	specials := specialCharRe.FindAllString(content, -1)
	return len(words) + len(specials)
}

// Batch is one unit of review work: a set of files and their combined diff.
type Batch struct {
	Files         []string
	Diff          string
	TokenEstimate int
}

// Planner splits a phase's files into batches bounded by file count and an
// estimated token budget.
type Planner struct {
	FilesPerBatch  int
	MaxBatchTokens int
	counter        TokenCounter
	parser         *diff.Parser
}

func NewPlanner(filesPerBatch int) *Planner {
	if filesPerBatch <= 0 {
		filesPerBatch = 5
	}
	return &Planner{
		FilesPerBatch:  filesPerBatch,
		MaxBatchTokens: 10000,
		counter:        &SimpleTokenCounter{},
		parser:         diff.NewParser(),
	}
}

// Plan slices the PR diff per file and groups files into batches. Binary
// files and files without a diff section are skipped. A file whose diff
// alone exceeds the token budget still gets its own batch; the budget only
// stops further packing.
func (p *Planner) Plan(prDiff string, files []string) ([]Batch, error) {
	parsed, err := p.parser.Parse(prDiff)
	if err != nil {
		return nil, err
	}

	var batches []Batch
	var current Batch

	flush := func() {
		if len(current.Files) > 0 {
			batches = append(batches, current)
			current = Batch{}
		}
	}

	for _, file := range files {
		fileDiff, err := p.parser.FilterForFiles(prDiff, []string{file})
		if err != nil || fileDiff == "" {
			log.Debug().Str("file", file).Msg("no diff section for file, skipping")
			continue
		}
		if fd, ok := parsed.Files[file]; ok && fd.Binary {
			log.Debug().Str("file", file).Msg("skipping binary file")
			continue
		}
		if diff.IsBinaryContent(fileDiff) {
			log.Debug().Str("file", file).Msg("skipping non-textual diff content")
			continue
		}

		tokens := p.counter.CountTokens(fileDiff)
		if len(current.Files) > 0 &&
			(len(current.Files) >= p.FilesPerBatch || current.TokenEstimate+tokens > p.MaxBatchTokens) {
			flush()
		}

		if current.Diff != "" {
			current.Diff += "\n"
		}
		current.Files = append(current.Files, file)
		current.Diff += fileDiff
		current.TokenEstimate += tokens
	}
	flush()

	log.Debug().Int("files", len(files)).Int("batches", len(batches)).Msg("batches planned")
	return batches, nil
}
