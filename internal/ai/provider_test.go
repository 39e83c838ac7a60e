package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a11yreview/internal/retry"
)

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeGenerator) GenerateText(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return f.replies[len(f.replies)-1], nil
}

func fastClient(g TextGenerator) *Client {
	c := NewClient(g)
	c.retryCfg = retry.Config{MaxRetries: 2, BaseDelay: 1, MaxDelay: 1, Multiplier: 1}
	return c
}

func TestReviewIssuesParsesReply(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`[{"file":"Foo.kt","line":13,"title":"Slider missing label","severity":"high","wcag_sc":"1.3.1"}]`}}

	issues, err := fastClient(gen).ReviewIssues(context.Background(), "prompt")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Foo.kt", issues[0].File)
	assert.Equal(t, 13, issues[0].Line)
}

func TestReviewIssuesRetriesTransientFailure(t *testing.T) {
	gen := &fakeGenerator{
		errs:    []error{errors.New("503 service unavailable"), nil},
		replies: []string{"", "[]"},
	}

	issues, err := fastClient(gen).ReviewIssues(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 2, gen.calls)
}

func TestReviewIssuesGivesUpAfterRetries(t *testing.T) {
	boom := errors.New("timeout")
	gen := &fakeGenerator{errs: []error{boom, boom, boom}, replies: []string{""}}

	_, err := fastClient(gen).ReviewIssues(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, gen.calls)
}

func TestReviewIssuesUnparseableReply(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"I could not review this."}}

	_, err := fastClient(gen).ReviewIssues(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestNewModelUnsupportedProvider(t *testing.T) {
	_, err := NewGenerator(context.Background(), Options{Provider: "mainframe"})
	assert.Error(t, err)
}
