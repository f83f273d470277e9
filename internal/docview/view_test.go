package docview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/docview/internal/models"
)

type memClipboard struct {
	texts []string
	err   error
}

func (c *memClipboard) WriteText(text string) error {
	c.texts = append(c.texts, text)
	return c.err
}

func newTestView(f *fakeFetcher, a *stubAsker, cb Clipboard) *View {
	return NewView(NewLoader(f, WithClock(clock)), NewSession(a, nil), cb, nil)
}

func TestView_OpenSeedsSessionWithEmbeddedQueries(t *testing.T) {
	f := loanFetcher()
	f.recs[5].Queries = []models.Query{{Question: "Who is the lender?", Answer: "Acme Bank"}}
	v := newTestView(f, &stubAsker{answer: "5%"}, nil)

	require.NoError(t, v.Open(context.Background(), "5"))
	snap := v.Session().Snapshot()
	assert.Equal(t, 5, snap.DocumentID)
	require.Len(t, snap.Queries, 1)
	assert.Equal(t, "Acme Bank", snap.Queries[0].Answer)

	_, err := v.Session().Submit(context.Background(), "What is the interest rate?")
	require.NoError(t, err)
	snap = v.Session().Snapshot()
	require.Len(t, snap.Queries, 2)
	assert.Equal(t, "What is the interest rate?", snap.Queries[0].Question)

	// Submissions do not touch the loaded document.
	assert.Len(t, v.Loader().State().Document.Queries, 1)
}

func TestView_OpenSameIDKeepsHistory(t *testing.T) {
	f := loanFetcher()
	v := newTestView(f, &stubAsker{answer: "A"}, nil)
	ctx := context.Background()

	require.NoError(t, v.Open(ctx, "5"))
	_, err := v.Session().Submit(ctx, "Q")
	require.NoError(t, err)
	require.NoError(t, v.Open(ctx, "5"))

	assert.Len(t, v.Session().Snapshot().Queries, 1)
	assert.Equal(t, 1, f.callCount())
}

func TestView_OpenEquivalentIDKeepsHistory(t *testing.T) {
	f := loanFetcher()
	v := newTestView(f, &stubAsker{answer: "A"}, nil)
	ctx := context.Background()

	require.NoError(t, v.Open(ctx, "5"))
	_, err := v.Session().Submit(ctx, "Q")
	require.NoError(t, err)
	require.NoError(t, v.Open(ctx, " 5"))
	require.NoError(t, v.Open(ctx, "05"))

	assert.Len(t, v.Session().Snapshot().Queries, 1)
	assert.Equal(t, 1, f.callCount())
}

func TestView_FailedOpenUnbindsSession(t *testing.T) {
	f := loanFetcher()
	a := &stubAsker{answer: "A"}
	v := newTestView(f, a, nil)
	ctx := context.Background()

	require.NoError(t, v.Open(ctx, "5"))
	require.Error(t, v.Open(ctx, "404"))

	got, err := v.Session().Submit(ctx, "anyone there?")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, a.callCount())
	assert.NotEmpty(t, v.Loader().State().Err)
}

func TestView_SubmitFailureLeavesLoaderUntouched(t *testing.T) {
	v := newTestView(loanFetcher(), &stubAsker{err: errors.New("Query failed")}, nil)
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, "5"))

	_, err := v.Session().Submit(ctx, "Q")
	require.Error(t, err)
	st := v.Loader().State()
	assert.Empty(t, st.Err)
	assert.True(t, st.Loaded)
	assert.Equal(t, "Query failed", v.Session().Snapshot().Err)
}

func TestView_Copy(t *testing.T) {
	f := loanFetcher()
	f.recs[5].Content = strPtr("Full text")
	cb := &memClipboard{err: errors.New("no terminal")}
	v := newTestView(f, &stubAsker{}, cb)
	require.NoError(t, v.Open(context.Background(), "5"))

	v.CopySummary()
	v.CopyContent()
	assert.Equal(t, []string{"Loan terms", "Full text"}, cb.texts)
}

func TestView_CopyWithoutClipboard(t *testing.T) {
	v := newTestView(loanFetcher(), &stubAsker{}, nil)
	require.NoError(t, v.Open(context.Background(), "5"))
	assert.NotPanics(t, v.CopySummary)
}
