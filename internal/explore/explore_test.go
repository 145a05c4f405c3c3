package explore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"snapgram/internal/debounce"
	"snapgram/internal/models"
	"snapgram/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) elapse() {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// backend serves posts newest first and counts calls.
type backend struct {
	mu          sync.Mutex
	posts       []models.Post
	feedCalls   int
	feedErr     error
	searchCalls map[string]int
	searchGate  chan struct{}
	searchErr   error
}

func newBackend(captions ...string) *backend {
	b := &backend{searchCalls: map[string]int{}}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := len(captions) - 1; i >= 0; i-- {
		b.posts = append(b.posts, models.Post{
			ID:        fmt.Sprintf("p%02d", i),
			Caption:   captions[i],
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return b
}

func (b *backend) feed(_ context.Context, cursor string) (*models.DocumentList[models.Post], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.feedCalls++
	if b.feedErr != nil {
		return nil, b.feedErr
	}
	start := 0
	if cursor != "" {
		for i, p := range b.posts {
			if p.ID == cursor {
				start = i + 1
			}
		}
	}
	end := min(start+2, len(b.posts))
	return &models.DocumentList[models.Post]{Total: int64(len(b.posts)), Documents: append([]models.Post(nil), b.posts[start:end]...)}, nil
}

func (b *backend) search(_ context.Context, term string) (*models.DocumentList[models.Post], error) {
	b.mu.Lock()
	b.searchCalls[term]++
	gate, err := b.searchGate, b.searchErr
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Post{}
	for _, p := range b.posts {
		if strings.Contains(strings.ToLower(p.Caption), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return &models.DocumentList[models.Post]{Total: int64(len(out)), Documents: out}, nil
}

func (b *backend) calls() (int, map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := map[string]int{}
	for k, v := range b.searchCalls {
		cp[k] = v
	}
	return b.feedCalls, cp
}

// wallClock is the query client's clock.
type wallClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *wallClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *wallClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newExplore(t *testing.T, b *backend) (*Explore, *manualClock) {
	t.Helper()
	return newExploreWithClient(t, b, query.NewClient())
}

func newExploreWithClient(t *testing.T, b *backend, client *query.Client) (*Explore, *manualClock) {
	t.Helper()
	clock := &manualClock{}
	e := New(context.Background(), Config{
		Client:          client,
		Feed:            b.feed,
		Search:          b.search,
		PageSize:        2,
		DebounceOptions: []debounce.Option{debounce.WithAfterFunc(clock.AfterFunc)},
	})
	t.Cleanup(e.Close)
	return e, clock
}

func captions(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Caption
	}
	return out
}

func TestView_LoadingBeforeFirstPage(t *testing.T) {
	b := newBackend("a")
	e, _ := newExplore(t, b)
	assert.Equal(t, ModeLoading, e.View().Mode)

	e.Wait()
	assert.Equal(t, ModeBrowse, e.View().Mode)
	feedCalls, _ := b.calls()
	assert.Equal(t, 1, feedCalls)
}

func TestView_FailedFirstPageIsNotRetriedByView(t *testing.T) {
	b := newBackend("a")
	failing := errors.New("platform down")
	b.feedErr = failing
	e, _ := newExplore(t, b)
	ctx := context.Background()
	require.ErrorIs(t, e.Load(ctx), failing)

	v := e.View()
	e.Wait()
	assert.Equal(t, ModeLoading, v.Mode)
	assert.ErrorIs(t, v.Err, failing)
	feedCalls, _ := b.calls()
	assert.Equal(t, 1, feedCalls)

	b.mu.Lock()
	b.feedErr = nil
	b.mu.Unlock()
	require.NoError(t, e.OnVisible(ctx, true))
	assert.Equal(t, ModeBrowse, e.View().Mode)
}

func TestView_EndOfPostsOnEmptyFeed(t *testing.T) {
	b := newBackend()
	e, _ := newExplore(t, b)
	ctx := context.Background()

	require.NoError(t, e.Load(ctx))
	v := e.View()
	assert.Equal(t, ModeEndOfPosts, v.Mode)
	assert.Equal(t, EndOfPostsMessage, v.Message)
	assert.False(t, v.ShowLoadMore)

	require.NoError(t, e.OnVisible(ctx, true))
	feedCalls, _ := b.calls()
	assert.Equal(t, 1, feedCalls)
}

func TestOnVisible_PaginatesOnlyWhenBrowsingAndInView(t *testing.T) {
	b := newBackend("one", "two", "three", "four", "five")
	e, _ := newExplore(t, b)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	require.NoError(t, e.OnVisible(ctx, false))
	assert.Len(t, e.View().Posts, 2)

	e.SetSearch("tw")
	require.NoError(t, e.OnVisible(ctx, true))
	e.SetSearch("")
	assert.Len(t, e.View().Posts, 2)

	require.NoError(t, e.OnVisible(ctx, true))
	v := e.View()
	assert.Equal(t, ModeBrowse, v.Mode)
	assert.Len(t, v.Pages, 2)
	assert.True(t, v.ShowLoadMore)

	require.NoError(t, e.OnVisible(ctx, true))
	v = e.View()
	assert.Equal(t, []string{"five", "four", "three", "two", "one"}, captions(v.Posts))
	assert.False(t, v.ShowLoadMore)

	require.NoError(t, e.OnVisible(ctx, true))
	feedCalls, _ := b.calls()
	assert.Equal(t, 3, feedCalls)
}

func TestSearch_NoResults(t *testing.T) {
	b := newBackend("sunset", "beach")
	e, clock := newExplore(t, b)
	require.NoError(t, e.Load(context.Background()))

	e.SetSearch("cat")
	assert.Equal(t, ModeSearching, e.View().Mode)

	clock.elapse()
	e.Wait()

	v := e.View()
	assert.Equal(t, ModeNoResults, v.Mode)
	assert.Equal(t, NoResultsMessage, v.Message)
	assert.Empty(t, v.Posts)
	assert.False(t, v.ShowLoadMore)
}

func TestSearch_OnlyLatestDebouncedTermIsRequested(t *testing.T) {
	b := newBackend("a cat", "a dog", "a cow")
	e, clock := newExplore(t, b)

	for _, s := range []string{"c", "ca", "cat"} {
		e.SetSearch(s)
	}
	clock.elapse()
	e.Wait()

	_, searches := b.calls()
	assert.Equal(t, map[string]int{"cat": 1}, searches)

	v := e.View()
	assert.Equal(t, ModeSearchResults, v.Mode)
	assert.Equal(t, []string{"a cat"}, captions(v.Posts))
}

func TestSearch_SearchingWhileRequestInFlight(t *testing.T) {
	b := newBackend("a cat")
	gate := make(chan struct{})
	b.searchGate = gate
	e, clock := newExplore(t, b)

	e.SetSearch("cat")
	clock.elapse()

	require.Eventually(t, func() bool {
		return e.client.IsFetching(SearchKey("cat"))
	}, time.Second, time.Millisecond)
	assert.Equal(t, ModeSearching, e.View().Mode)

	close(gate)
	e.Wait()
	assert.Equal(t, ModeSearchResults, e.View().Mode)
}

func TestSearch_ResultsForEarlierTermAreNotShown(t *testing.T) {
	b := newBackend("a cat", "a car")
	e, clock := newExplore(t, b)

	e.SetSearch("ca")
	clock.elapse()
	e.Wait()
	assert.Len(t, e.View().Posts, 2)

	e.SetSearch("cat")
	assert.Equal(t, ModeSearching, e.View().Mode)

	clock.elapse()
	e.Wait()
	assert.Equal(t, []string{"a cat"}, captions(e.View().Posts))
}

func TestSearch_FailureRendersNoResults(t *testing.T) {
	b := newBackend("a cat")
	b.searchErr = errors.New("platform down")
	e, clock := newExplore(t, b)

	e.SetSearch("cat")
	clock.elapse()
	e.Wait()

	v := e.View()
	assert.Equal(t, ModeNoResults, v.Mode)
	assert.Error(t, v.Err)
}

func TestClearingSearchRestoresBrowsePagesWithoutRefetch(t *testing.T) {
	b := newBackend("one", "two", "three", "four", "dog")
	e, clock := newExplore(t, b)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.OnVisible(ctx, true))
	before := e.View()
	require.Len(t, before.Pages, 2)

	e.SetSearch("dog")
	clock.elapse()
	e.Wait()
	assert.Equal(t, ModeSearchResults, e.View().Mode)

	e.SetSearch("")
	clock.elapse()
	e.Wait()

	after := e.View()
	assert.Equal(t, ModeBrowse, after.Mode)
	assert.Equal(t, before.Pages, after.Pages)
	assert.True(t, after.ShowLoadMore)

	feedCalls, searches := b.calls()
	assert.Equal(t, 2, feedCalls)
	assert.Equal(t, map[string]int{"dog": 1}, searches)
}

func TestFilterAppliesAtViewTime(t *testing.T) {
	b := newBackend("old", "new")
	b.posts[0].Tags = models.StringList{"Travel"}
	b.posts[1].Likes = models.StringList{"u1", "u2"}
	e, _ := newExplore(t, b)
	require.NoError(t, e.Load(context.Background()))

	e.SetFilter(ParseFilter("popular"))
	assert.Equal(t, []string{"old", "new"}, captions(e.View().Posts))

	e.SetFilter(ParseFilter("tag:travel"))
	v := e.View()
	assert.Equal(t, "tag:travel", v.Filter)
	assert.Equal(t, []string{"new"}, captions(v.Posts))
	assert.Len(t, v.Pages[0], 2)

	e.SetFilter(ParseFilter("bogus"))
	assert.Equal(t, []string{"new", "old"}, captions(e.View().Posts))

	feedCalls, _ := b.calls()
	assert.Equal(t, 1, feedCalls)
}

func TestSearch_RefetchesAfterStaleTime(t *testing.T) {
	b := newBackend("a cat", "a dog")
	wall := &wallClock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	e, clock := newExploreWithClient(t, b, query.NewClient(query.WithStaleTime(time.Minute), query.WithClock(wall.now)))

	e.SetSearch("cat")
	clock.elapse()
	e.Wait()
	require.Equal(t, ModeSearchResults, e.View().Mode)

	wall.advance(2 * time.Minute)
	e.SetFilter(ParseFilter("popular"))
	assert.Equal(t, ModeSearching, e.View().Mode)

	e.Wait()
	v := e.View()
	assert.Equal(t, ModeSearchResults, v.Mode)
	assert.Equal(t, []string{"a cat"}, captions(v.Posts))

	_, searches := b.calls()
	assert.Equal(t, map[string]int{"cat": 2}, searches)
}

func TestSearch_RefetchesAfterInvalidate(t *testing.T) {
	b := newBackend("a cat")
	e, clock := newExplore(t, b)

	e.SetSearch("cat")
	clock.elapse()
	e.Wait()
	require.Equal(t, ModeSearchResults, e.View().Mode)

	gate := make(chan struct{})
	b.mu.Lock()
	b.searchGate = gate
	b.mu.Unlock()

	e.client.Invalidate("posts")
	assert.Equal(t, ModeSearching, e.View().Mode)
	assert.Equal(t, ModeSearching, e.View().Mode)

	close(gate)
	e.Wait()
	assert.Equal(t, ModeSearchResults, e.View().Mode)
	_, searches := b.calls()
	assert.Equal(t, map[string]int{"cat": 2}, searches)
}

func TestBrowse_ReloadsFromFirstPageAfterInvalidate(t *testing.T) {
	b := newBackend("one", "two", "three", "four", "five")
	e, clock := newExplore(t, b)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.OnVisible(ctx, true))
	require.Len(t, e.View().Pages, 2)

	e.client.Invalidate("posts")
	assert.Equal(t, ModeLoading, e.View().Mode)
	e.Wait()
	v := e.View()
	assert.Equal(t, ModeBrowse, v.Mode)
	assert.Len(t, v.Pages, 1)
	assert.Equal(t, []string{"five", "four"}, captions(v.Posts))
	assert.True(t, v.ShowLoadMore)

	// invalidated while searching: the sentinel reloads page one on return
	e.SetSearch("two")
	clock.elapse()
	e.Wait()
	e.client.Invalidate("posts")
	e.SetSearch("")
	clock.elapse()
	require.NoError(t, e.OnVisible(ctx, true))
	v = e.View()
	assert.Equal(t, ModeBrowse, v.Mode)
	assert.Len(t, v.Pages, 1)

	feedCalls, _ := b.calls()
	assert.Equal(t, 4, feedCalls)
}

func TestBrowse_StalePagesStayUntilReload(t *testing.T) {
	b := newBackend("one", "two", "three")
	wall := &wallClock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	e, _ := newExploreWithClient(t, b, query.NewClient(query.WithStaleTime(time.Minute), query.WithClock(wall.now)))
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	wall.advance(2 * time.Minute)
	v := e.View()
	assert.Equal(t, ModeBrowse, v.Mode)
	assert.Len(t, v.Pages, 1)

	require.NoError(t, e.Load(ctx))
	assert.Equal(t, ModeBrowse, e.View().Mode)
	feedCalls, _ := b.calls()
	assert.Equal(t, 2, feedCalls)
}
