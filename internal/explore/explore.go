// Package explore composes the infinite post feed with a debounced caption
// search into the render model of the explore page.
package explore

import (
	"context"
	"sync"
	"time"

	"snapgram/internal/debounce"
	"snapgram/internal/models"
	"snapgram/internal/query"
)

// Messages shown for the terminal states.
const (
	EndOfPostsMessage = "End of posts"
	NoResultsMessage  = "No results found"
)

// DefaultDebounce is the quiet period before a search is issued.
const DefaultDebounce = 500 * time.Millisecond

// Mode is what the explore page renders.
type Mode int

const (
	ModeLoading Mode = iota
	ModeBrowse
	ModeEndOfPosts
	ModeSearching
	ModeSearchResults
	ModeNoResults
)

func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeBrowse:
		return "browse"
	case ModeEndOfPosts:
		return "end_of_posts"
	case ModeSearching:
		return "searching"
	case ModeSearchResults:
		return "search_results"
	case ModeNoResults:
		return "no_results"
	default:
		return "unknown"
	}
}

// View is the render model.
type View struct {
	Mode Mode
	// Search is the raw search input.
	Search string
	Filter string
	// Pages holds the browse pages in fetch order (browse mode only).
	Pages [][]models.Post
	// Posts is the filtered list to display.
	Posts []models.Post
	// ShowLoadMore is true while the browse feed has more pages; the page
	// shows its scroll sentinel only then.
	ShowLoadMore bool
	Message      string
	// Err is the last failure behind the current mode, if any.
	Err error
}

// Searcher runs a caption search.
type Searcher func(ctx context.Context, term string) (*models.DocumentList[models.Post], error)

// Config wires an Explore.
type Config struct {
	Client   *query.Client
	Feed     query.PageFunc[models.Post]
	Search   Searcher
	PageSize int
	Debounce time.Duration
	// DebounceOptions are passed to the search debouncer.
	DebounceOptions []debounce.Option
}

// FeedKey and SearchKey are the query keys explore reads through.
var FeedKey = query.Key{"posts", "infinite"}

func SearchKey(term string) query.Key {
	return query.Key{"posts", "search", term}
}

// Explore is the explore page state machine.
type Explore struct {
	ctx    context.Context
	client *query.Client
	feed   *query.Infinite[models.Post]
	search Searcher

	debouncer   *debounce.Debouncer[string]
	unsubscribe func()
	wg          sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	raw         string
	filter      Filter
	feedErr     error
	feedLoading bool
	searching   map[string]bool
	searchErr   map[string]error
}

// New builds an Explore. Background searches run with ctx.
func New(ctx context.Context, cfg Config) *Explore {
	delay := cfg.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	e := &Explore{
		ctx:       ctx,
		client:    cfg.Client,
		feed:      query.NewInfinite(cfg.Client, FeedKey, cfg.PageSize, cfg.Feed),
		search:    cfg.Search,
		debouncer: debounce.New[string](delay, cfg.DebounceOptions...),
		filter:    Filter{Kind: FilterAll},
		searching: make(map[string]bool),
		searchErr: make(map[string]error),
	}
	e.unsubscribe = e.debouncer.Subscribe(e.onSettled)
	return e
}

// Load fetches the first feed page unless it is cached.
func (e *Explore) Load(ctx context.Context) error {
	err := e.feed.Load(ctx)
	e.mu.Lock()
	e.feedErr = err
	e.mu.Unlock()
	return err
}

// SetSearch records the raw search input.
func (e *Explore) SetSearch(text string) {
	e.mu.Lock()
	e.raw = text
	e.mu.Unlock()
	e.debouncer.Set(text)
}

// SetFilter changes the display filter.
func (e *Explore) SetFilter(f Filter) {
	e.mu.Lock()
	e.filter = f
	e.mu.Unlock()
}

// OnVisible is called by the scroll sentinel. While browsing it loads the
// first page when none is cached, otherwise the next page if there is one.
func (e *Explore) OnVisible(ctx context.Context, inView bool) error {
	e.mu.Lock()
	raw := e.raw
	e.mu.Unlock()
	if !inView || raw != "" {
		return nil
	}
	if len(e.feed.Pages()) == 0 {
		return e.Load(ctx)
	}
	if !e.feed.HasNextPage() {
		return nil
	}
	err := e.feed.FetchNextPage(ctx)
	e.mu.Lock()
	e.feedErr = err
	e.mu.Unlock()
	return err
}

func (e *Explore) onSettled(term string) {
	if term == "" {
		return
	}
	e.startSearch(term)
}

// startSearch runs the search for term in the background unless one is
// already running. The result lands in the query client.
func (e *Explore) startSearch(term string) {
	e.mu.Lock()
	if e.closed || e.searching[term] {
		e.mu.Unlock()
		return
	}
	e.searching[term] = true
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		_, err := query.Fetch(e.ctx, e.client, SearchKey(term), func(ctx context.Context) (*models.DocumentList[models.Post], error) {
			return e.search(ctx, term)
		})
		e.mu.Lock()
		delete(e.searching, term)
		if err != nil {
			e.searchErr[term] = err
		} else {
			delete(e.searchErr, term)
		}
		e.mu.Unlock()
	}()
}

// startFeedLoad reloads the first feed page in the background. A failed load
// is not retried until Load or OnVisible is called again.
func (e *Explore) startFeedLoad() {
	e.mu.Lock()
	if e.closed || e.feedLoading || e.feedErr != nil {
		e.mu.Unlock()
		return
	}
	e.feedLoading = true
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		err := e.feed.Load(e.ctx)
		e.mu.Lock()
		e.feedLoading = false
		e.feedErr = err
		e.mu.Unlock()
	}()
}

// View computes the current render model.
func (e *Explore) View() View {
	e.mu.Lock()
	raw, filter, feedErr := e.raw, e.filter, e.feedErr
	e.mu.Unlock()

	v := View{Search: raw, Filter: filter.String()}
	if raw != "" {
		return e.searchView(v, filter)
	}
	return e.browseView(v, filter, feedErr)
}

func (e *Explore) searchView(v View, filter Filter) View {
	term := e.debouncer.Value()
	if e.debouncer.Pending() || term != v.Search {
		v.Mode = ModeSearching
		return v
	}
	key := SearchKey(term)
	if e.client.IsFetching(key) {
		v.Mode = ModeSearching
		return v
	}

	results, ok := query.Peek[*models.DocumentList[models.Post]](e.client, key)
	if !ok {
		e.mu.Lock()
		err, running := e.searchErr[term], e.searching[term]
		e.mu.Unlock()
		if err != nil && !running {
			v.Mode, v.Message, v.Err = ModeNoResults, NoResultsMessage, err
			return v
		}
		// expired or invalidated since it last resolved
		e.startSearch(term)
		v.Mode = ModeSearching
		return v
	}

	v.Posts = filter.Apply(results.Documents)
	if len(v.Posts) == 0 {
		v.Mode, v.Message = ModeNoResults, NoResultsMessage
		return v
	}
	v.Mode = ModeSearchResults
	return v
}

func (e *Explore) browseView(v View, filter Filter, feedErr error) View {
	pages := e.feed.Pages()
	if len(pages) == 0 {
		if !e.feed.IsFetching() {
			e.startFeedLoad()
		}
		v.Mode, v.Err = ModeLoading, feedErr
		return v
	}

	all := make([]models.Post, 0)
	v.Pages = make([][]models.Post, len(pages))
	for i, p := range pages {
		v.Pages[i] = p.Documents
		all = append(all, p.Documents...)
	}
	if len(all) == 0 {
		v.Mode, v.Message = ModeEndOfPosts, EndOfPostsMessage
		return v
	}

	v.Mode = ModeBrowse
	v.Posts = filter.Apply(all)
	v.ShowLoadMore = e.feed.HasNextPage()
	v.Err = feedErr
	return v
}

// Wait blocks until background fetches finish.
func (e *Explore) Wait() {
	e.wg.Wait()
}

// Close stops the debouncer and waits for background fetches.
func (e *Explore) Close() {
	e.unsubscribe()
	e.debouncer.Stop()
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}
