package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/neexbeast/destination-search/internal/destination"
)

const (
	// DefaultDebounceWait is the quiet interval before a search is sent.
	DefaultDebounceWait = 300 * time.Millisecond

	defaultLookupTimeout = 10 * time.Second

	fallbackErrorMessage = "Something went wrong while looking up destinations."
)

var (
	// ErrUnknownOption is returned by Select when the id is not in the current options.
	ErrUnknownOption = errors.New("destination is not among the current options")

	// ErrClosed is returned by operations on a closed Coordinator.
	ErrClosed = errors.New("search session is closed")
)

// Store is the destination lookup service used by the Coordinator.
type Store interface {
	SearchDestinations(ctx context.Context, query string) ([]destination.Destination, error)
	GetDestinationDetails(ctx context.Context, name string) (*destination.Destination, error)
}

// ResultCache memoizes search results by literal query string.
type ResultCache interface {
	Get(ctx context.Context, query string) ([]destination.Destination, bool, error)
	Put(ctx context.Context, query string, results []destination.Destination) error
}

// Phase is the coordinator's position in the search/selection flow.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseSearching    Phase = "searching"
	PhaseDisplaying   Phase = "displaying"
	PhaseSelected     Phase = "selected"
	PhaseDetailLoaded Phase = "detail_loaded"
	PhaseError        Phase = "error"
)

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Input    string                    `json:"input"`
	Phase    Phase                     `json:"phase"`
	Options  []destination.Destination `json:"options"`
	Selected *destination.Destination  `json:"selected,omitempty"`
	Detail   *destination.Destination  `json:"detail,omitempty"`
	Closest  []destination.Destination `json:"closest"`
	Error    string                    `json:"error,omitempty"`
}

// Config tunes a Coordinator. Zero values fall back to defaults.
type Config struct {
	DebounceWait  time.Duration
	LookupTimeout time.Duration

	// OnChange receives a snapshot after every applied state change. A
	// snapshot older than one already delivered is skipped.
	OnChange func(Snapshot)
	// OnNavigate receives the name of each newly selected destination, in
	// selection order.
	//
	// Callbacks run one at a time and must not call SetInput or Select.
	OnNavigate func(name string)

	Log *slog.Logger
}

type searchRequest struct {
	query string
	seq   uint64
}

// Coordinator runs the search-and-ranking flow of one session: debounced
// lookups, result caching, prioritization and proximity ranking.
//
// Every search and detail request carries a sequence number; a response is
// applied only while its number is still the latest of its kind.
type Coordinator struct {
	store Store
	cache ResultCache
	cfg   Config
	log   *slog.Logger

	debouncer *Debouncer[searchRequest]
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// notifyMu orders callback delivery. It is never taken while mu is held.
	notifyMu  sync.Mutex
	notified  uint64
	navigated uint64

	mu        sync.Mutex
	version   uint64
	closed    bool
	input     string
	phase     Phase
	options   []destination.Destination
	selected  *destination.Destination
	detail    *destination.Destination
	closest   []destination.Destination
	errMsg    string
	searchSeq uint64
	detailSeq uint64
}

// NewCoordinator constructs a Coordinator that owns cache for its lifetime.
func NewCoordinator(store Store, cache ResultCache, cfg Config) *Coordinator {
	if cfg.DebounceWait <= 0 {
		cfg.DebounceWait = DefaultDebounceWait
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		store:   store,
		cache:   cache,
		cfg:     cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		phase:   PhaseIdle,
		options: []destination.Destination{},
		closest: []destination.Destination{},
	}
	c.debouncer = NewDebouncer(cfg.DebounceWait, c.runSearch)
	return c
}

// SetInput records the current input text.
//
// Empty text returns to idle and clears options, selection and detail.
// Otherwise a cache hit is applied immediately and a miss schedules a
// debounced store search.
func (c *Coordinator) SetInput(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	c.input = text
	c.searchSeq++
	seq := c.searchSeq

	if text == "" {
		c.debouncer.Cancel()
		c.detailSeq++
		c.phase = PhaseIdle
		c.options = []destination.Destination{}
		c.closest = []destination.Destination{}
		c.selected = nil
		c.detail = nil
		c.errMsg = ""
		snap, version := c.commitLocked()
		c.mu.Unlock()
		c.notify(snap, version)
		return nil
	}
	c.debouncer.Cancel()
	c.mu.Unlock()

	// The cache may be remote, so it is read without holding mu.
	cached, hit, err := c.cache.Get(ctx, text)
	if err != nil {
		c.log.Warn("cache get failed", "query", text, "err", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if seq != c.searchSeq {
		// Newer input arrived during the cache read.
		c.mu.Unlock()
		return nil
	}

	if hit {
		c.options = Prioritize(cached, text)
		c.errMsg = ""
		c.phase = PhaseDisplaying
	} else {
		c.phase = PhaseSearching
		c.debouncer.Call(searchRequest{query: text, seq: seq})
	}

	snap, version := c.commitLocked()
	c.mu.Unlock()
	c.notify(snap, version)
	return nil
}

// Select records the option with the given id as the selection and fetches
// its detail in the background. The id must be in the current options.
func (c *Coordinator) Select(id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	idx := slices.IndexFunc(c.options, func(d destination.Destination) bool { return d.ID == id })
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownOption, id)
	}

	sel := c.options[idx]
	c.selected = &sel
	c.detail = nil
	c.closest = []destination.Destination{}
	c.phase = PhaseSelected
	c.detailSeq++
	seq := c.detailSeq
	c.wg.Add(1)

	snap, version := c.commitLocked()
	c.mu.Unlock()

	c.notify(snap, version)
	c.navigate(sel.Name, seq)

	go c.fetchDetail(sel.Name, seq)
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops the debouncer, cancels in-flight lookups and waits for them
// to return. Later calls are no-ops.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.debouncer.Stop()
	c.cancel()
	c.wg.Wait()
}

// runSearch is the debounced action. It runs on the timer's goroutine.
func (c *Coordinator) runSearch(req searchRequest) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.LookupTimeout)
	defer cancel()

	results, err := c.store.SearchDestinations(ctx, req.query)
	if err == nil {
		if putErr := c.cache.Put(ctx, req.query, results); putErr != nil {
			c.log.Warn("cache put failed", "query", req.query, "err", putErr)
		}
	}

	c.mu.Lock()
	if req.seq != c.searchSeq {
		c.mu.Unlock()
		c.log.Debug("discarding stale search response", "query", req.query)
		return
	}

	if err != nil {
		c.log.Warn("destination search failed", "query", req.query, "err", err)
		c.errMsg = errorMessage(err)
		c.phase = PhaseError
	} else {
		c.options = Prioritize(results, req.query)
		c.errMsg = ""
		c.phase = PhaseDisplaying
	}

	snap, version := c.commitLocked()
	c.mu.Unlock()
	c.notify(snap, version)
}

func (c *Coordinator) fetchDetail(name string, seq uint64) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.LookupTimeout)
	defer cancel()

	d, err := c.store.GetDestinationDetails(ctx, name)
	if err == nil && d == nil {
		err = destination.NotFoundError(name)
	}

	c.mu.Lock()
	if seq != c.detailSeq {
		c.mu.Unlock()
		c.log.Debug("discarding stale detail response", "name", name)
		return
	}

	if err != nil {
		c.log.Warn("destination detail lookup failed", "name", name, "err", err)
		c.errMsg = errorMessage(err)
		c.phase = PhaseError
	} else {
		c.detail = d
		c.closest = Closest(*d, c.options)
		c.errMsg = ""
		c.phase = PhaseDetailLoaded
	}

	snap, version := c.commitLocked()
	c.mu.Unlock()
	c.notify(snap, version)
}

// commitLocked records a state change and returns the snapshot to deliver
// with its version.
func (c *Coordinator) commitLocked() (Snapshot, uint64) {
	c.version++
	return c.snapshotLocked(), c.version
}

// notify delivers snap unless a newer state was already delivered.
func (c *Coordinator) notify(snap Snapshot, version uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if version <= c.notified {
		return
	}
	c.notified = version
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(snap)
	}
}

// navigate reports the selection made under seq unless a later selection
// was already reported.
func (c *Coordinator) navigate(name string, seq uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if seq <= c.navigated {
		return
	}
	c.navigated = seq
	if c.cfg.OnNavigate != nil {
		c.cfg.OnNavigate(name)
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Input:   c.input,
		Phase:   c.phase,
		Options: slices.Clone(c.options),
		Closest: slices.Clone(c.closest),
		Error:   c.errMsg,
	}
	if c.selected != nil {
		sel := *c.selected
		snap.Selected = &sel
	}
	if c.detail != nil {
		d := *c.detail
		snap.Detail = &d
	}
	return snap
}

// errorMessage converts a lookup failure into a displayable message. Store
// failures expose only the failed operation; the cause goes to the log.
func errorMessage(err error) string {
	var lookupErr *destination.LookupError
	if errors.As(err, &lookupErr) {
		if msg := strings.TrimSpace(lookupErr.Msg); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}
