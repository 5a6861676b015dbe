package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/neexbeast/destination-search/internal/search"
)

const clearTimeout = 5 * time.Second

// ErrInvalidPage is returned by Create when the page address cannot be parsed.
var ErrInvalidPage = errors.New("invalid page address")

// ResultCache is a per-session result cache that can be dropped when the
// session ends.
type ResultCache interface {
	search.ResultCache
	Clear(ctx context.Context) error
}

// CacheFactory builds the result cache for a new session.
type CacheFactory func(sessionID string) ResultCache

// Settings tunes the coordinators created by a Manager.
type Settings struct {
	DebounceWait  time.Duration
	LookupTimeout time.Duration
}

// Session is one user's search flow plus the page address used for deep links.
type Session struct {
	ID          string
	Page        string
	Coordinator *search.Coordinator

	cache ResultCache

	mu   sync.Mutex
	link string
}

// Link returns the page address with the current selection's deep link
// parameter, or the plain page address before any selection.
func (s *Session) Link() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

func (s *Session) setLink(link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link = link
}

// Manager keeps at most a fixed number of live sessions. The least recently
// used session is closed when the limit is exceeded.
type Manager struct {
	store    search.Store
	newCache CacheFactory
	settings Settings
	log      *slog.Logger
	sessions *lru.Cache[string, *Session]
}

// NewManager constructs a Manager holding up to maxSessions sessions.
func NewManager(store search.Store, newCache CacheFactory, maxSessions int, settings Settings, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager{
		store:    store,
		newCache: newCache,
		settings: settings,
		log:      log,
	}

	sessions, err := lru.NewWithEvict(maxSessions, m.onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	m.sessions = sessions

	return m, nil
}

// Create starts a new session whose deep links are built on page.
func (m *Manager) Create(page string) (*Session, error) {
	if _, err := url.Parse(page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}

	id := uuid.NewString()
	s := &Session{
		ID:    id,
		Page:  page,
		cache: m.newCache(id),
		link:  page,
	}

	log := m.log.With("session", id)
	s.Coordinator = search.NewCoordinator(m.store, s.cache, search.Config{
		DebounceWait:  m.settings.DebounceWait,
		LookupTimeout: m.settings.LookupTimeout,
		Log:           log,
		OnChange: func(snap search.Snapshot) {
			log.Debug("session state changed", "phase", snap.Phase, "input", snap.Input, "options", len(snap.Options))
		},
		OnNavigate: func(name string) {
			link, err := search.DeepLink(page, name)
			if err != nil {
				log.Warn("building deep link failed", "destination", name, "err", err)
				return
			}
			s.setLink(link)
		},
	})

	m.sessions.Add(id, s)
	m.log.Info("session created", "session", id, "live", m.Len())
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	return m.sessions.Get(id)
}

// Delete closes and removes the session. It reports whether it existed.
func (m *Manager) Delete(id string) bool {
	return m.sessions.Remove(id)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.sessions.Purge()
}

func (m *Manager) onEvict(id string, s *Session) {
	s.Coordinator.Close()

	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()
	if err := s.cache.Clear(ctx); err != nil {
		m.log.Warn("clearing session cache failed", "session", id, "err", err)
	}

	m.log.Info("session closed", "session", id, "live", m.Len())
}
