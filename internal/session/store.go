package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/binlens/internal/decode"
	"github.com/danmuck/binlens/internal/observability"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("session: not found")
	ErrStoreFull = errors.New("session: store is full")
)

// Store keeps open sessions by id, up to a fixed limit.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	limit    int
	opts     decode.Options
}

// NewStore returns a store holding at most limit sessions; limit <= 0 means
// no limit. opts is used for every decode.
func NewStore(limit int, opts decode.Options) *Store {
	observability.RegisterMetrics()
	return &Store{
		sessions: make(map[string]*Session),
		limit:    limit,
		opts:     opts,
	}
}

// Open decodes buf into a new session. Decode errors are returned as is.
func (st *Store) Open(name, hint string, buf []byte) (*Session, error) {
	st.mu.RLock()
	full := st.limit > 0 && len(st.sessions) >= st.limit
	st.mu.RUnlock()
	if full {
		return nil, fmt.Errorf("%w: limit %d", ErrStoreFull, st.limit)
	}

	if hint == "" {
		hint = name
	}
	s, err := New(uuid.NewString(), name, buf, hint, st.opts)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.limit > 0 && len(st.sessions) >= st.limit {
		return nil, fmt.Errorf("%w: limit %d", ErrStoreFull, st.limit)
	}
	st.sessions[s.ID] = s
	observability.SetOpenSessions(len(st.sessions))
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(st.sessions, id)
	observability.SetOpenSessions(len(st.sessions))
	return nil
}

// List returns open sessions, oldest first.
func (st *Store) List() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Opened.Equal(out[j].Opened) {
			return out[i].ID < out[j].ID
		}
		return out[i].Opened.Before(out[j].Opened)
	})
	return out
}
