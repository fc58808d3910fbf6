package session

import (
	"sort"
	"sync"
)

// Store maps guild IDs to sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (st *Store) Get(guildID string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[guildID]
	return s, ok
}

func (st *Store) Set(guildID string, s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[guildID] = s
}

func (st *Store) Delete(guildID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, guildID)
}

// Has reports whether guildID currently maps to exactly s.
func (st *Store) Has(guildID string, s *Session) bool {
	cur, ok := st.Get(guildID)
	return ok && cur == s
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// GuildIDs returns the guilds with a session, sorted.
func (st *Store) GuildIDs() []string {
	st.mu.RLock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
