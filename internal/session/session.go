// Package session keeps the per-browser state of the tracker: who is signed
// in, and the transactions of guests, which are never written to the
// database.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"finance-tracker/internal/models"
)

// Policy decides what happens to a signed-in browser on a full page reload.
type Policy string

const (
	// PolicyPersistent keeps users signed in until they log out or the
	// login session expires.
	PolicyPersistent Policy = "persistent"
	// PolicyReloadDemotes signs users out on every full page load except the
	// one right after logging in.
	PolicyReloadDemotes Policy = "reload-demotes"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyPersistent, PolicyReloadDemotes:
		return p, nil
	}
	return "", fmt.Errorf("unknown session policy %q", s)
}

// ShouldDemote reports whether s must be signed out on this request. Only
// full page loads of a signed-in session under PolicyReloadDemotes qualify,
// and the first full page load after logging in is exempt.
func (p Policy) ShouldDemote(s *Session, fullPageLoad bool) bool {
	if p != PolicyReloadDemotes || s.IsGuest() || !fullPageLoad {
		return false
	}
	return !s.consumeJustLoggedIn()
}

// state is what the Store keeps per browser between requests.
type state struct {
	mu           sync.Mutex
	transactions []models.Transaction
	justLoggedIn bool
	lastSeen     time.Time
}

// Session is the state of one browser for the duration of a request. It is
// created by the session middleware and handed to every handler through the
// request context.
type Session struct {
	ID    string
	User  *models.User // nil while browsing as a guest
	Token string       // login session token, empty for guests

	state *state
}

// IsGuest reports whether no user is signed in.
func (s *Session) IsGuest() bool {
	return s.User == nil
}

// UserID returns the signed-in user's ID, or 0 for guests.
func (s *Session) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

// SignIn binds the session to an authenticated user. The next full page
// load is treated as the post-login render.
func (s *Session) SignIn(user *models.User, token string) {
	s.User = user
	s.Token = token
	s.state.mu.Lock()
	s.state.justLoggedIn = true
	s.state.mu.Unlock()
}

// SignOut returns the session to guest mode.
func (s *Session) SignOut() {
	s.User = nil
	s.Token = ""
	s.state.mu.Lock()
	s.state.justLoggedIn = false
	s.state.mu.Unlock()
}

func (s *Session) consumeJustLoggedIn() bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	fresh := s.state.justLoggedIn
	s.state.justLoggedIn = false
	return fresh
}

// AddGuestTransaction appends a transaction to the guest list. The ID and
// UserID are cleared because guest rows have no identity.
func (s *Session) AddGuestTransaction(tx models.Transaction) {
	tx.ID = 0
	tx.UserID = nil
	s.state.mu.Lock()
	s.state.transactions = append(s.state.transactions, tx)
	s.state.mu.Unlock()
}

// GuestTransactions returns a copy of the guest list in insertion order.
func (s *Session) GuestTransactions() []models.Transaction {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	out := make([]models.Transaction, len(s.state.transactions))
	copy(out, s.state.transactions)
	return out
}

// ClearGuest empties the guest list.
func (s *Session) ClearGuest() {
	s.state.mu.Lock()
	s.state.transactions = nil
	s.state.mu.Unlock()
}

// Store holds browser sessions in memory. Sessions idle for longer than the
// TTL are dropped the next time the store is used.
type Store struct {
	mu     sync.Mutex
	states map[string]*state
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates an empty store.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		states: make(map[string]*state),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Load returns the session for id. A new session with a fresh ID is started
// when id is empty, unknown or expired; created reports that case so the
// caller can set the cookie.
func (st *Store) Load(id string) (s *Session, created bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	st.sweep(now)

	if existing, ok := st.states[id]; ok && id != "" {
		existing.mu.Lock()
		existing.lastSeen = now
		existing.mu.Unlock()
		return &Session{ID: id, state: existing}, false
	}

	id = uuid.NewString()
	fresh := &state{lastSeen: now}
	st.states[id] = fresh
	return &Session{ID: id, state: fresh}, true
}

// Destroy forgets a session and its guest data.
func (st *Store) Destroy(id string) {
	st.mu.Lock()
	delete(st.states, id)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep(st.now())
	return len(st.states)
}

func (st *Store) sweep(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, s := range st.states {
		s.mu.Lock()
		expired := now.Sub(s.lastSeen) > st.ttl
		s.mu.Unlock()
		if expired {
			delete(st.states, id)
		}
	}
}
