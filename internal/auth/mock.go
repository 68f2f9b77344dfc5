package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DevUserID is the identity issued by MockAuth when no user is requested
const DevUserID = "dev-user"

// MockAuth provides a mock authentication for local development. Any
// caller may log in as any user id, but commands still need a session.
type MockAuth struct {
	sessions *sessionStore
	ttl      time.Duration
}

// NewMockAuth creates a new mock authentication handler
func NewMockAuth(ttl time.Duration) *MockAuth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MockAuth{sessions: newSessionStore(), ttl: ttl}
}

// Login creates a session for userID without any external check
func (m *MockAuth) Login(userID string) *Session {
	return m.sessions.create(&User{ID: userID, Username: userID}, nil, m.ttl)
}

// LoginHandler auto-creates a session for ?user=, default DevUserID
func (m *MockAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		userID = DevUserID
	}
	issue(w, m.Login(userID), false)
}

// CallbackHandler is not needed for mock auth
func (m *MockAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// LogoutHandler for mock auth
func (m *MockAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	m.sessions.logout(w, r)
}

// Authenticate resolves a session id issued by Login
func (m *MockAuth) Authenticate(_ context.Context, token string) (*User, error) {
	session, ok := m.sessions.get(token)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return session.User, nil
}
