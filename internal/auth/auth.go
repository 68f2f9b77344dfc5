package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
)

const (
	// SessionCookie carries the session id for browser clients
	SessionCookie = "session_id"
	stateCookie   = "oauth_state"
)

// ErrUnauthenticated is returned when a credential is missing, unknown or expired
var ErrUnauthenticated = errors.New("authentication required")

// User represents an authenticated user. ID is the chat platform user id,
// the same id the bot sees on messages.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Session represents a user session
type Session struct {
	ID        string
	User      *User
	Token     *oauth2.Token
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Provider is a common interface for authentication providers
type Provider interface {
	LoginHandler(w http.ResponseWriter, r *http.Request)
	CallbackHandler(w http.ResponseWriter, r *http.Request)
	LogoutHandler(w http.ResponseWriter, r *http.Request)
	// Authenticate resolves a bearer token or session id to its user
	Authenticate(ctx context.Context, token string) (*User, error)
}

// Register mounts the login routes on mux
func Register(mux *http.ServeMux, p Provider) {
	mux.HandleFunc("/auth/login", p.LoginHandler)
	mux.HandleFunc("/auth/callback", p.CallbackHandler)
	mux.HandleFunc("/auth/logout", p.LogoutHandler)
}

type contextKey struct{}

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext retrieves the authenticated user, nil when there is none
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(contextKey{}).(*User)
	return u
}

// TokenFromRequest reads a bearer token, falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if token := BearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// BearerToken extracts the token from an "Authorization: Bearer" value
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware rejects requests without a valid credential and puts the
// verified user on the request context.
func Middleware(p Provider, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			unauthorized(w)
			return
		}

		user, err := p.Authenticate(r.Context(), token)
		if err != nil {
			logger.Debug("Rejected credential", "path", r.URL.Path, "error", err)
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="xpulse"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": ErrUnauthenticated.Error(),
		"code":  "unauthenticated",
	})
}

// sessionStore holds live sessions in memory
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*Session)}
}

func (s *sessionStore) create(user *User, token *oauth2.Token, ttl time.Duration) *Session {
	now := time.Now()
	session := &Session{
		ID:        generateSessionID(),
		User:      user,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	s.put(session)
	return session
}

func (s *sessionStore) put(session *Session) {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
}

// get returns the live session for id, dropping it once expired
func (s *sessionStore) get(id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		s.delete(id)
		return nil, false
	}
	return session, true
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// logout drops the session named by the request and clears its cookie
func (s *sessionStore) logout(w http.ResponseWriter, r *http.Request) {
	if token := TokenFromRequest(r); token != "" {
		s.delete(token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// issue sets the session cookie and returns the token to API clients
func issue(w http.ResponseWriter, session *Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":     session.ID,
		"userId":    session.User.ID,
		"username":  session.User.Username,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// generateState generates a random state string for CSRF protection
func generateState() string {
	return randomString()
}

// generateSessionID generates a random session ID
func generateSessionID() string {
	return randomString()
}

func randomString() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
