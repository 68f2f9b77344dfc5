package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
)

// DefaultDiscordAPI is the Discord REST base URL
const DefaultDiscordAPI = "https://discord.com/api"

// verifiedTokenTTL bounds how long a raw Discord access token is trusted
// before /users/@me is asked again
const verifiedTokenTTL = 5 * time.Minute

// DiscordConfig holds the configuration for Discord OAuth2
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// APIBaseURL overrides the Discord API root, used by tests
	APIBaseURL string
	SessionTTL time.Duration
	// Secure marks cookies Secure, off only for plain-http development
	Secure bool
}

// DiscordAuth manages authentication with Discord. Players log in with the
// same account the bot sees, so the verified id is the id commands act as.
type DiscordAuth struct {
	config       *DiscordConfig
	oauth2Config *oauth2.Config
	sessions     *sessionStore
}

// NewDiscordAuth creates a new Discord authentication handler
func NewDiscordAuth(config *DiscordConfig) *DiscordAuth {
	if len(config.Scopes) == 0 {
		config.Scopes = []string{"identify"}
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = DefaultDiscordAPI
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}

	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   config.APIBaseURL + "/oauth2/authorize",
			TokenURL:  config.APIBaseURL + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &DiscordAuth{
		config:       config,
		oauth2Config: oauth2Config,
		sessions:     newSessionStore(),
	}
}

// LoginHandler initiates the OAuth2 login flow
func (a *DiscordAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state := generateState()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.config.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler handles the OAuth2 callback from Discord
func (a *DiscordAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}
	if state := r.URL.Query().Get("state"); state == "" || state != cookie.Value {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.Warn("Discord token exchange failed", "error", err)
		http.Error(w, "Failed to exchange token", http.StatusBadGateway)
		return
	}

	user, err := a.fetchUser(r.Context(), a.oauth2Config.TokenSource(r.Context(), token))
	if err != nil {
		logger.Warn("Discord user lookup failed", "error", err)
		http.Error(w, "Failed to get user info", http.StatusBadGateway)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	session := a.sessions.create(user, token, a.config.SessionTTL)
	logger.Info("User logged in", "user_id", user.ID, "username", user.Username)
	issue(w, session, a.config.Secure)
}

// LogoutHandler handles user logout
func (a *DiscordAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	a.sessions.logout(w, r)
}

// Authenticate accepts a session id issued by the callback or a Discord
// access token obtained elsewhere, which is checked against /users/@me.
func (a *DiscordAuth) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	if session, ok := a.sessions.get(token); ok {
		return session.User, nil
	}

	oauthToken := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	user, err := a.fetchUser(ctx, oauth2.StaticTokenSource(oauthToken))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	a.sessions.put(&Session{
		ID:        token,
		User:      user,
		Token:     oauthToken,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(verifiedTokenTTL),
	})
	return user, nil
}

// fetchUser fetches the current user from Discord
func (a *DiscordAuth) fetchUser(ctx context.Context, src oauth2.TokenSource) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.APIBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := oauth2.NewClient(ctx, src).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to get user info: %s - %s", resp.Status, string(body))
	}

	var info struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("failed to get user info: empty id")
	}

	name := info.GlobalName
	if name == "" {
		name = info.Username
	}
	return &User{ID: info.ID, Username: name}, nil
}
