package fuzz

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Billy-Davies-2/xpulse-cards/internal/auth"
	"github.com/Billy-Davies-2/xpulse-cards/internal/catalog"
	"github.com/Billy-Davies-2/xpulse-cards/internal/command"
	"github.com/Billy-Davies-2/xpulse-cards/internal/dal"
	"github.com/Billy-Davies-2/xpulse-cards/internal/handlers"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/mocks"
	"github.com/Billy-Davies-2/xpulse-cards/internal/progression"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
	"github.com/Billy-Davies-2/xpulse-cards/internal/random"
)

func init() {
	// Initialize logger for tests
	logger.Init("error")
}

func newAPI() *handlers.APIHandlers {
	ps := pubsub.New()
	board := mocks.NewMockClickHouseClient()
	engine := progression.New(dal.NewMemoryDAL(), catalog.DefaultCards(), catalog.DefaultWorks(),
		progression.WithRandom(random.NewSeeded(1)),
		progression.WithPublisher(ps),
	)
	dispatcher := command.NewDispatcher(engine, command.DefaultPrefix, []string{"admin"}, board)
	return handlers.NewAPIHandlers(dispatcher, engine, board, ps, auth.NewMockAuth(0))
}

// signedIn attaches a verified user the way the auth middleware does
func signedIn(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), &auth.User{ID: userID, Username: userID}))
}

// FuzzHTTPCommand fuzzes the HTTP command endpoint
func FuzzHTTPCommand(f *testing.F) {
	// Seed corpus with valid examples
	f.Add("1", `{"line":";start"}`)
	f.Add("1", `{"line":";use 1"}`)
	f.Add("admin", `{"line":";grant <@1>"}`)
	f.Add("1", `{"userId":"admin","line":";reset 2"}`)
	f.Add("", `{"line":";select"}`)
	f.Add("1", `{"line":123}`)

	f.Fuzz(func(t *testing.T, userID, data string) {
		api := newAPI()

		req := httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewBufferString(data))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		api.Command(w, signedIn(req, userID))

		// Never a 500: every failure maps to a domain status
		if w.Code == http.StatusInternalServerError {
			t.Errorf("internal error for %q: %s", data, w.Body.String())
		}
	})
}

// FuzzHTTPCommandSequence runs a fuzzed line after a fixed setup so the
// engine paths past the "no card" checks get exercised
func FuzzHTTPCommandSequence(f *testing.F) {
	f.Add(";train")
	f.Add(";work")
	f.Add(";ascend")
	f.Add(";use 0")
	f.Add(";use 99999999999999999999")
	f.Add(";select jyrb01")
	f.Add(";buy " + string(make([]byte, 1000)))

	f.Fuzz(func(t *testing.T, line string) {
		api := newAPI()
		for _, setup := range []string{";start", ";train"} {
			body, _ := json.Marshal(map[string]string{"line": setup})
			w := httptest.NewRecorder()
			api.Command(w, signedIn(httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewReader(body)), "p1"))
			if w.Code != http.StatusOK {
				t.Fatalf("setup %s failed: %d", setup, w.Code)
			}
		}

		body, _ := json.Marshal(map[string]string{"line": line})
		w := httptest.NewRecorder()
		api.Command(w, signedIn(httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewReader(body)), "p1"))
		if w.Code == http.StatusInternalServerError {
			t.Errorf("internal error for %q: %s", line, w.Body.String())
		}
	})
}

// FuzzHTTPProfile fuzzes the profile query parameter
func FuzzHTTPProfile(f *testing.F) {
	f.Add("u1")
	f.Add("")
	f.Add("%00")

	f.Fuzz(func(t *testing.T, userID string) {
		api := newAPI()

		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		q := req.URL.Query()
		q.Set("userId", userID)
		req.URL.RawQuery = q.Encode()
		w := httptest.NewRecorder()

		api.Profile(w, signedIn(req, "viewer"))
	})
}

// FuzzJSONParsing fuzzes general JSON parsing
func FuzzJSONParsing(f *testing.F) {
	// Seed various JSON structures
	f.Add(`{"key":"value"}`)
	f.Add(`[1,2,3]`)
	f.Add(`null`)
	f.Add(`"string"`)
	f.Add(`123`)
	f.Add(`true`)

	f.Fuzz(func(t *testing.T, data string) {
		var result interface{}
		// Should not panic on any input
		json.Unmarshal([]byte(data), &result)
	})
}
