package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/paindiary/internal/metrics"
	"github.com/terraincognita07/paindiary/internal/migration"
	"github.com/terraincognita07/paindiary/internal/services"
	"github.com/terraincognita07/paindiary/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPassphrase = "correct horse battery staple"
	testSecret     = "0123456789abcdef0123456789abcdef"
)

type testClock struct {
	current time.Time
}

func (clock *testClock) Now() time.Time {
	return clock.current
}

type apiFixture struct {
	app     *fiber.App
	handler *Handler
	manager *services.DataManager
	clock   *testClock
	metrics *metrics.Metrics
	token   string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixtureWithQuota(t, 0)
}

func newAPIFixtureWithQuota(t *testing.T, quota int64) *apiFixture {
	t.Helper()

	clock := &testClock{current: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)}
	collectors := metrics.New()
	pipeline := migration.NewDefaultPipeline(migration.LegacyOptions{Now: clock.Now}, nil)
	adapter := storage.NewAdapter(storage.NewMemoryStore(), pipeline, nil, storage.Options{QuotaBytes: quota, Now: clock.Now, Metrics: collectors})
	counter := 0
	manager := services.NewDataManager(adapter, nil, services.DataManagerOptions{
		Now:     clock.Now,
		Metrics: collectors,
		NewID: func() string {
			counter++
			return "rec-" + strconv.Itoa(counter)
		},
	})
	if _, err := manager.Open(context.Background()); err != nil {
		t.Fatalf("open data manager: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassphrase), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash passphrase: %v", err)
	}
	handler, err := NewHandler(manager, HandlerOptions{
		SecretKey:      testSecret,
		PassphraseHash: string(hash),
		TokenTTL:       time.Hour,
		Metrics:        collectors,
		Now:            clock.Now,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	fixture := &apiFixture{
		app:     NewApp(handler, AppOptions{}),
		handler: handler,
		manager: manager,
		clock:   clock,
		metrics: collectors,
	}
	fixture.token = fixture.login(t)
	return fixture
}

func (fixture *apiFixture) login(t *testing.T) string {
	t.Helper()
	response := fixture.request(t, http.MethodPost, "/api/auth/login", map[string]string{"passphrase": testPassphrase}, "")
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected login to succeed, got %d: %s", response.StatusCode, readBody(t, response))
	}
	payload := tokenResponse{}
	decodeResponse(t, response, &payload)
	if payload.Token == "" {
		t.Fatal("expected a token in the login response")
	}
	return payload.Token
}

// request sends body as JSON, or verbatim when it is a []byte.
func (fixture *apiFixture) request(t *testing.T, method string, path string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	switch typed := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := fixture.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func (fixture *apiFixture) authed(t *testing.T, method string, path string, body any) *http.Response {
	t.Helper()
	return fixture.request(t, method, path, body, fixture.token)
}

func readBody(t *testing.T, response *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return string(body)
}

func decodeResponse(t *testing.T, response *http.Response, target any) {
	t.Helper()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func assertStatus(t *testing.T, response *http.Response, expected int) {
	t.Helper()
	if response.StatusCode != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, response.StatusCode, readBody(t, response))
	}
}

func recordBody(date string, clock string, painLevel int) map[string]any {
	return map[string]any{
		"date":            date,
		"time":            clock,
		"painLevel":       painLevel,
		"painTypes":       []string{"cramping"},
		"locations":       []string{"lower-abdomen"},
		"symptoms":        []string{},
		"menstrualStatus": "day-1",
		"notes":           "",
	}
}
