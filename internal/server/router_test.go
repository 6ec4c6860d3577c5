package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/havenmind/haven/internal/auth"
	"github.com/havenmind/haven/internal/store"
	"github.com/havenmind/haven/internal/users"
)

type envelope struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Type    string          `json:"type"`
	User    json.RawMessage `json:"user"`
	Token   string          `json:"token"`
}

type testServer struct {
	handler http.Handler
	store   *store.Service
	current time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(store.Models()...); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	ts := &testServer{current: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return ts.current }

	storeService, err := store.NewService(store.ServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	userService, err := users.NewService(users.ServiceConfig{Store: storeService})
	if err != nil {
		t.Fatalf("failed to create users: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "haven-auth",
		Audience:      "haven-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}
	handler, err := NewHTTPHandler(Dependencies{
		Store:  storeService,
		Users:  userService,
		Tokens: tokens,
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	ts.handler = handler
	ts.store = storeService
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, clientID string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		request.Header.Set("X-Client-Id", clientID)
	}
	recorder := httptest.NewRecorder()
	ts.handler.ServeHTTP(recorder, request)

	var decoded envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not an envelope: %v\n%s", err, recorder.Body.String())
	}
	return recorder.Code, decoded
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	status, response := ts.do(t, http.MethodGet, "/api/health", "", nil)
	if status != http.StatusOK || !response.OK {
		t.Fatalf("health failed: %d %+v", status, response)
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	status, response := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "User", "email": "user@example.com", "password": "secret1",
	})
	if status != http.StatusOK || !response.OK {
		t.Fatalf("register failed: %d %+v", status, response)
	}

	status, response = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "secret1",
	})
	if status != http.StatusOK || !response.OK {
		t.Fatalf("login failed: %d %+v", status, response)
	}
	if response.Token == "" || len(response.User) == 0 {
		t.Fatalf("login must return user and token: %+v", response)
	}

	status, response = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "user@example.com", "password": "wrong",
	})
	if status != http.StatusUnauthorized || response.OK {
		t.Fatalf("wrong password must 401: %d %+v", status, response)
	}
	if response.Message != "Invalid credentials" {
		t.Fatalf("unexpected rejection message: %q", response.Message)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	payload := map[string]string{"name": "User", "email": "user@example.com", "password": "secret1"}

	if status, _ := ts.do(t, http.MethodPost, "/api/auth/register", "", payload); status != http.StatusOK {
		t.Fatalf("first register failed: %d", status)
	}
	status, response := ts.do(t, http.MethodPost, "/api/auth/register", "", payload)
	if status != http.StatusConflict || response.OK {
		t.Fatalf("duplicate must conflict: %d %+v", status, response)
	}
}

func TestAnonymousLoginIssuesIdentity(t *testing.T) {
	ts := newTestServer(t)
	status, response := ts.do(t, http.MethodPost, "/api/auth/anon", "", map[string]string{})
	if status != http.StatusOK || !response.OK || response.Token == "" {
		t.Fatalf("anon login failed: %d %+v", status, response)
	}
}

func TestProtectedRoutesRequireIdentification(t *testing.T) {
	ts := newTestServer(t)
	status, response := ts.do(t, http.MethodGet, "/api/moods", "", nil)
	if status != http.StatusUnauthorized || response.OK {
		t.Fatalf("expected 401 without identification: %d %+v", status, response)
	}
}

func TestBearerTokenIdentifiesClient(t *testing.T) {
	ts := newTestServer(t)
	_, login := ts.do(t, http.MethodPost, "/api/auth/anon", "", map[string]string{})

	request := httptest.NewRequest(http.MethodGet, "/api/moods", nil)
	request.Header.Set("Authorization", "Bearer "+login.Token)
	recorder := httptest.NewRecorder()
	ts.handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("bearer token must identify the client: %d %s", recorder.Code, recorder.Body.String())
	}
}

func TestChatClassifiesCrisisAndSupport(t *testing.T) {
	ts := newTestServer(t)

	status, response := ts.do(t, http.MethodPost, "/api/chat", "client-1", map[string]string{
		"message": "I want to end my life",
	})
	if status != http.StatusOK || response.Type != "crisis" {
		t.Fatalf("expected crisis classification: %d %+v", status, response)
	}

	status, response = ts.do(t, http.MethodPost, "/api/chat", "client-1", map[string]string{
		"message": "I had a rough day at work",
	})
	if status != http.StatusOK || response.Type != "support" {
		t.Fatalf("expected support classification: %d %+v", status, response)
	}

	status, response = ts.do(t, http.MethodGet, "/api/chat/history", "client-1", nil)
	if status != http.StatusOK {
		t.Fatalf("history failed: %d %+v", status, response)
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal(response.Data, &entries); err != nil {
		t.Fatalf("history payload malformed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d history entries, want 2", len(entries))
	}
}

func TestMoodDuplicateDayConflicts(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodPost, "/api/moods", "client-1", map[string]interface{}{"score": 4, "note": "ok"})
	if status != http.StatusOK {
		t.Fatalf("first mood failed: %d", status)
	}
	status, response := ts.do(t, http.MethodPost, "/api/moods", "client-1", map[string]interface{}{"score": 2, "note": "later"})
	if status != http.StatusConflict || response.OK {
		t.Fatalf("duplicate mood must 409: %d %+v", status, response)
	}

	status, response = ts.do(t, http.MethodGet, "/api/moods?days=7", "client-1", nil)
	if status != http.StatusOK {
		t.Fatalf("series failed: %d", status)
	}
	var points []map[string]interface{}
	if err := json.Unmarshal(response.Data, &points); err != nil {
		t.Fatalf("series payload malformed: %v", err)
	}
	if len(points) != 1 || points[0]["score"].(float64) != 4 {
		t.Fatalf("series must keep the first entry only: %+v", points)
	}
}

func TestMoodScoreValidation(t *testing.T) {
	ts := newTestServer(t)
	status, response := ts.do(t, http.MethodPost, "/api/moods", "client-1", map[string]interface{}{"score": 9})
	if status != http.StatusBadRequest || response.OK {
		t.Fatalf("out-of-range score must 400: %d %+v", status, response)
	}
}

func TestMoodSummaryAverages(t *testing.T) {
	ts := newTestServer(t)

	for day, score := range map[string]int{"2026-08-28": 2, "2026-08-29": 4} {
		parsed, err := time.Parse("2006-01-02", day)
		if err != nil {
			t.Fatalf("bad day literal: %v", err)
		}
		ts.current = parsed
		if status, _ := ts.do(t, http.MethodPost, "/api/moods", "client-1", map[string]interface{}{"score": score}); status != http.StatusOK {
			t.Fatalf("mood %s failed: %d", day, status)
		}
	}
	ts.current = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	status, response := ts.do(t, http.MethodGet, "/api/moods/summary", "client-1", nil)
	if status != http.StatusOK {
		t.Fatalf("summary failed: %d", status)
	}
	var summary struct {
		Average float64 `json:"average"`
		Count   int     `json:"count"`
	}
	if err := json.Unmarshal(response.Data, &summary); err != nil {
		t.Fatalf("summary payload malformed: %v", err)
	}
	if summary.Count != 2 || summary.Average != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestAssessmentSubmitRescoresServerSide(t *testing.T) {
	ts := newTestServer(t)

	// Client-claimed total is ignored; the server rescores the answers.
	status, response := ts.do(t, http.MethodPost, "/api/assessment/submit", "client-1", map[string]interface{}{
		"answers": []int{3, 3, 3, 3, 3, 3, 3, 3, 3},
		"total":   1,
	})
	if status != http.StatusOK || !response.OK {
		t.Fatalf("submit failed: %d %+v", status, response)
	}
	var snapshot struct {
		Total  int    `json:"total"`
		Level  string `json:"level"`
		Crisis bool   `json:"crisis"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(response.Data, &snapshot); err != nil {
		t.Fatalf("snapshot payload malformed: %v", err)
	}
	if snapshot.Total != 27 || snapshot.Level != "severe" || !snapshot.Crisis {
		t.Fatalf("server must rescore: %+v", snapshot)
	}
	if snapshot.Source != "remote" {
		t.Fatalf("backend snapshots carry remote provenance, got %q", snapshot.Source)
	}
}

func TestAssessmentSubmitRejectsMalformedAnswers(t *testing.T) {
	ts := newTestServer(t)
	status, response := ts.do(t, http.MethodPost, "/api/assessment/submit", "client-1", map[string]interface{}{
		"answers": []int{5, 0, 0, 0, 0, 0, 0, 0, 0},
	})
	if status != http.StatusBadRequest || response.OK {
		t.Fatalf("malformed answers must 400: %d %+v", status, response)
	}
}

func TestAssessmentLast(t *testing.T) {
	ts := newTestServer(t)

	status, response := ts.do(t, http.MethodGet, "/api/assessment/last", "client-1", nil)
	if status != http.StatusNotFound || response.OK {
		t.Fatalf("missing assessment must 404: %d %+v", status, response)
	}

	if status, _ := ts.do(t, http.MethodPost, "/api/assessment/submit", "client-1", map[string]interface{}{
		"answers": []int{1, 1, 1, 0, 0, 0, 0, 0, 0},
	}); status != http.StatusOK {
		t.Fatalf("submit failed: %d", status)
	}
	status, response = ts.do(t, http.MethodGet, "/api/assessment/last", "client-1", nil)
	if status != http.StatusOK || !response.OK {
		t.Fatalf("last failed: %d %+v", status, response)
	}
}

func TestCognitiveSaveValidatesRequiredFields(t *testing.T) {
	ts := newTestServer(t)

	status, response := ts.do(t, http.MethodPost, "/api/cognitive/save", "client-1", map[string]interface{}{
		"situation": " ", "automaticThought": "I always fail",
	})
	if status != http.StatusBadRequest || response.OK {
		t.Fatalf("invalid record must 400: %d %+v", status, response)
	}

	status, _ = ts.do(t, http.MethodPost, "/api/cognitive/save", "client-1", map[string]interface{}{
		"situation": "Missed deadline", "automaticThought": "I always fail", "beforeFeeling": 70, "afterFeeling": 40,
	})
	if status != http.StatusOK {
		t.Fatalf("valid record failed: %d", status)
	}
}

func TestSurveyEndpointsAccept(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/survey/sus", "/api/survey/satisfaction"} {
		status, response := ts.do(t, http.MethodPost, path, "client-1", map[string]interface{}{
			"answers": []int{4, 4, 4, 4, 4}, "score": 4, "comment": "fine",
		})
		if status != http.StatusOK || !response.OK {
			t.Fatalf("%s failed: %d %+v", path, status, response)
		}
	}
}

func TestReportAggregatesStoredHistory(t *testing.T) {
	ts := newTestServer(t)

	if status, _ := ts.do(t, http.MethodPost, "/api/assessment/submit", "client-1", map[string]interface{}{
		"answers": []int{1, 1, 1, 0, 0, 0, 0, 0, 0},
	}); status != http.StatusOK {
		t.Fatalf("submit failed: %d", status)
	}
	if status, _ := ts.do(t, http.MethodPost, "/api/moods", "client-1", map[string]interface{}{"score": 4}); status != http.StatusOK {
		t.Fatalf("mood failed: %d", status)
	}
	if status, _ := ts.do(t, http.MethodPost, "/api/chat", "client-1", map[string]string{"message": "so much stress"}); status != http.StatusOK {
		t.Fatalf("chat failed: %d", status)
	}

	status, response := ts.do(t, http.MethodGet, "/api/report", "client-1", nil)
	if status != http.StatusOK || !response.OK {
		t.Fatalf("report failed: %d %+v", status, response)
	}
	var built struct {
		Summary struct {
			AssessmentCount  int `json:"assessment_count"`
			TotalDaysTracked int `json:"total_days_tracked"`
		} `json:"summary"`
		ChatAnalysis struct {
			TopConcerns []struct {
				Concern string `json:"concern"`
				Count   int    `json:"count"`
			} `json:"top_concerns"`
		} `json:"chat_analysis"`
	}
	if err := json.Unmarshal(response.Data, &built); err != nil {
		t.Fatalf("report payload malformed: %v", err)
	}
	if built.Summary.AssessmentCount != 1 || built.Summary.TotalDaysTracked != 1 {
		t.Fatalf("report misses history: %+v", built.Summary)
	}
	if len(built.ChatAnalysis.TopConcerns) == 0 || built.ChatAnalysis.TopConcerns[0].Concern != "stress" {
		t.Fatalf("report misses chat concerns: %+v", built.ChatAnalysis)
	}
}

func TestReportIsIdenticalAcrossCalls(t *testing.T) {
	ts := newTestServer(t)
	if status, _ := ts.do(t, http.MethodPost, "/api/moods", "client-1", map[string]interface{}{"score": 3}); status != http.StatusOK {
		t.Fatalf("mood failed")
	}
	_, first := ts.do(t, http.MethodGet, "/api/report", "client-1", nil)
	_, second := ts.do(t, http.MethodGet, "/api/report", "client-1", nil)
	if string(first.Data) != string(second.Data) {
		t.Fatalf("report must be reproducible:\n%s\n%s", first.Data, second.Data)
	}
}
