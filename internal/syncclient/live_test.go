package syncclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newLiveClient(t *testing.T, server *httptest.Server, correlation string) *Client {
	t.Helper()
	transport, err := NewLiveTransport(LiveConfig{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		CorrelationID: func() string {
			return correlation
		},
	})
	if err != nil {
		t.Fatalf("failed to build transport: %v", err)
	}
	client, err := NewClient(transport)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	return client
}

func TestLiveTransportAttachesCorrelationHeader(t *testing.T) {
	var seenHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get("X-Client-Id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"data":[]}`))
	}))
	defer server.Close()

	client := newLiveClient(t, server, "client-42")
	if _, err := client.Moods(context.Background(), 7); err != nil {
		t.Fatalf("moods failed: %v", err)
	}
	if seenHeader != "client-42" {
		t.Fatalf("got correlation header %q, want client-42", seenHeader)
	}
}

func TestLiveTransportOmitsEmptyCorrelationHeader(t *testing.T) {
	var headerPresent bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, headerPresent = r.Header["X-Client-Id"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"data":[]}`))
	}))
	defer server.Close()

	client := newLiveClient(t, server, "")
	if _, err := client.Moods(context.Background(), 7); err != nil {
		t.Fatalf("moods failed: %v", err)
	}
	if headerPresent {
		t.Fatalf("header must be omitted without a correlation id")
	}
}

func TestLoginRejectionSurfacesBackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"message":"Invalid credentials"}`))
	}))
	defer server.Close()

	client := newLiveClient(t, server, "")
	_, err := client.Login(context.Background(), "who@example.com", "nope")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if authErr.Message != "Invalid credentials" {
		t.Fatalf("backend message must survive verbatim, got %q", authErr.Message)
	}
}

func TestNonJSONResponseIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	client := newLiveClient(t, server, "")
	_, err := client.MoodSummary(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if netErr.Endpoint != "/api/moods/summary" {
		t.Fatalf("unexpected endpoint in error: %q", netErr.Endpoint)
	}
}

func TestServerFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok":false,"message":"database unavailable"}`))
	}))
	defer server.Close()

	client := newLiveClient(t, server, "")
	err := client.AddMood(context.Background(), 4, "ok")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if netErr.Status != http.StatusInternalServerError {
		t.Fatalf("got status %d, want 500", netErr.Status)
	}
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newLiveClient(t, server, "")
	server.Close()

	_, err := client.SendChat(context.Background(), "hello")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
}

func TestSubmitAssessmentDecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"data":{"answers":[3,3,3,3,3,3,3,3,3],"total":27,"level":"severe","crisis":true,"summary":"s","recommendations":["r"],"risk_level":"high","source":"remote","at":"2026-08-30T12:00:00Z"}}`))
	}))
	defer server.Close()

	client := newLiveClient(t, server, "")
	snapshot, err := client.SubmitAssessment(context.Background(), []int{3, 3, 3, 3, 3, 3, 3, 3, 3}, 27)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if snapshot.Total != 27 || !snapshot.Crisis || snapshot.Level != "severe" {
		t.Fatalf("snapshot decoded wrong: %+v", snapshot)
	}
}
