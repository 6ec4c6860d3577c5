package syncclient

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/havenmind/haven/internal/assessment"
)

func newSimClient(t *testing.T) *Client {
	t.Helper()
	transport := NewSimTransport(SimConfig{
		Seed: 7,
		Clock: func() time.Time {
			return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		},
	})
	client, err := NewClient(transport)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	return client
}

func TestSimDemoCredentials(t *testing.T) {
	client := newSimClient(t)

	result, err := client.Login(context.Background(), DemoEmail, "123456")
	if err != nil {
		t.Fatalf("demo login failed: %v", err)
	}
	if result.User.ID == "" || result.Token == "" {
		t.Fatalf("incomplete auth result: %+v", result)
	}

	_, err = client.Login(context.Background(), "other@example.com", "wrong")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if authErr.Message != "Invalid credentials" {
		t.Fatalf("unexpected rejection message: %q", authErr.Message)
	}
}

func TestSimMoodSeriesIsStable(t *testing.T) {
	client := newSimClient(t)

	first, err := client.Moods(context.Background(), 7)
	if err != nil {
		t.Fatalf("moods failed: %v", err)
	}
	second, err := client.Moods(context.Background(), 7)
	if err != nil {
		t.Fatalf("moods failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("series must be stable across calls:\n%+v\n%+v", first, second)
	}
	if len(first) != 7 {
		t.Fatalf("got %d points, want a week", len(first))
	}
	for _, point := range first {
		if point.Score < 1 || point.Score > 5 {
			t.Fatalf("score out of range: %+v", point)
		}
	}
	if first[len(first)-1].Date != "2026-08-30" {
		t.Fatalf("series must end today, got %q", first[len(first)-1].Date)
	}
}

func TestSimChatClassification(t *testing.T) {
	client := newSimClient(t)

	reply, err := client.SendChat(context.Background(), "I want to end my life")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if reply.Type != "crisis" {
		t.Fatalf("got type %q, want crisis", reply.Type)
	}
	if len(reply.Hotlines) == 0 {
		t.Fatalf("crisis reply must carry hotlines")
	}

	reply, err = client.SendChat(context.Background(), "I had a rough day at work")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if reply.Type != "support" {
		t.Fatalf("got type %q, want support", reply.Type)
	}
	if len(reply.Hotlines) != 0 {
		t.Fatalf("support reply must not carry hotlines")
	}
}

func TestSimAssessmentScoresSubmission(t *testing.T) {
	client := newSimClient(t)

	snapshot, err := client.SubmitAssessment(context.Background(), []int{3, 3, 3, 3, 3, 3, 3, 3, 3}, 27)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if snapshot.Total != 27 || snapshot.Level != assessment.SeveritySevere || !snapshot.Crisis {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.Source != assessment.SourceRemote {
		t.Fatalf("simulated submission counts as remote, got %q", snapshot.Source)
	}
}

func TestSimAnswersEveryEndpoint(t *testing.T) {
	client := newSimClient(t)
	ctx := context.Background()

	if _, err := client.LoginAnonymous(ctx); err != nil {
		t.Fatalf("anon login failed: %v", err)
	}
	if err := client.Register(ctx, "A", "a@example.com", "secret"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := client.ChatHistory(ctx); err != nil {
		t.Fatalf("chat history failed: %v", err)
	}
	if err := client.AddMood(ctx, 4, "ok"); err != nil {
		t.Fatalf("add mood failed: %v", err)
	}
	summary, err := client.MoodSummary(ctx)
	if err != nil {
		t.Fatalf("mood summary failed: %v", err)
	}
	if summary.Count != 7 {
		t.Fatalf("got count %d, want 7", summary.Count)
	}
	if _, err := client.LastAssessment(ctx); err != nil {
		t.Fatalf("last assessment failed: %v", err)
	}
	if err := client.SubmitSurvey(ctx, "sus", SurveySubmission{Answers: []int{4, 4, 4, 4, 4, 4, 4, 4, 4, 4}}); err != nil {
		t.Fatalf("sus survey failed: %v", err)
	}
	if err := client.SubmitSurvey(ctx, "satisfaction", SurveySubmission{Score: 5, Comment: "good"}); err != nil {
		t.Fatalf("satisfaction survey failed: %v", err)
	}
	if err := client.SaveCognitive(ctx, CognitiveSubmission{Situation: "s", AutomaticThought: "t"}); err != nil {
		t.Fatalf("cognitive save failed: %v", err)
	}
	built, err := client.FetchReport(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if built.Summary.TotalDaysTracked != 7 {
		t.Fatalf("report should cover the simulated week, got %+v", built.Summary)
	}
}

func TestSimCancelledContextFailsFast(t *testing.T) {
	client := newSimClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Moods(ctx, 7)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
}
