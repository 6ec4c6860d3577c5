package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/havenmind/haven/internal/assessment"
	"github.com/havenmind/haven/internal/crisis"
	"github.com/havenmind/haven/internal/report"
	"github.com/havenmind/haven/internal/store"
)

// Demo credentials accepted by the simulation transport.
const (
	DemoEmail    = "test@demo.com"
	demoPassword = "123456"
)

const simHistoryDays = 7

var simHotlines = []Hotline{
	{Region: "US", Number: "988"},
	{Region: "UK", Number: "116 123"},
	{Region: "EU", Number: "112"},
}

const simSupportReply = "Thank you for sharing that with me. It sounds like you're going through a difficult time. Would you like to talk more about what's on your mind?"

const simCrisisReply = "I'm really concerned about what you've shared. Please reach out to a crisis support service right now. You don't have to face this alone."

// SimConfig seeds the simulation transport.
type SimConfig struct {
	Seed   int64
	Clock  func() time.Time
	Logger *zap.Logger
}

// SimTransport answers every endpoint locally with schema-valid data. Values
// derive from the seed and the calendar date, so repeated calls return
// identical payloads and the mood history is stable across a session.
type SimTransport struct {
	seed   int64
	now    func() time.Time
	logger *zap.Logger
}

// NewSimTransport builds the transport, defaulting the clock to time.Now.
func NewSimTransport(config SimConfig) *SimTransport {
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimTransport{seed: config.Seed, now: now, logger: logger}
}

// Call dispatches on method and path the way the real backend routes.
func (t *SimTransport) Call(ctx context.Context, method string, path string, query url.Values, body interface{}) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, &NetworkError{Endpoint: path, Err: err}
	}
	switch {
	case method == http.MethodPost && path == endpointAuthLogin:
		return t.login(body)
	case method == http.MethodPost && path == endpointAuthAnon:
		return Envelope{OK: true, User: &User{ID: t.simID("anon"), Name: "Guest"}, Token: "sim-token-anon"}, nil
	case method == http.MethodPost && path == endpointAuthRegister:
		return Envelope{OK: true}, nil
	case method == http.MethodPost && path == endpointChat:
		return t.chat(body)
	case method == http.MethodGet && path == endpointChatHistory:
		return okData(path, []ChatHistoryEntry{})
	case method == http.MethodGet && path == endpointMoods:
		return okData(path, t.moodSeries())
	case method == http.MethodPost && path == endpointMoods:
		return Envelope{OK: true}, nil
	case method == http.MethodGet && path == endpointMoodSummary:
		return okData(path, t.moodSummary())
	case method == http.MethodPost && path == endpointAssessmentSubmit:
		return t.submitAssessment(path, body)
	case method == http.MethodGet && path == endpointAssessmentLast:
		snapshot, err := t.lastAssessment()
		if err != nil {
			return Envelope{}, &NetworkError{Endpoint: path, Err: err}
		}
		return okData(path, snapshot)
	case method == http.MethodPost && (path == endpointSurveySUS || path == endpointSurveySatisfaction):
		return Envelope{OK: true}, nil
	case method == http.MethodPost && path == endpointCognitiveSave:
		return Envelope{OK: true}, nil
	case method == http.MethodGet && path == endpointReport:
		return t.report(path)
	default:
		return Envelope{}, &NetworkError{Endpoint: path, Err: fmt.Errorf("unknown route %s %s", method, path)}
	}
}

func (t *SimTransport) login(body interface{}) (Envelope, error) {
	var request loginRequest
	if err := rebind(body, &request); err != nil {
		return Envelope{}, &NetworkError{Endpoint: endpointAuthLogin, Err: err}
	}
	if request.Email != DemoEmail || request.Password != demoPassword {
		return Envelope{OK: false, Message: "Invalid credentials"}, nil
	}
	return Envelope{
		OK:    true,
		User:  &User{ID: t.simID("demo"), Email: DemoEmail, Name: "Demo User"},
		Token: "sim-token-demo",
	}, nil
}

func (t *SimTransport) chat(body interface{}) (Envelope, error) {
	var request chatRequest
	if err := rebind(body, &request); err != nil {
		return Envelope{}, &NetworkError{Endpoint: endpointChat, Err: err}
	}
	if crisis.Detect(request.Message) {
		return Envelope{OK: true, Type: "crisis", Message: simCrisisReply, Hotlines: simHotlines}, nil
	}
	return Envelope{OK: true, Type: "support", Message: simSupportReply}, nil
}

func (t *SimTransport) submitAssessment(path string, body interface{}) (Envelope, error) {
	var request assessmentSubmitRequest
	if err := rebind(body, &request); err != nil {
		return Envelope{}, &NetworkError{Endpoint: path, Err: err}
	}
	snapshot, err := assessment.LocalSnapshot(request.Answers, t.now())
	if err != nil {
		return Envelope{OK: false, Message: err.Error()}, nil
	}
	snapshot.Source = assessment.SourceRemote
	return okData(path, snapshot)
}

func (t *SimTransport) lastAssessment() (assessment.Snapshot, error) {
	snapshot, err := assessment.LocalSnapshot([]int{1, 1, 1, 0, 0, 0, 0, 0, 0}, t.now().AddDate(0, 0, -1))
	if err != nil {
		return assessment.Snapshot{}, err
	}
	snapshot.Source = assessment.SourceRemote
	return snapshot, nil
}

func (t *SimTransport) report(path string) (Envelope, error) {
	last, err := t.lastAssessment()
	if err != nil {
		return Envelope{}, &NetworkError{Endpoint: path, Err: err}
	}
	entries := make([]store.MoodEntry, 0, simHistoryDays)
	for _, point := range t.moodSeries() {
		day, parseErr := time.Parse("2006-01-02", point.Date)
		if parseErr != nil {
			return Envelope{}, &NetworkError{Endpoint: path, Err: parseErr}
		}
		entries = append(entries, store.MoodEntry{
			ClientID:  t.simID("demo"),
			Day:       point.Date,
			Score:     point.Score,
			CreatedAt: day,
		})
	}
	built := report.Build(report.Input{
		Moods:       entries,
		Assessments: []assessment.Snapshot{last},
		GeneratedAt: t.now(),
	})
	return okData(path, built)
}

// moodSeries returns the trailing week oldest first, one score per date.
func (t *SimTransport) moodSeries() []MoodPoint {
	today := t.now()
	points := make([]MoodPoint, 0, simHistoryDays)
	for offset := simHistoryDays - 1; offset >= 0; offset-- {
		date := today.AddDate(0, 0, -offset).Format("2006-01-02")
		points = append(points, MoodPoint{Date: date, Score: t.scoreForDate(date)})
	}
	return points
}

func (t *SimTransport) moodSummary() MoodSummary {
	points := t.moodSeries()
	sum := 0
	for _, point := range points {
		sum += point.Score
	}
	return MoodSummary{
		Average: float64(sum) / float64(len(points)),
		Count:   len(points),
	}
}

// scoreForDate hashes the seed and date into a stable 1..5 score.
func (t *SimTransport) scoreForDate(date string) int {
	digest := fnv.New64a()
	fmt.Fprintf(digest, "%d:%s", t.seed, date)
	return int(digest.Sum64()%5) + 1
}

func (t *SimTransport) simID(kind string) string {
	digest := fnv.New64a()
	fmt.Fprintf(digest, "%d:%s", t.seed, kind)
	return fmt.Sprintf("sim-%s-%08x", kind, uint32(digest.Sum64()))
}

func okData(path string, payload interface{}) (Envelope, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, &NetworkError{Endpoint: path, Err: err}
	}
	return Envelope{OK: true, Data: encoded}, nil
}

// rebind round-trips a request body through JSON, mirroring what the wire
// would do to it.
func rebind(body interface{}, target interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, target)
}
