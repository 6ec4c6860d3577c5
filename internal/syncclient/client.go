package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/havenmind/haven/internal/assessment"
	"github.com/havenmind/haven/internal/report"
)

// Transport executes one backend call and returns the decoded envelope.
// Transport-level failures (unreachable host, timeout, malformed body) come
// back as *NetworkError; an application-level rejection arrives as an
// envelope with OK=false.
type Transport interface {
	Call(ctx context.Context, method, path string, query url.Values, body interface{}) (Envelope, error)
}

const (
	endpointAuthLogin          = "/api/auth/login"
	endpointAuthAnon           = "/api/auth/anon"
	endpointAuthRegister       = "/api/auth/register"
	endpointChat               = "/api/chat"
	endpointChatHistory        = "/api/chat/history"
	endpointMoods              = "/api/moods"
	endpointMoodSummary        = "/api/moods/summary"
	endpointAssessmentSubmit   = "/api/assessment/submit"
	endpointAssessmentLast     = "/api/assessment/last"
	endpointSurveySUS          = "/api/survey/sus"
	endpointSurveySatisfaction = "/api/survey/satisfaction"
	endpointCognitiveSave      = "/api/cognitive/save"
	endpointReport             = "/api/report"
)

// Client exposes one typed method per backend endpoint. It owns no fallback
// policy; callers decide what a failed call means.
type Client struct {
	transport Transport
}

// NewClient wraps the given transport.
func NewClient(transport Transport) (*Client, error) {
	if transport == nil {
		return nil, errors.New("syncclient: transport is required")
	}
	return &Client{transport: transport}, nil
}

// Login exchanges credentials for an account and token. A credential
// rejection surfaces as *AuthError with the backend message verbatim.
func (c *Client) Login(ctx context.Context, email string, password string) (AuthResult, error) {
	envelope, err := c.transport.Call(ctx, http.MethodPost, endpointAuthLogin, nil, loginRequest{Email: email, Password: password})
	if err != nil {
		return AuthResult{}, err
	}
	return authResult(endpointAuthLogin, envelope)
}

// LoginAnonymous requests a throwaway account.
func (c *Client) LoginAnonymous(ctx context.Context) (AuthResult, error) {
	envelope, err := c.transport.Call(ctx, http.MethodPost, endpointAuthAnon, nil, struct{}{})
	if err != nil {
		return AuthResult{}, err
	}
	return authResult(endpointAuthAnon, envelope)
}

// Register creates an account. A rejection (duplicate email, weak password)
// surfaces as *AuthError with the backend message verbatim.
func (c *Client) Register(ctx context.Context, name string, email string, password string) error {
	envelope, err := c.transport.Call(ctx, http.MethodPost, endpointAuthRegister, nil, registerRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	if !envelope.OK {
		return &AuthError{Message: rejectionMessage(envelope)}
	}
	return nil
}

// SendChat submits one message and returns the classified reply.
func (c *Client) SendChat(ctx context.Context, message string) (ChatReply, error) {
	envelope, err := c.transport.Call(ctx, http.MethodPost, endpointChat, nil, chatRequest{Message: message})
	if err != nil {
		return ChatReply{}, err
	}
	if !envelope.OK {
		return ChatReply{}, rejected(endpointChat, envelope)
	}
	return ChatReply{Type: envelope.Type, Message: envelope.Message, Hotlines: envelope.Hotlines}, nil
}

// ChatHistory returns prior exchanges, newest first.
func (c *Client) ChatHistory(ctx context.Context) ([]ChatHistoryEntry, error) {
	envelope, err := c.transport.Call(ctx, http.MethodGet, endpointChatHistory, nil, nil)
	if err != nil {
		return nil, err
	}
	var entries []ChatHistoryEntry
	if err := decodeData(endpointChatHistory, envelope, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Moods returns the remote mood series for the trailing window.
func (c *Client) Moods(ctx context.Context, days int) ([]MoodPoint, error) {
	query := url.Values{"days": []string{strconv.Itoa(days)}}
	envelope, err := c.transport.Call(ctx, http.MethodGet, endpointMoods, query, nil)
	if err != nil {
		return nil, err
	}
	var points []MoodPoint
	if err := decodeData(endpointMoods, envelope, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// AddMood records today's mood remotely.
func (c *Client) AddMood(ctx context.Context, score int, note string) error {
	envelope, err := c.transport.Call(ctx, http.MethodPost, endpointMoods, nil, moodRequest{Score: score, Note: note})
	if err != nil {
		return err
	}
	if !envelope.OK {
		return rejected(endpointMoods, envelope)
	}
	return nil
}

// MoodSummary returns the remote rolling average.
func (c *Client) MoodSummary(ctx context.Context) (MoodSummary, error) {
	envelope, err := c.transport.Call(ctx, http.MethodGet, endpointMoodSummary, nil, nil)
	if err != nil {
		return MoodSummary{}, err
	}
	var summary MoodSummary
	if err := decodeData(endpointMoodSummary, envelope, &summary); err != nil {
		return MoodSummary{}, err
	}
	return summary, nil
}

// SubmitAssessment sends the answer vector and precomputed total, returning
// the backend's snapshot with its analysis attached.
func (c *Client) SubmitAssessment(ctx context.Context, answers []int, total int) (assessment.Snapshot, error) {
	envelope, err := c.transport.Call(ctx, http.MethodPost, endpointAssessmentSubmit, nil, assessmentSubmitRequest{Answers: answers, Total: total})
	if err != nil {
		return assessment.Snapshot{}, err
	}
	var snapshot assessment.Snapshot
	if err := decodeData(endpointAssessmentSubmit, envelope, &snapshot); err != nil {
		return assessment.Snapshot{}, err
	}
	return snapshot, nil
}

// LastAssessment returns the most recent remote snapshot.
func (c *Client) LastAssessment(ctx context.Context) (assessment.Snapshot, error) {
	envelope, err := c.transport.Call(ctx, http.MethodGet, endpointAssessmentLast, nil, nil)
	if err != nil {
		return assessment.Snapshot{}, err
	}
	var snapshot assessment.Snapshot
	if err := decodeData(endpointAssessmentLast, envelope, &snapshot); err != nil {
		return assessment.Snapshot{}, err
	}
	return snapshot, nil
}

// SubmitSurvey posts a usability ("sus") or "satisfaction" survey.
func (c *Client) SubmitSurvey(ctx context.Context, surveyType string, submission SurveySubmission) error {
	var path string
	switch surveyType {
	case "sus":
		path = endpointSurveySUS
	case "satisfaction":
		path = endpointSurveySatisfaction
	default:
		return fmt.Errorf("syncclient: unknown survey type %q", surveyType)
	}
	envelope, err := c.transport.Call(ctx, http.MethodPost, path, nil, submission)
	if err != nil {
		return err
	}
	if !envelope.OK {
		return rejected(path, envelope)
	}
	return nil
}

// SaveCognitive uploads one completed reframing exercise.
func (c *Client) SaveCognitive(ctx context.Context, submission CognitiveSubmission) error {
	envelope, err := c.transport.Call(ctx, http.MethodPost, endpointCognitiveSave, nil, submission)
	if err != nil {
		return err
	}
	if !envelope.OK {
		return rejected(endpointCognitiveSave, envelope)
	}
	return nil
}

// FetchReport returns the backend-computed wellbeing report.
func (c *Client) FetchReport(ctx context.Context) (report.Report, error) {
	envelope, err := c.transport.Call(ctx, http.MethodGet, endpointReport, nil, nil)
	if err != nil {
		return report.Report{}, err
	}
	var built report.Report
	if err := decodeData(endpointReport, envelope, &built); err != nil {
		return report.Report{}, err
	}
	return built, nil
}

func authResult(endpoint string, envelope Envelope) (AuthResult, error) {
	if !envelope.OK {
		return AuthResult{}, &AuthError{Message: rejectionMessage(envelope)}
	}
	if envelope.User == nil || envelope.User.ID == "" {
		return AuthResult{}, &NetworkError{Endpoint: endpoint, Err: errors.New("auth response missing user")}
	}
	return AuthResult{User: *envelope.User, Token: envelope.Token}, nil
}

func decodeData(endpoint string, envelope Envelope, target interface{}) error {
	if !envelope.OK {
		return rejected(endpoint, envelope)
	}
	if len(envelope.Data) == 0 {
		return &NetworkError{Endpoint: endpoint, Err: errors.New("response missing data")}
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func rejected(endpoint string, envelope Envelope) error {
	return &NetworkError{Endpoint: endpoint, Err: errors.New(rejectionMessage(envelope))}
}

func rejectionMessage(envelope Envelope) string {
	if envelope.Message != "" {
		return envelope.Message
	}
	return "request rejected"
}
