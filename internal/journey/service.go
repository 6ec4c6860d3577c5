// Package journey composes the session pipeline: classification, remote
// submission with explicit local fallback, persistence and progression. The
// fallback policy lives here so it is a visible branch, not an implicit
// catch inside the transport.
package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/havenmind/haven/internal/assessment"
	"github.com/havenmind/haven/internal/crisis"
	"github.com/havenmind/haven/internal/gate"
	"github.com/havenmind/haven/internal/report"
	"github.com/havenmind/haven/internal/store"
	"github.com/havenmind/haven/internal/syncclient"
)

const (
	chatHistoryLimit = 200
	moodWindowDays   = 30
)

var (
	// ErrNotAuthenticated rejects pipeline operations before login.
	ErrNotAuthenticated = errors.New("journey: not authenticated")
	// ErrChatDisabled rejects chat while the session has chat switched off.
	ErrChatDisabled = errors.New("journey: chat is disabled for this session")
)

// ServiceConfig wires the journey's collaborators.
type ServiceConfig struct {
	Store  *store.Service
	Client *syncclient.Client
	Gate   *gate.Gate
	Logger *zap.Logger
	Clock  func() time.Time
}

// Service orchestrates one user session. Each logical operation holds its
// own mutex, so a duplicate action queues behind the first instead of
// racing it.
type Service struct {
	store  *store.Service
	client *syncclient.Client
	gate   *gate.Gate
	logger *zap.Logger
	now    func() time.Time

	assessmentMu sync.Mutex
	moodMu       sync.Mutex
	chatMu       sync.Mutex
}

// NewService validates the configuration and builds the orchestrator.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Store == nil {
		return nil, errors.New("journey: store is required")
	}
	if config.Client == nil {
		return nil, errors.New("journey: sync client is required")
	}
	if config.Gate == nil {
		return nil, errors.New("journey: gate is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:  config.Store,
		client: config.Client,
		gate:   config.Gate,
		logger: logger,
		now:    clock,
	}, nil
}

// Login authenticates against the backend and persists the issued identity.
// A credential rejection surfaces with the backend message verbatim.
func (s *Service) Login(ctx context.Context, email string, password string) (syncclient.User, error) {
	result, err := s.client.Login(ctx, email, password)
	if err != nil {
		return syncclient.User{}, err
	}
	if err := s.persistAuth(result); err != nil {
		return syncclient.User{}, err
	}
	return result.User, nil
}

// LoginAnonymous starts a throwaway session.
func (s *Service) LoginAnonymous(ctx context.Context) (syncclient.User, error) {
	result, err := s.client.LoginAnonymous(ctx)
	if err != nil {
		return syncclient.User{}, err
	}
	if err := s.persistAuth(result); err != nil {
		return syncclient.User{}, err
	}
	return result.User, nil
}

// Register creates a backend account. The session stays unauthenticated
// until a subsequent Login.
func (s *Service) Register(ctx context.Context, name string, email string, password string) error {
	return s.client.Register(ctx, name, email, password)
}

// GiveConsent records the one-time consent flag.
func (s *Service) GiveConsent() error {
	return s.store.Set(store.KeyConsent, "true")
}

// State reports the current progression stage.
func (s *Service) State() (gate.State, error) {
	return s.gate.Current()
}

// AcknowledgeCrisis confirms the support resources were shown and unblocks
// a crisis-flagged session.
func (s *Service) AcknowledgeCrisis() error {
	return s.gate.Acknowledge()
}

// BeginReassessment re-enters the assessment stage from an active session.
func (s *Service) BeginReassessment() error {
	return s.gate.BeginReassessment()
}

// SubmitAssessment scores the answers, attempts the remote submission and
// persists the resulting snapshot. Validation failures abort before any
// network attempt. A failed or rejected remote call never blocks the
// session: the locally scored snapshot is stored instead, marked
// Source=local, and the failure is logged rather than surfaced.
func (s *Service) SubmitAssessment(ctx context.Context, answers []int) (assessment.Snapshot, error) {
	s.assessmentMu.Lock()
	defer s.assessmentMu.Unlock()

	clientID, err := s.currentClientID()
	if err != nil {
		return assessment.Snapshot{}, err
	}
	local, err := assessment.LocalSnapshot(answers, s.now())
	if err != nil {
		return assessment.Snapshot{}, err
	}

	snapshot := local
	remote, err := s.client.SubmitAssessment(ctx, answers, local.Total)
	switch {
	case err == nil:
		snapshot = assessment.MergeRemote(local, &assessment.RemoteAnalysis{
			Summary:         remote.Summary,
			Recommendations: remote.Recommendations,
			RiskLevel:       string(remote.RiskLevel),
		})
	case errors.Is(err, context.Canceled):
		// The caller abandoned the submission; discard everything.
		return assessment.Snapshot{}, err
	default:
		s.logger.Warn("assessment submission falling back to local scoring",
			zap.String("client_id", clientID.String()),
			zap.Error(err))
	}

	if _, err := s.store.SaveAssessment(clientID, snapshot); err != nil {
		return assessment.Snapshot{}, err
	}
	if err := s.persistSnapshotState(snapshot); err != nil {
		return assessment.Snapshot{}, err
	}
	return snapshot, nil
}

// LogMood records today's mood locally first, so the duplicate-day rule is
// enforced before any network traffic. The remote write is best effort.
func (s *Service) LogMood(ctx context.Context, score int, note string) (store.MoodEntry, error) {
	s.moodMu.Lock()
	defer s.moodMu.Unlock()

	clientID, err := s.currentClientID()
	if err != nil {
		return store.MoodEntry{}, err
	}
	entry, err := s.store.AddMood(clientID, store.DayKey(s.now()), score, note)
	if err != nil {
		return entry, err
	}
	if err := s.client.AddMood(ctx, score, note); err != nil {
		s.logger.Warn("mood entry kept locally only",
			zap.String("client_id", clientID.String()),
			zap.Error(err))
	}
	return entry, nil
}

// MoodHistory returns the local mood series for the trailing window, oldest
// first.
func (s *Service) MoodHistory(days int) ([]store.MoodEntry, error) {
	clientID, err := s.currentClientID()
	if err != nil {
		return nil, err
	}
	return s.store.Moods(clientID, days)
}

// SendChat classifies and submits one message. Unlike the gating
// operations, a failed remote call surfaces to the caller and nothing is
// persisted, so the log never contains an exchange without a reply.
func (s *Service) SendChat(ctx context.Context, message string) (syncclient.ChatReply, error) {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	clientID, err := s.currentClientID()
	if err != nil {
		return syncclient.ChatReply{}, err
	}
	if disabled, err := s.store.Get(store.KeyChatDisabled); err == nil && disabled == "true" {
		return syncclient.ChatReply{}, ErrChatDisabled
	}

	classification := "support"
	if crisis.Detect(message) {
		classification = "crisis"
	}
	reply, err := s.client.SendChat(ctx, message)
	if err != nil {
		return syncclient.ChatReply{}, err
	}
	if reply.Type != "" {
		classification = reply.Type
	}
	if _, err := s.store.AppendChat(clientID, message, reply.Message, classification); err != nil {
		return syncclient.ChatReply{}, err
	}
	return reply, nil
}

// ChatHistory returns prior exchanges, newest first.
func (s *Service) ChatHistory(limit int) ([]store.ChatExchange, error) {
	clientID, err := s.currentClientID()
	if err != nil {
		return nil, err
	}
	return s.store.ChatHistory(clientID, limit)
}

// SaveCognitive validates and persists one reframing exercise, then uploads
// it best effort.
func (s *Service) SaveCognitive(ctx context.Context, record store.CognitiveRecord) (store.CognitiveRecord, error) {
	clientID, err := s.currentClientID()
	if err != nil {
		return store.CognitiveRecord{}, err
	}
	saved, err := s.store.AppendCognitive(clientID, record)
	if err != nil {
		return store.CognitiveRecord{}, err
	}
	submission := syncclient.CognitiveSubmission{
		Situation:        saved.Situation,
		AutomaticThought: saved.AutomaticThought,
		EmotionIntensity: saved.EmotionIntensity,
		Evidence:         saved.Evidence,
		Alternative:      saved.Alternative,
		ReRate:           saved.ReRate,
		BeforeFeeling:    saved.BeforeFeeling,
		AfterFeeling:     saved.AfterFeeling,
	}
	if err := s.client.SaveCognitive(ctx, submission); err != nil {
		s.logger.Warn("cognitive record kept locally only",
			zap.String("client_id", clientID.String()),
			zap.Error(err))
	}
	return saved, nil
}

// SubmitSurvey stores a survey response locally and uploads it best effort.
func (s *Service) SubmitSurvey(ctx context.Context, surveyType string, submission syncclient.SurveySubmission) error {
	clientID, err := s.currentClientID()
	if err != nil {
		return err
	}
	answersJSON := ""
	if len(submission.Answers) > 0 {
		encoded, err := json.Marshal(submission.Answers)
		if err != nil {
			return fmt.Errorf("journey: encode survey answers: %w", err)
		}
		answersJSON = string(encoded)
	}
	if err := s.store.SaveSurvey(clientID, surveyType, answersJSON, int(submission.Score), submission.Comment); err != nil {
		return err
	}
	if err := s.client.SubmitSurvey(ctx, surveyType, submission); err != nil {
		s.logger.Warn("survey kept locally only",
			zap.String("client_id", clientID.String()),
			zap.Error(err))
	}
	return nil
}

// Report assembles the wellbeing report from local history. It reads, never
// writes, so generating a report twice yields identical output.
func (s *Service) Report() (report.Report, error) {
	clientID, err := s.currentClientID()
	if err != nil {
		return report.Report{}, err
	}
	moods, err := s.store.Moods(clientID, moodWindowDays)
	if err != nil {
		return report.Report{}, err
	}
	assessments, err := s.store.Assessments(clientID)
	if err != nil {
		return report.Report{}, err
	}
	chat, err := s.store.ChatHistory(clientID, chatHistoryLimit)
	if err != nil {
		return report.Report{}, err
	}
	cognitive, err := s.store.CognitiveRecords(clientID)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(report.Input{
		Moods:       moods,
		Assessments: assessments,
		Chat:        chat,
		Cognitive:   cognitive,
		GeneratedAt: s.now(),
	}), nil
}

// Logout clears the session keys. Consent and the correlation id survive by
// design of the key set.
func (s *Service) Logout() error {
	return s.store.Clear()
}

func (s *Service) persistAuth(result syncclient.AuthResult) error {
	encoded, err := json.Marshal(result.User)
	if err != nil {
		return fmt.Errorf("journey: encode identity: %w", err)
	}
	if err := s.store.Set(store.KeyIdentity, string(encoded)); err != nil {
		return err
	}
	if err := s.store.Set(store.KeyClientCorrelationID, result.User.ID); err != nil {
		return err
	}
	return s.store.SaveIdentity(store.Identity{
		ClientID: result.User.ID,
		Email:    result.User.Email,
		Name:     result.User.Name,
	})
}

// persistSnapshotState mirrors the snapshot into the keyed session state the
// gate derives from.
func (s *Service) persistSnapshotState(snapshot assessment.Snapshot) error {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("journey: encode snapshot: %w", err)
	}
	if err := s.store.Set(store.KeyLastAssessment, string(encoded)); err != nil {
		return err
	}
	recommendations, err := json.Marshal(snapshot.Recommendations)
	if err != nil {
		return fmt.Errorf("journey: encode recommendations: %w", err)
	}
	return s.store.Set(store.KeyDerivedRecommendations, string(recommendations))
}

func (s *Service) currentClientID() (store.ClientID, error) {
	value, err := s.store.Get(store.KeyClientCorrelationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", err
	}
	if _, err := s.store.Get(store.KeyIdentity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", err
	}
	return store.NewClientID(value)
}
