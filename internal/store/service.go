// Package store is the durable holder of all session state: the keyed
// last-write-wins session values plus the mood, chat, cognitive-reframing,
// assessment and survey collections. Every other component either writes
// through it or reads from it; nothing else owns persisted state.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/havenmind/haven/internal/assessment"
	"gorm.io/gorm"
)

// Key enumerates the persisted session state keys.
type Key string

const (
	KeyIdentity               Key = "identity"
	KeyConsent                Key = "consent"
	KeyLastAssessment         Key = "lastAssessment"
	KeyDerivedRecommendations Key = "derivedRecommendations"
	KeyCognitiveRecords       Key = "cognitiveRecords"
	KeyChatDisabled           Key = "chatDisabled"
	KeyClientCorrelationID    Key = "clientCorrelationId"
)

var (
	// ErrUnknownKey indicates a key outside the enumerated session key set.
	ErrUnknownKey = errors.New("store: unknown session key")
	// ErrAppendOnlyKey indicates a direct overwrite of an append-only
	// collection; use the Append helpers instead.
	ErrAppendOnlyKey = errors.New("store: key is append-only")
)

var sessionKeySet = map[Key]struct{}{
	KeyIdentity:               {},
	KeyConsent:                {},
	KeyLastAssessment:         {},
	KeyDerivedRecommendations: {},
	KeyCognitiveRecords:       {},
	KeyChatDisabled:           {},
	KeyClientCorrelationID:    {},
}

// clearedOnLogout lists the keys Clear erases. Consent is a one-time user
// action and is never auto-reset; the correlation id survives so anonymous
// history can be re-associated.
var clearedOnLogout = []Key{KeyIdentity, KeyLastAssessment, KeyDerivedRecommendations}

// ServiceConfig describes the dependencies for the session store.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service provides keyed session state and the per-client collections.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the store service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("store: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// DayKey formats a timestamp as the calendar-day key used for mood entries.
func DayKey(at time.Time) string {
	return at.Format("2006-01-02")
}

// Get returns the stored value for the key, or ErrNotFound when the key has
// never been set. A missing key is an ordinary empty state.
func (s *Service) Get(key Key) (string, error) {
	if _, ok := sessionKeySet[key]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	var row sessionValue
	err := s.db.Where("key = ?", string(key)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Set writes the value for the key, last-write-wins. The cognitive records
// collection is append-only and rejects direct overwrites.
func (s *Service) Set(key Key, value string) error {
	if _, ok := sessionKeySet[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if key == KeyCognitiveRecords {
		return fmt.Errorf("%w: %q", ErrAppendOnlyKey, key)
	}
	row := sessionValue{Key: string(key), Value: value, UpdatedAt: s.now()}
	return s.db.Save(&row).Error
}

// Clear removes the identity, last assessment and derived recommendations.
// It is the only erasure path; there is no expiry.
func (s *Service) Clear() error {
	for _, key := range clearedOnLogout {
		if err := s.db.Where("key = ?", string(key)).Delete(&sessionValue{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// AddMood records a mood check-in for the given calendar day. A day that
// already holds an entry is rejected with ErrMoodAlreadyLogged; the stored
// entry is neither merged nor overwritten.
func (s *Service) AddMood(clientID ClientID, day string, score int, note string) (MoodEntry, error) {
	if score < 1 || score > 5 {
		return MoodEntry{}, fmt.Errorf("%w: got %d", ErrInvalidMoodScore, score)
	}
	var existing MoodEntry
	err := s.db.Where("client_id = ? AND day = ?", clientID.String(), day).Take(&existing).Error
	if err == nil {
		return existing, fmt.Errorf("%w: %s", ErrMoodAlreadyLogged, day)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return MoodEntry{}, err
	}
	entry := MoodEntry{
		ClientID:  clientID.String(),
		Day:       day,
		Score:     score,
		Note:      note,
		CreatedAt: s.now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return MoodEntry{}, err
	}
	return entry, nil
}

// Moods returns the client's entries for the trailing window, oldest first.
func (s *Service) Moods(clientID ClientID, days int) ([]MoodEntry, error) {
	if days <= 0 {
		days = 7
	}
	since := DayKey(s.now().AddDate(0, 0, -(days - 1)))
	var entries []MoodEntry
	err := s.db.
		Where("client_id = ? AND day >= ?", clientID.String(), since).
		Order("day asc").
		Find(&entries).Error
	return entries, err
}

// MoodSummary returns the average score and entry count over the window.
func (s *Service) MoodSummary(clientID ClientID, days int) (float64, int, error) {
	entries, err := s.Moods(clientID, days)
	if err != nil {
		return 0, 0, err
	}
	if len(entries) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, entry := range entries {
		sum += entry.Score
	}
	average := float64(sum) / float64(len(entries))
	return average, len(entries), nil
}

// AppendChat appends one exchange to the chat log.
func (s *Service) AppendChat(clientID ClientID, message, response, classification string) (ChatExchange, error) {
	exchange := ChatExchange{
		ClientID:       clientID.String(),
		Message:        message,
		Response:       response,
		Classification: classification,
		CreatedAt:      s.now(),
	}
	if err := s.db.Create(&exchange).Error; err != nil {
		return ChatExchange{}, err
	}
	return exchange, nil
}

// ChatHistory returns up to limit exchanges, newest first.
func (s *Service) ChatHistory(clientID ClientID, limit int) ([]ChatExchange, error) {
	if limit <= 0 {
		limit = 50
	}
	var exchanges []ChatExchange
	err := s.db.
		Where("client_id = ?", clientID.String()).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&exchanges).Error
	return exchanges, err
}

// AppendCognitive validates and appends one cognitive-reframing record.
// Records missing required fields are never persisted.
func (s *Service) AppendCognitive(clientID ClientID, record CognitiveRecord) (CognitiveRecord, error) {
	if err := record.Validate(); err != nil {
		return CognitiveRecord{}, err
	}
	record.ID = 0
	record.ClientID = clientID.String()
	record.CreatedAt = s.now()
	if err := s.db.Create(&record).Error; err != nil {
		return CognitiveRecord{}, err
	}
	return record, nil
}

// CognitiveRecords returns all reframing records, newest first.
func (s *Service) CognitiveRecords(clientID ClientID) ([]CognitiveRecord, error) {
	var records []CognitiveRecord
	err := s.db.
		Where("client_id = ?", clientID.String()).
		Order("created_at desc, id desc").
		Find(&records).Error
	return records, err
}

// SaveAssessment persists a submitted snapshot. History is retained; the
// newest record is the authoritative "last assessment".
func (s *Service) SaveAssessment(clientID ClientID, snapshot assessment.Snapshot) (AssessmentRecord, error) {
	answersJSON, err := json.Marshal(snapshot.Answers)
	if err != nil {
		return AssessmentRecord{}, err
	}
	recommendationsJSON, err := json.Marshal(snapshot.Recommendations)
	if err != nil {
		return AssessmentRecord{}, err
	}
	record := AssessmentRecord{
		ClientID:        clientID.String(),
		AnswersJSON:     string(answersJSON),
		Total:           snapshot.Total,
		Level:           string(snapshot.Level),
		Crisis:          snapshot.Crisis,
		Summary:         snapshot.Summary,
		Recommendations: string(recommendationsJSON),
		RiskLevel:       string(snapshot.RiskLevel),
		Source:          string(snapshot.Source),
		CreatedAt:       snapshot.SubmittedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	if err := s.db.Create(&record).Error; err != nil {
		return AssessmentRecord{}, err
	}
	return record, nil
}

// Assessments returns snapshot history, newest first.
func (s *Service) Assessments(clientID ClientID) ([]assessment.Snapshot, error) {
	var records []AssessmentRecord
	err := s.db.
		Where("client_id = ?", clientID.String()).
		Order("created_at desc, id desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	snapshots := make([]assessment.Snapshot, 0, len(records))
	for _, record := range records {
		snapshots = append(snapshots, record.snapshot())
	}
	return snapshots, nil
}

// LastAssessment returns the newest snapshot, or ErrNotFound when none has
// been submitted yet.
func (s *Service) LastAssessment(clientID ClientID) (assessment.Snapshot, error) {
	var record AssessmentRecord
	err := s.db.
		Where("client_id = ?", clientID.String()).
		Order("created_at desc, id desc").
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return assessment.Snapshot{}, fmt.Errorf("%w: assessment", ErrNotFound)
	}
	if err != nil {
		return assessment.Snapshot{}, err
	}
	return record.snapshot(), nil
}

func (r AssessmentRecord) snapshot() assessment.Snapshot {
	var answers []int
	_ = json.Unmarshal([]byte(r.AnswersJSON), &answers)
	var recommendations []string
	_ = json.Unmarshal([]byte(r.Recommendations), &recommendations)
	return assessment.Snapshot{
		Answers:         answers,
		Total:           r.Total,
		Level:           assessment.Severity(r.Level),
		Crisis:          r.Crisis,
		Summary:         r.Summary,
		Recommendations: recommendations,
		RiskLevel:       assessment.RiskLevel(r.RiskLevel),
		Source:          assessment.Provenance(r.Source),
		SubmittedAt:     r.CreatedAt,
	}
}

// SaveIdentity stores or refreshes the identity issued at login.
func (s *Service) SaveIdentity(identity Identity) error {
	if _, err := NewClientID(identity.ClientID); err != nil {
		return err
	}
	return s.db.Save(&identity).Error
}

// IdentityByClientID resolves a stored identity, or ErrNotFound.
func (s *Service) IdentityByClientID(clientID ClientID) (Identity, error) {
	var identity Identity
	err := s.db.Where("client_id = ?", clientID.String()).Take(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, fmt.Errorf("%w: identity", ErrNotFound)
	}
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// IdentityByEmail resolves the identity registered under an email address.
func (s *Service) IdentityByEmail(email string) (Identity, error) {
	var identity Identity
	err := s.db.Where("email = ?", email).Take(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, fmt.Errorf("%w: identity", ErrNotFound)
	}
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// SaveSurvey persists a survey submission.
func (s *Service) SaveSurvey(clientID ClientID, surveyType string, answersJSON string, score int, comment string) error {
	response := SurveyResponse{
		ClientID:    clientID.String(),
		SurveyType:  surveyType,
		AnswersJSON: answersJSON,
		Score:       score,
		Comment:     comment,
		CreatedAt:   s.now(),
	}
	return s.db.Create(&response).Error
}
