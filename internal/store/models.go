package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidClientID indicates an empty or oversized client identifier.
	ErrInvalidClientID = errors.New("store: invalid client id")
	// ErrInvalidMoodScore indicates a mood score outside 1..5.
	ErrInvalidMoodScore = errors.New("store: mood score must be between 1 and 5")
	// ErrMoodAlreadyLogged indicates a second mood write for a calendar day
	// that already holds an entry. The existing entry is left untouched.
	ErrMoodAlreadyLogged = errors.New("store: mood already recorded for this day")
	// ErrInvalidCognitiveRecord indicates a record missing a required field.
	ErrInvalidCognitiveRecord = errors.New("store: cognitive record requires situation and automatic thought")
	// ErrNotFound indicates no value exists yet for the requested key. This
	// is a legitimate empty state, not a failure.
	ErrNotFound = errors.New("store: not found")
)

// ClientID is a validated per-client correlation identifier.
type ClientID string

// NewClientID validates raw input and returns a ClientID.
func NewClientID(rawInput string) (ClientID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidClientID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidClientID, maxIdentifierLength)
	}
	return ClientID(trimmed), nil
}

// String returns the underlying identifier.
func (id ClientID) String() string {
	return string(id)
}

// Identity maps a client identifier to the account issued at login.
type Identity struct {
	ClientID     string    `gorm:"column:client_id;primaryKey;size:190;not null"`
	Email        string    `gorm:"column:email;size:320;index"`
	Name         string    `gorm:"column:display_name;size:320"`
	PasswordHash string    `gorm:"column:password_hash;size:128"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing identities.
func (Identity) TableName() string {
	return "identities"
}

// MoodEntry is one mood check-in. The composite key enforces at most one
// entry per client per calendar day.
type MoodEntry struct {
	ClientID  string    `gorm:"column:client_id;primaryKey;size:190;not null"`
	Day       string    `gorm:"column:day;primaryKey;size:10;not null"`
	Score     int       `gorm:"column:score;not null"`
	Note      string    `gorm:"column:note"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing mood entries.
func (MoodEntry) TableName() string {
	return "mood_entries"
}

// ChatExchange is one request/response pair of the supportive chat log.
// The log is append-only.
type ChatExchange struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID       string    `gorm:"column:client_id;size:190;not null;index"`
	Message        string    `gorm:"column:message;not null"`
	Response       string    `gorm:"column:response;not null"`
	Classification string    `gorm:"column:classification;size:16;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing chat exchanges.
func (ChatExchange) TableName() string {
	return "chat_exchanges"
}

// CognitiveRecord is one completed cognitive-reframing exercise.
type CognitiveRecord struct {
	ID               uint      `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID         string    `gorm:"column:client_id;size:190;not null;index"`
	Situation        string    `gorm:"column:situation;not null"`
	AutomaticThought string    `gorm:"column:automatic_thought;not null"`
	EmotionIntensity int       `gorm:"column:emotion_intensity;not null"`
	Evidence         string    `gorm:"column:evidence"`
	Alternative      string    `gorm:"column:alternative"`
	ReRate           int       `gorm:"column:re_rate;not null"`
	BeforeFeeling    int       `gorm:"column:before_feeling;not null"`
	AfterFeeling     int       `gorm:"column:after_feeling;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing cognitive records.
func (CognitiveRecord) TableName() string {
	return "cognitive_records"
}

// Validate rejects records missing the required narrative fields before any
// persistence or submission attempt.
func (r CognitiveRecord) Validate() error {
	if strings.TrimSpace(r.Situation) == "" || strings.TrimSpace(r.AutomaticThought) == "" {
		return ErrInvalidCognitiveRecord
	}
	return nil
}

// AssessmentRecord persists one submitted assessment snapshot. History is
// retained so report generation can compare consecutive totals.
type AssessmentRecord struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID        string    `gorm:"column:client_id;size:190;not null;index"`
	AnswersJSON     string    `gorm:"column:answers_json;not null"`
	Total           int       `gorm:"column:total;not null"`
	Level           string    `gorm:"column:level;size:32;not null"`
	Crisis          bool      `gorm:"column:crisis;not null"`
	Summary         string    `gorm:"column:summary"`
	Recommendations string    `gorm:"column:recommendations_json"`
	RiskLevel       string    `gorm:"column:risk_level;size:16"`
	Source          string    `gorm:"column:source;size:16;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing assessment snapshots.
func (AssessmentRecord) TableName() string {
	return "assessments"
}

// SurveyResponse persists a usability or satisfaction survey submission.
type SurveyResponse struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	ClientID    string    `gorm:"column:client_id;size:190;not null;index"`
	SurveyType  string    `gorm:"column:survey_type;size:32;not null"`
	AnswersJSON string    `gorm:"column:answers_json"`
	Score       int       `gorm:"column:score"`
	Comment     string    `gorm:"column:comment"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing survey responses.
func (SurveyResponse) TableName() string {
	return "survey_responses"
}

// sessionValue is one last-write-wins row of the keyed session state.
type sessionValue struct {
	Key       string    `gorm:"column:key;primaryKey;size:64;not null"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing session state.
func (sessionValue) TableName() string {
	return "session_state"
}

// Models lists every persisted entity for schema migration.
func Models() []interface{} {
	return []interface{}{
		&Identity{},
		&MoodEntry{},
		&ChatExchange{},
		&CognitiveRecord{},
		&AssessmentRecord{},
		&SurveyResponse{},
		&sessionValue{},
	}
}
