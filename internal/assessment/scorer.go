// Package assessment scores the nine-item depression screening questionnaire
// into a severity band and crisis flag, and derives the deterministic
// analysis text used when no remote analysis is available.
package assessment

import (
	"errors"
	"fmt"
	"time"
)

// Severity is the ordinal band derived from the questionnaire total.
type Severity string

const (
	SeverityMinimal          Severity = "minimal"
	SeverityMild             Severity = "mild"
	SeverityModerate         Severity = "moderate"
	SeverityModeratelySevere Severity = "moderately severe"
	SeveritySevere           Severity = "severe"
)

// RiskLevel grades the analysis output.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Provenance records whether a snapshot was confirmed by the backend or
// computed locally after a failed remote call.
type Provenance string

const (
	SourceRemote Provenance = "remote"
	SourceLocal  Provenance = "local"
)

const (
	questionCount  = 9
	maxAnswerValue = 3
	// crisisQuestionIndex is the self-harm item; any non-zero answer
	// raises the crisis flag regardless of total.
	crisisQuestionIndex = 8
)

// ErrInvalidAnswers indicates the answer vector is not exactly nine values
// in the range 0..3. Out-of-range values are rejected, never clamped.
var ErrInvalidAnswers = errors.New("assessment: answers must be nine integers between 0 and 3")

// ScoreResult is the pure scoring triad.
type ScoreResult struct {
	Total  int
	Level  Severity
	Crisis bool
}

// Snapshot is the persisted outcome of one assessment submission.
type Snapshot struct {
	Answers         []int      `json:"answers"`
	Total           int        `json:"total"`
	Level           Severity   `json:"level"`
	Crisis          bool       `json:"crisis"`
	Summary         string     `json:"summary,omitempty"`
	Recommendations []string   `json:"recommendations"`
	RiskLevel       RiskLevel  `json:"risk_level,omitempty"`
	Source          Provenance `json:"source"`
	SubmittedAt     time.Time  `json:"at"`
}

// RemoteAnalysis is the analysis portion of a backend submit response.
type RemoteAnalysis struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	RiskLevel       string   `json:"risk_level"`
}

// Score validates the answer vector and computes total, severity band and
// crisis flag. It is deterministic and performs no I/O.
func Score(answers []int) (ScoreResult, error) {
	if len(answers) != questionCount {
		return ScoreResult{}, fmt.Errorf("%w: got %d answers", ErrInvalidAnswers, len(answers))
	}
	total := 0
	for index, value := range answers {
		if value < 0 || value > maxAnswerValue {
			return ScoreResult{}, fmt.Errorf("%w: answer %d is %d", ErrInvalidAnswers, index+1, value)
		}
		total += value
	}
	return ScoreResult{
		Total:  total,
		Level:  severityForTotal(total),
		Crisis: answers[crisisQuestionIndex] >= 1,
	}, nil
}

func severityForTotal(total int) Severity {
	switch {
	case total <= 4:
		return SeverityMinimal
	case total <= 9:
		return SeverityMild
	case total <= 14:
		return SeverityModerate
	case total <= 19:
		return SeverityModeratelySevere
	default:
		return SeveritySevere
	}
}

// LocalSnapshot scores the answers and attaches the locally derived analysis,
// marked Source=local. It is the fallback used when the backend cannot be
// reached or rejects the submission.
func LocalSnapshot(answers []int, at time.Time) (Snapshot, error) {
	result, err := Score(answers)
	if err != nil {
		return Snapshot{}, err
	}
	summary, recommendations, risk := BaseAnalysis(result)
	return Snapshot{
		Answers:         append([]int(nil), answers...),
		Total:           result.Total,
		Level:           result.Level,
		Crisis:          result.Crisis,
		Summary:         summary,
		Recommendations: recommendations,
		RiskLevel:       risk,
		Source:          SourceLocal,
		SubmittedAt:     at,
	}, nil
}

// MergeRemote overlays a remote analysis onto the locally scored snapshot.
// The local total, band and crisis flag stay authoritative: a partial or
// garbled remote payload may contribute text but never overwrite them. A
// remote high risk grade can raise the crisis flag, never lower it.
func MergeRemote(local Snapshot, remote *RemoteAnalysis) Snapshot {
	merged := local
	if remote == nil {
		return merged
	}
	if remote.Summary != "" {
		merged.Summary = remote.Summary
	}
	if len(remote.Recommendations) > 0 {
		merged.Recommendations = append([]string(nil), remote.Recommendations...)
	}
	switch RiskLevel(remote.RiskLevel) {
	case RiskLow, RiskMedium:
		merged.RiskLevel = RiskLevel(remote.RiskLevel)
	case RiskHigh:
		merged.RiskLevel = RiskHigh
		merged.Crisis = true
	}
	merged.Source = SourceRemote
	return merged
}
