package assessment

import (
	"errors"
	"testing"
	"time"
)

func answersWithTotal(total int) []int {
	answers := make([]int, 9)
	remaining := total
	for index := 0; index < 8 && remaining > 0; index++ {
		value := remaining
		if value > 3 {
			value = 3
		}
		answers[index] = value
		remaining -= value
	}
	if remaining > 0 {
		answers[8] = remaining
	}
	return answers
}

func TestScoreSeverityBandBoundaries(t *testing.T) {
	cases := []struct {
		total int
		want  Severity
	}{
		{0, SeverityMinimal},
		{4, SeverityMinimal},
		{5, SeverityMild},
		{9, SeverityMild},
		{10, SeverityModerate},
		{14, SeverityModerate},
		{15, SeverityModeratelySevere},
		{19, SeverityModeratelySevere},
		{20, SeveritySevere},
		{27, SeveritySevere},
	}
	for _, tc := range cases {
		answers := answersWithTotal(tc.total)
		result, err := Score(answers)
		if err != nil {
			t.Fatalf("Score(total=%d) failed: %v", tc.total, err)
		}
		if result.Total != tc.total {
			t.Fatalf("total mismatch: got %d, want %d", result.Total, tc.total)
		}
		if result.Level != tc.want {
			t.Fatalf("total %d: got band %q, want %q", tc.total, result.Level, tc.want)
		}
	}
}

func TestScoreTotalIsSumOfAnswers(t *testing.T) {
	answers := []int{1, 0, 2, 3, 1, 0, 2, 1, 0}
	result, err := Score(answers)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if result.Total != 10 {
		t.Fatalf("got total %d, want 10", result.Total)
	}
	if result.Crisis {
		t.Fatalf("crisis flag raised with zero self-harm answer")
	}
}

func TestScoreCrisisFlagFollowsSelfHarmItem(t *testing.T) {
	answers := []int{0, 0, 0, 0, 0, 0, 0, 0, 1}
	result, err := Score(answers)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if !result.Crisis {
		t.Fatalf("expected crisis flag for non-zero answer on item nine")
	}
	if result.Level != SeverityMinimal {
		t.Fatalf("crisis flag must be independent of band, got %q", result.Level)
	}
}

func TestScoreRejectsMalformedAnswers(t *testing.T) {
	malformed := [][]int{
		nil,
		{1, 2, 3},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 4, 0, 0, 0, 0},
		{0, 0, -1, 0, 0, 0, 0, 0, 0},
	}
	for _, answers := range malformed {
		if _, err := Score(answers); !errors.Is(err, ErrInvalidAnswers) {
			t.Fatalf("Score(%v): got %v, want ErrInvalidAnswers", answers, err)
		}
	}
}

func TestLocalSnapshotCarriesLocalProvenance(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	snapshot, err := LocalSnapshot([]int{3, 3, 3, 3, 3, 3, 3, 3, 3}, at)
	if err != nil {
		t.Fatalf("local snapshot failed: %v", err)
	}
	if snapshot.Source != SourceLocal {
		t.Fatalf("got source %q, want local", snapshot.Source)
	}
	if snapshot.Total != 27 || snapshot.Level != SeveritySevere || !snapshot.Crisis {
		t.Fatalf("unexpected triad: %+v", snapshot)
	}
	if snapshot.RiskLevel != RiskHigh {
		t.Fatalf("got risk %q, want high", snapshot.RiskLevel)
	}
	if len(snapshot.Recommendations) == 0 || snapshot.Recommendations[0] != crisisLeadingRecommendation {
		t.Fatalf("crisis recommendation should lead the list: %v", snapshot.Recommendations)
	}
}

func TestMergeRemoteKeepsLocalTriadAuthoritative(t *testing.T) {
	local, err := LocalSnapshot([]int{2, 2, 2, 2, 2, 2, 2, 2, 2}, time.Unix(100, 0))
	if err != nil {
		t.Fatalf("local snapshot failed: %v", err)
	}

	merged := MergeRemote(local, &RemoteAnalysis{
		Summary:         "remote summary",
		Recommendations: []string{"remote recommendation"},
		RiskLevel:       "low",
	})
	if merged.Total != local.Total || merged.Level != local.Level {
		t.Fatalf("remote payload must not overwrite the local triad")
	}
	if !merged.Crisis {
		t.Fatalf("crisis flag must never be forced false by remote data")
	}
	if merged.Summary != "remote summary" || merged.Recommendations[0] != "remote recommendation" {
		t.Fatalf("remote analysis text should be adopted: %+v", merged)
	}
	if merged.Source != SourceRemote {
		t.Fatalf("got source %q, want remote", merged.Source)
	}
}

func TestMergeRemoteIgnoresAbsentOrGarbledPayload(t *testing.T) {
	local, err := LocalSnapshot([]int{1, 1, 1, 1, 1, 1, 1, 1, 0}, time.Unix(100, 0))
	if err != nil {
		t.Fatalf("local snapshot failed: %v", err)
	}

	if merged := MergeRemote(local, nil); merged.Summary != local.Summary || merged.Source != SourceLocal {
		t.Fatalf("nil remote payload must leave the local snapshot intact")
	}

	merged := MergeRemote(local, &RemoteAnalysis{RiskLevel: "catastrophic"})
	if merged.RiskLevel != local.RiskLevel {
		t.Fatalf("unknown risk grade adopted: %q", merged.RiskLevel)
	}
	if merged.Summary != local.Summary {
		t.Fatalf("empty remote summary must not clear the local one")
	}
}

func TestMergeRemoteHighRiskRaisesCrisis(t *testing.T) {
	local, err := LocalSnapshot([]int{0, 0, 0, 0, 0, 0, 0, 0, 0}, time.Unix(100, 0))
	if err != nil {
		t.Fatalf("local snapshot failed: %v", err)
	}
	merged := MergeRemote(local, &RemoteAnalysis{RiskLevel: "high"})
	if !merged.Crisis {
		t.Fatalf("remote high risk must raise the crisis flag")
	}
}
