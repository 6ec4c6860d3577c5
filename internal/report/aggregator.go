// Package report derives the wellbeing report from store history. Every
// function is deterministic and side-effect free: rebuilding a report from
// the same input snapshot yields an identical result.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/havenmind/haven/internal/assessment"
	"github.com/havenmind/haven/internal/store"
)

// Trend classifies the direction of a score series.
type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

// Input is the read-only snapshot of store history a report is built from.
type Input struct {
	// Moods is the mood series, oldest first.
	Moods []store.MoodEntry
	// Assessments is snapshot history, newest first.
	Assessments []assessment.Snapshot
	// Chat is the full exchange log.
	Chat []store.ChatExchange
	// Cognitive is the reframing record log.
	Cognitive []store.CognitiveRecord
	// GeneratedAt anchors the trailing windows.
	GeneratedAt time.Time
}

// Period bounds the reporting window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Summary is the headline section of the report.
type Summary struct {
	TotalDaysTracked  int     `json:"total_days_tracked"`
	RecentMoodAverage float64 `json:"recent_mood_average"`
	AssessmentCount   int     `json:"assessment_count"`
	ChatSessions      int     `json:"chat_sessions"`
	CognitiveRecords  int     `json:"cognitive_records"`
	OverallWellbeing  float64 `json:"overall_wellbeing"`
}

// MoodAnalysis describes the recent mood series.
type MoodAnalysis struct {
	AverageScore   float64 `json:"average_score"`
	Trend          Trend   `json:"trend"`
	Consistency    string  `json:"consistency"`
	BestDay        string  `json:"best_day,omitempty"`
	ChallengingDay string  `json:"challenging_day,omitempty"`
}

// AssessmentAnalysis describes assessment history.
type AssessmentAnalysis struct {
	LatestScore    *int   `json:"latest_score"`
	LatestLevel    string `json:"latest_level,omitempty"`
	CrisisDetected bool   `json:"crisis_detected"`
	ScoreTrend     []int  `json:"trend"`
	Improvement    Trend  `json:"improvement"`
}

// ChatAnalysis describes engagement with the supportive chat.
type ChatAnalysis struct {
	TotalSessions   int            `json:"total_sessions"`
	RecentSessions  int            `json:"recent_sessions"`
	EngagementLevel string         `json:"engagement_level"`
	TopConcerns     []ConcernCount `json:"top_concerns"`
}

// ConcernCount pairs a recurring concern with its mention count.
type ConcernCount struct {
	Concern string `json:"concern"`
	Count   int    `json:"count"`
}

// CognitiveAnalysis describes cognitive-reframing practice.
type CognitiveAnalysis struct {
	TotalRecords       int            `json:"total_records"`
	RecentRecords      int            `json:"recent_records"`
	AverageImprovement *float64       `json:"average_improvement"`
	CommonSituations   []ConcernCount `json:"common_situations"`
}

// Recommendation is one prioritized suggestion.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority"`
}

// NextStep is one suggested follow-up action.
type NextStep struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Urgency     string `json:"urgency"`
}

// Report is the derived wellbeing summary. It is never stored or mutated.
type Report struct {
	GeneratedAt        time.Time          `json:"generated_at"`
	Period             Period             `json:"period"`
	Summary            Summary            `json:"summary"`
	MoodAnalysis       MoodAnalysis       `json:"mood_analysis"`
	AssessmentAnalysis AssessmentAnalysis `json:"assessment_analysis"`
	ChatAnalysis       ChatAnalysis       `json:"chat_analysis"`
	CognitiveAnalysis  CognitiveAnalysis  `json:"cognitive_analysis"`
	Recommendations    []Recommendation   `json:"recommendations"`
	NextSteps          []NextStep         `json:"next_steps"`
}

const (
	trailingWindow     = 7 * 24 * time.Hour
	maxRecommendations = 5
	maxNextSteps       = 4
)

// Build assembles the report from the input snapshot.
func Build(input Input) Report {
	now := input.GeneratedAt
	weekAgo := now.Add(-trailingWindow)

	moodScores := make([]float64, 0, len(input.Moods))
	for _, entry := range input.Moods {
		moodScores = append(moodScores, float64(entry.Score))
	}
	averageMood := round2(mean(moodScores))

	var latest *assessment.Snapshot
	if len(input.Assessments) > 0 {
		latest = &input.Assessments[0]
	}

	recentChats := 0
	for _, exchange := range input.Chat {
		if !exchange.CreatedAt.Before(weekAgo) {
			recentChats++
		}
	}
	recentCognitive := 0
	for _, record := range input.Cognitive {
		if !record.CreatedAt.Before(weekAgo) {
			recentCognitive++
		}
	}

	scoreTrend := make([]int, 0, 3)
	for index, snapshot := range input.Assessments {
		if index == 3 {
			break
		}
		scoreTrend = append(scoreTrend, snapshot.Total)
	}

	built := Report{
		GeneratedAt: now,
		Period:      Period{Start: weekAgo, End: now},
		Summary: Summary{
			TotalDaysTracked:  len(input.Moods),
			RecentMoodAverage: averageMood,
			AssessmentCount:   len(input.Assessments),
			ChatSessions:      recentChats,
			CognitiveRecords:  len(input.Cognitive),
			OverallWellbeing:  overallWellbeing(moodScores, latest),
		},
		MoodAnalysis:       moodAnalysis(input.Moods, moodScores, averageMood),
		AssessmentAnalysis: assessmentAnalysis(latest, scoreTrend),
		ChatAnalysis: ChatAnalysis{
			TotalSessions:   len(input.Chat),
			RecentSessions:  recentChats,
			EngagementLevel: engagementLevel(recentChats),
			TopConcerns:     topConcerns(input.Chat),
		},
		CognitiveAnalysis: CognitiveAnalysis{
			TotalRecords:       len(input.Cognitive),
			RecentRecords:      recentCognitive,
			AverageImprovement: cognitiveImprovement(input.Cognitive),
			CommonSituations:   commonSituations(input.Cognitive),
		},
	}
	built.Recommendations = recommendations(averageMood, latest, recentChats, input.Cognitive, recentCognitive)
	built.NextSteps = nextSteps(latest, recentChats)
	return built
}

// overallWellbeing maps recent mood and the latest assessment onto a 0-10
// scale: mood 1..5 scales linearly, the assessment total counts inversely.
// Present domains are averaged; with no data at all the score is 0.
func overallWellbeing(moodScores []float64, latest *assessment.Snapshot) float64 {
	components := make([]float64, 0, 2)
	if len(moodScores) > 0 {
		components = append(components, (mean(moodScores)-1)/4*10)
	}
	if latest != nil {
		components = append(components, float64(27-latest.Total)/27*10)
	}
	if len(components) == 0 {
		return 0
	}
	score := round1(mean(components))
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

func moodAnalysis(entries []store.MoodEntry, scores []float64, average float64) MoodAnalysis {
	analysis := MoodAnalysis{
		AverageScore: average,
		Trend:        moodTrend(scores),
		Consistency:  moodConsistency(scores),
	}
	highest, lowest := 0, 0
	for _, entry := range entries {
		if analysis.BestDay == "" || entry.Score > highest {
			analysis.BestDay = entry.Day
			highest = entry.Score
		}
		if analysis.ChallengingDay == "" || entry.Score < lowest {
			analysis.ChallengingDay = entry.Day
			lowest = entry.Score
		}
	}
	return analysis
}

// moodTrend compares the mean of the earlier half of the series against the
// later half, with a 0.5 hysteresis band.
func moodTrend(scores []float64) Trend {
	if len(scores) < 2 {
		return TrendInsufficientData
	}
	half := len(scores) / 2
	earlier := mean(scores[:half])
	later := mean(scores[len(scores)-half:])
	switch {
	case later > earlier+0.5:
		return TrendImproving
	case later < earlier-0.5:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// moodConsistency buckets the series variance into coarse labels.
func moodConsistency(scores []float64) string {
	if len(scores) < 2 {
		return "insufficient_data"
	}
	average := mean(scores)
	variance := 0.0
	for _, score := range scores {
		variance += (score - average) * (score - average)
	}
	variance /= float64(len(scores))
	switch {
	case variance < 0.5:
		return "very_consistent"
	case variance < 1.0:
		return "consistent"
	case variance < 2.0:
		return "variable"
	default:
		return "highly_variable"
	}
}

func assessmentAnalysis(latest *assessment.Snapshot, scoreTrend []int) AssessmentAnalysis {
	analysis := AssessmentAnalysis{
		ScoreTrend:  scoreTrend,
		Improvement: TrendInsufficientData,
	}
	if latest != nil {
		total := latest.Total
		analysis.LatestScore = &total
		analysis.LatestLevel = string(latest.Level)
		analysis.CrisisDetected = latest.Crisis
	}
	if len(scoreTrend) >= 2 {
		// Trend is newest-first; improvement means the newest total
		// dropped by more than two points against the oldest sampled.
		newest := scoreTrend[0]
		oldest := scoreTrend[len(scoreTrend)-1]
		switch {
		case newest < oldest-2:
			analysis.Improvement = TrendImproving
		case newest > oldest+2:
			analysis.Improvement = TrendDeclining
		default:
			analysis.Improvement = TrendStable
		}
	}
	return analysis
}

func engagementLevel(recentChats int) string {
	switch {
	case recentChats >= 5:
		return "high"
	case recentChats >= 2:
		return "medium"
	default:
		return "low"
	}
}

// concernBuckets maps recurring-concern labels to trigger keywords. Order is
// fixed so tie-broken output is stable.
var concernBuckets = []struct {
	label    string
	keywords []string
}{
	{"anxiety", []string{"anxiety", "worry", "nervous"}},
	{"depression", []string{"depression", "sad", "down"}},
	{"stress", []string{"stress", "pressure", "overwhelmed"}},
	{"sleep", []string{"sleep", "insomnia", "tired"}},
	{"loneliness", []string{"lonely", "isolated", "alone"}},
}

func topConcerns(exchanges []store.ChatExchange) []ConcernCount {
	counts := make([]ConcernCount, 0, len(concernBuckets))
	for _, bucket := range concernBuckets {
		count := 0
		for _, exchange := range exchanges {
			message := strings.ToLower(exchange.Message)
			for _, keyword := range bucket.keywords {
				if strings.Contains(message, keyword) {
					count++
					break
				}
			}
		}
		if count > 0 {
			counts = append(counts, ConcernCount{Concern: bucket.label, Count: count})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > 5 {
		counts = counts[:5]
	}
	return counts
}

func cognitiveImprovement(records []store.CognitiveRecord) *float64 {
	if len(records) == 0 {
		return nil
	}
	sum := 0.0
	for _, record := range records {
		sum += float64(record.AfterFeeling - record.BeforeFeeling)
	}
	improvement := round2(sum / float64(len(records)))
	return &improvement
}

func commonSituations(records []store.CognitiveRecord) []ConcernCount {
	if len(records) == 0 {
		return nil
	}
	order := make([]string, 0, len(records))
	counts := make(map[string]int, len(records))
	for _, record := range records {
		situation := strings.ToLower(record.Situation)
		if len(situation) > 50 {
			situation = situation[:50]
		}
		if situation == "" {
			continue
		}
		if _, seen := counts[situation]; !seen {
			order = append(order, situation)
		}
		counts[situation]++
	}
	result := make([]ConcernCount, 0, len(order))
	for _, situation := range order {
		result = append(result, ConcernCount{Concern: situation, Count: counts[situation]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if len(result) > 3 {
		result = result[:3]
	}
	return result
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
