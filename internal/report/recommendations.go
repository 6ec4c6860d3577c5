package report

import (
	"fmt"

	"github.com/havenmind/haven/internal/assessment"
	"github.com/havenmind/haven/internal/store"
)

// recommendations merges the rule-based suggestions with any AI-sourced ones
// from the latest assessment, capped at maxRecommendations. Crisis rules
// always lead.
func recommendations(averageMood float64, latest *assessment.Snapshot, recentChats int, cognitive []store.CognitiveRecord, recentCognitive int) []Recommendation {
	crisis := false
	total := 0
	if latest != nil {
		crisis = latest.Crisis
		total = latest.Total
	}
	hasMood := averageMood > 0

	result := make([]Recommendation, 0, maxRecommendations)
	switch {
	case crisis:
		result = append(result, Recommendation{
			Title:       "Seek Immediate Professional Help",
			Description: "Your assessment indicates crisis indicators. Please contact a mental health professional or crisis support service immediately.",
			Priority:    "high",
		})
	case (hasMood && averageMood < 2.5) || total > 14:
		result = append(result, Recommendation{
			Title:       "Consult with a Mental Health Professional",
			Description: "Consider speaking with a mental health professional to discuss your symptoms and develop a treatment plan.",
			Priority:    "high",
		})
	case total > 9:
		result = append(result, Recommendation{
			Title:       "Consider Professional Support",
			Description: "Professional support may help you manage your symptoms more effectively.",
			Priority:    "medium",
		})
	}

	if hasMood && averageMood < 2.5 {
		result = append(result, Recommendation{
			Title:       "Practice Mood Tracking",
			Description: "Continue tracking your mood daily to identify patterns and triggers.",
			Priority:    "medium",
		})
	}
	if recentChats < 2 {
		result = append(result, Recommendation{
			Title:       "Engage with Support Resources",
			Description: "Use the supportive assistant and other support tools regularly for emotional support and guidance.",
			Priority:    "low",
		})
	}
	result = append(result, cognitiveRecommendation(cognitive, recentCognitive))

	// AI-sourced suggestions from the latest analysis, tagged medium.
	if latest != nil {
		for _, suggestion := range latest.Recommendations {
			result = append(result, Recommendation{Title: suggestion, Priority: "medium"})
		}
	}

	result = append(result,
		Recommendation{
			Title:       "Maintain Self-Care Routine",
			Description: "Practice regular self-care activities including exercise, healthy eating, and adequate sleep.",
			Priority:    "medium",
		},
		Recommendation{
			Title:       "Practice Mindfulness",
			Description: "Consider mindfulness or meditation practices to help manage stress and improve emotional regulation.",
			Priority:    "low",
		},
	)
	if len(result) > maxRecommendations {
		result = result[:maxRecommendations]
	}
	return result
}

func cognitiveRecommendation(records []store.CognitiveRecord, recent int) Recommendation {
	if recent == 0 {
		return Recommendation{
			Title:       "Try Cognitive Restructuring Tools",
			Description: "Use the cognitive restructuring tool in Self-help Tools to challenge negative thoughts and improve emotional regulation.",
			Priority:    "low",
		}
	}
	sum := 0
	counted := 0
	for _, record := range records {
		if counted == recent {
			break
		}
		sum += record.AfterFeeling - record.BeforeFeeling
		counted++
	}
	averageImprovement := float64(sum) / float64(recent)
	if averageImprovement > 10 {
		return Recommendation{
			Title:       "Continue Cognitive Restructuring Practice",
			Description: fmt.Sprintf("Your cognitive restructuring exercises are showing positive results (average improvement: %.0f points). Keep practicing to maintain this progress.", averageImprovement),
			Priority:    "medium",
		}
	}
	return Recommendation{
		Title:       "Review Cognitive Restructuring Patterns",
		Description: "You've completed several cognitive restructuring exercises. Review your patterns to identify which situations trigger negative thoughts most often.",
		Priority:    "low",
	}
}

// nextSteps derives follow-up actions from the latest assessment and recent
// engagement, capped at maxNextSteps.
func nextSteps(latest *assessment.Snapshot, recentChats int) []NextStep {
	crisis := false
	total := 0
	if latest != nil {
		crisis = latest.Crisis
		total = latest.Total
	}

	steps := make([]NextStep, 0, maxNextSteps)
	switch {
	case crisis:
		steps = append(steps,
			NextStep{
				Title:       "Contact Mental Health Professional",
				Description: "Contact a mental health professional immediately for urgent support and assessment.",
				Urgency:     "high",
			},
			NextStep{
				Title:       "Access Crisis Support Resources",
				Description: "Reach out to crisis support services or hotlines for immediate assistance.",
				Urgency:     "high",
			},
		)
	case total > 10:
		steps = append(steps,
			NextStep{
				Title:       "Schedule Professional Appointment",
				Description: "Schedule an appointment with a mental health professional to discuss your assessment results.",
				Urgency:     "high",
			},
			NextStep{
				Title:       "Continue Monitoring Symptoms",
				Description: "Keep tracking your mood and symptoms regularly to monitor changes.",
				Urgency:     "medium",
			},
		)
	default:
		steps = append(steps,
			NextStep{
				Title:       "Maintain Self-Care Practices",
				Description: "Continue your current self-care practices and healthy routines.",
				Urgency:     "low",
			},
			NextStep{
				Title:       "Regular Mood Tracking",
				Description: "Continue tracking your mood daily to identify patterns and trends.",
				Urgency:     "low",
			},
		)
	}
	if recentChats < 3 {
		steps = append(steps, NextStep{
			Title:       "Increase Engagement with Support Tools",
			Description: "Engage more frequently with the supportive assistant and other support resources.",
			Urgency:     "medium",
		})
	}
	steps = append(steps, NextStep{
		Title:       "Review and Set Personal Goals",
		Description: "Take time to review your progress and set achievable mental health goals.",
		Urgency:     "low",
	})
	if len(steps) > maxNextSteps {
		steps = steps[:maxNextSteps]
	}
	return steps
}
