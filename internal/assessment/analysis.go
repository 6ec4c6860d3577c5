package assessment

// bandAnalysis is the canned analysis for one severity band.
type bandAnalysis struct {
	summary         string
	recommendations []string
	risk            RiskLevel
}

var analysisByBand = map[Severity]bandAnalysis{
	SeverityMinimal: {
		summary: "Your assessment indicates minimal depressive symptoms. This suggests that you are experiencing few or no symptoms of depression at this time. Continue monitoring your mental health and maintaining healthy lifestyle habits.",
		recommendations: []string{
			"Continue monitoring your mood and emotional well-being regularly",
			"Maintain a balanced routine with regular sleep, exercise, and social connections",
			"Practice stress management techniques such as mindfulness or deep breathing",
			"Consider keeping a mood journal to track patterns over time",
		},
		risk: RiskLow,
	},
	SeverityMild: {
		summary: "Your assessment shows mild depressive symptoms. While these symptoms are present, they may be manageable with self-care strategies and lifestyle adjustments. Consider regular monitoring and proactive self-care.",
		recommendations: []string{
			"Establish and maintain a consistent daily routine with regular sleep and meal times",
			"Engage in regular physical activity, even light exercise like walking for 20-30 minutes daily",
			"Practice relaxation techniques such as meditation, deep breathing, or progressive muscle relaxation",
			"Stay connected with friends, family, or support groups",
			"Consider speaking with a healthcare provider or counselor for additional support",
		},
		risk: RiskLow,
	},
	SeverityModerate: {
		summary: "Your assessment indicates moderate depressive symptoms. These symptoms may be impacting your daily functioning. Professional support and intervention may be beneficial to help you manage these symptoms effectively.",
		recommendations: []string{
			"Consider consulting with a mental health professional or healthcare provider",
			"Maintain a structured daily schedule with activities that provide a sense of accomplishment",
			"Practice regular physical exercise, aiming for at least 30 minutes of moderate activity most days",
			"Engage in activities you previously enjoyed, even if motivation is low",
			"Limit alcohol and avoid recreational drugs, as they can worsen symptoms",
			"Consider cognitive-behavioral therapy (CBT) or other evidence-based treatments",
		},
		risk: RiskMedium,
	},
	SeverityModeratelySevere: {
		summary: "Your assessment shows moderately severe depressive symptoms. These symptoms are likely significantly affecting your daily life. Professional support is strongly recommended to help you develop coping strategies and treatment options.",
		recommendations: []string{
			"Seek professional mental health support as soon as possible",
			"Consider speaking with a healthcare provider about treatment options, including therapy and/or medication",
			"Establish a support network of trusted friends, family members, or support groups",
			"Prioritize self-care activities, even small ones, to maintain basic functioning",
			"Avoid isolation and maintain regular contact with others",
			"If you have thoughts of self-harm, contact a crisis hotline or emergency services immediately",
		},
		risk: RiskHigh,
	},
	SeveritySevere: {
		summary: "Your assessment indicates severe depressive symptoms. These symptoms are significantly impacting your well-being and daily functioning. Immediate professional support is strongly recommended to ensure your safety and begin appropriate treatment.",
		recommendations: []string{
			"Contact a mental health professional or healthcare provider immediately",
			"If you have thoughts of self-harm or suicide, contact a crisis hotline or emergency services right away",
			"Consider speaking with a trusted friend or family member about your situation",
			"Avoid making major life decisions while experiencing severe symptoms",
			"Follow through with professional treatment recommendations",
			"Ensure you have a safety plan in place if you experience thoughts of self-harm",
		},
		risk: RiskHigh,
	},
}

const (
	crisisSummarySuffix         = " Importantly, your responses indicate thoughts related to self-harm or death, which requires immediate attention and professional support."
	crisisLeadingRecommendation = "If you are having thoughts of hurting yourself, please contact a crisis hotline, emergency services, or mental health professional immediately"
)

// BaseAnalysis derives the summary, recommendation list and risk grade for a
// scored assessment. A raised crisis flag prepends the hotline recommendation
// and forces the risk grade high.
func BaseAnalysis(result ScoreResult) (string, []string, RiskLevel) {
	band := analysisByBand[result.Level]
	summary := band.summary
	recommendations := append([]string(nil), band.recommendations...)
	risk := band.risk

	if result.Crisis {
		summary += crisisSummarySuffix
		recommendations = append([]string{crisisLeadingRecommendation}, recommendations...)
		risk = RiskHigh
	}
	return summary, recommendations, risk
}
