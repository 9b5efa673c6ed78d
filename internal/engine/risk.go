package engine

import (
	"fmt"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// Risk thresholds on the feasibility score.
const (
	significantGapThreshold = 0.6
	moderateGapThreshold    = 0.8
)

// AssessRisk classifies the suitability risk of a topic for a student.
// Escalation is monotonic: a later check never downgrades the level set by
// an earlier one.
func AssessRisk(student *models.StudentProfile, topic *models.Topic, params FeasibilityParams) (models.RiskLevel, []string) {
	level := models.RiskLow
	var reasons []string

	if _, ok := student.InterestIn(topic.Domain); !ok {
		reasons = append(reasons, fmt.Sprintf("No prior interest expressed in domain '%s'", topic.Domain))
		level = level.Escalate(models.RiskMedium)
	}

	if topic.Difficulty == models.DifficultyAdvanced && student.CGPA < 3.0 {
		reasons = append(reasons, "High difficulty topic with CGPA < 3.0")
		level = level.Escalate(models.RiskHigh)
	}

	score, gaps := EvaluateFeasibility(student, topic.Requirements.RequiredSkills, params)
	switch {
	case score < significantGapThreshold:
		level = models.RiskHigh
		reasons = append(reasons, "Significant skill gaps:")
		reasons = append(reasons, gaps...)
	case score < moderateGapThreshold:
		if level == models.RiskLow {
			level = models.RiskMedium
		}
		reasons = append(reasons, "Moderate skill gaps:")
		reasons = append(reasons, gaps...)
	}

	return level, reasons
}
