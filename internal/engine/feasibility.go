package engine

import (
	"fmt"
	"sort"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// FeasibilityParams tunes the skill-gap scorer. PartialCredit is the
// multiplier applied to a student's level when it falls short of a
// requirement; the default matches the original calibration and is exposed
// here rather than inferred.
type FeasibilityParams struct {
	PartialCredit float64
}

// DefaultFeasibilityParams returns the standard calibration.
func DefaultFeasibilityParams() FeasibilityParams {
	return FeasibilityParams{PartialCredit: 0.5}
}

// EvaluateFeasibility calculates a skill-match score in [0, 1] against the
// topic's required skills. A topic with no skill requirements scores 1.0.
// Skills absent from the profile count at the lowest ordinal. Returns the
// score and a gap message per unmet requirement.
func EvaluateFeasibility(student *models.StudentProfile, required map[string]models.Proficiency, params FeasibilityParams) (float64, []string) {
	if len(required) == 0 {
		return 1.0, nil
	}

	// Iterate in sorted order so gap messages are deterministic.
	skills := make([]string, 0, len(required))
	for skill := range required {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	var totalWeight, matchedWeight float64
	var gaps []string

	for _, skill := range skills {
		minLevel := required[skill]
		totalWeight += float64(minLevel)

		level := student.SkillLevel(skill)
		if level >= minLevel {
			matchedWeight += float64(minLevel)
		} else {
			matchedWeight += float64(level) * params.PartialCredit
			gaps = append(gaps, fmt.Sprintf("Skill '%s' level %s < required %s", skill, level, minLevel))
		}
	}

	return matchedWeight / totalWeight, gaps
}
