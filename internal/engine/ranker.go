package engine

import (
	"sort"
	"strings"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// Composite score weights. Components are each on a 0-100 scale, so the
// weighted total also lands in [0, 100].
type RankWeights struct {
	Feasibility float64
	Interest    float64
	Domain      float64
	Difficulty  float64
}

// DefaultRankWeights returns the standard weighting: skills 40%, interests
// 30%, difficulty match 20%, domain preference 10%.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		Feasibility: 0.40,
		Interest:    0.30,
		Domain:      0.10,
		Difficulty:  0.20,
	}
}

// CompositeScore computes the weighted rule-based score for a topic.
func CompositeScore(student *models.StudentProfile, topic *models.Topic, weights RankWeights, params FeasibilityParams) float64 {
	feasibility, _ := EvaluateFeasibility(student, topic.Requirements.RequiredSkills, params)
	score := weights.Feasibility * (feasibility * 100)

	if level, ok := student.InterestIn(topic.Domain); ok {
		score += weights.Interest * (float64(level) / 4.0 * 100)
	}

	if student.PrefersDomain(topic.Domain) {
		score += weights.Domain * 100
	}

	score += weights.Difficulty * difficultyComponent(topic.Difficulty, student.CGPA)
	return score
}

// difficultyComponent is a heuristic: high-CGPA students match harder
// topics; unrecognized difficulty labels are neutral.
func difficultyComponent(difficulty string, cgpa float64) float64 {
	switch difficulty {
	case models.DifficultyAdvanced:
		switch {
		case cgpa >= 3.5:
			return 100
		case cgpa >= 3.0:
			return 80
		default:
			return 20
		}
	case models.DifficultyIntermediate:
		if cgpa >= 2.5 {
			return 100
		}
		return 60
	default:
		return 50
	}
}

// MatchReasons builds the descriptive (non-scoring) reasons attached to a
// rule-based recommendation.
func MatchReasons(student *models.StudentProfile, topic *models.Topic) []string {
	var reasons []string
	if student.PrefersDomain(topic.Domain) {
		reasons = append(reasons, "Matches your preferred domain: "+topic.Domain)
	}

	var matched []string
	for skill := range topic.Requirements.RequiredSkills {
		if student.HasSkill(skill) {
			matched = append(matched, skill)
		}
	}
	if len(matched) > 0 {
		sort.Strings(matched)
		reasons = append(reasons, "You have required skills: "+strings.Join(matched, ", "))
	}
	return reasons
}

// RankCandidates sorts scored recommendations descending by score and
// truncates to n. The sort is stable, so ties keep catalog-generation order.
// Ranks are rewritten as a contiguous sequence starting at 1.
func RankCandidates(candidates []*models.Recommendation, n int) []*models.Recommendation {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if n >= 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	for i, rec := range candidates {
		rec.Rank = i + 1
	}
	return candidates
}
