package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// RelaxedParams names the penalty constants of the relaxed-constraint
// scorer. They are exposed as parameters rather than inferred.
type RelaxedParams struct {
	// CGPA penalties. WellBelow applies when the student is more than
	// CGPARelaxation under the topic floor; SlightlyBelow when merely under.
	CGPARelaxation     float64
	CGPAWellBelow      float64
	CGPASlightlyBelow  float64
	SkillMissing       float64
	SkillBelowRelaxed  float64
	SkillSlightlyBelow float64
	HoursShort         float64
	// MinScore excludes candidates whose relaxed score falls below it.
	MinScore float64
	// Blend weights for the final score over (similarity, relaxed) x 100.
	SimilarityWeight  float64
	FeasibilityWeight float64
}

// DefaultRelaxedParams returns the standard calibration.
func DefaultRelaxedParams() RelaxedParams {
	return RelaxedParams{
		CGPARelaxation:     0.5,
		CGPAWellBelow:      0.3,
		CGPASlightlyBelow:  0.7,
		SkillMissing:       0.5,
		SkillBelowRelaxed:  0.6,
		SkillSlightlyBelow: 0.8,
		HoursShort:         0.9,
		MinScore:           0.01,
		SimilarityWeight:   0.6,
		FeasibilityWeight:  0.4,
	}
}

// FallbackRecommender is the content-similarity model used when the rule
// path under-delivers. The fitted index is immutable and safe for
// concurrent reads; it is rebuilt only through an explicit retrain, never
// during a request.
type FallbackRecommender struct {
	topics  []*models.Topic
	space   *vectorSpace
	vectors [][]float64
	params  RelaxedParams
	feas    FeasibilityParams
}

// NewFallbackRecommender fits the vector space over one document per topic.
func NewFallbackRecommender(topics []*models.Topic, params RelaxedParams, feas FeasibilityParams) (*FallbackRecommender, error) {
	docs := make([]string, len(topics))
	for i, topic := range topics {
		docs[i] = topicDocument(topic)
	}

	space, err := fitVectorSpace(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to fit vector space: %w", err)
	}

	vectors := make([][]float64, len(docs))
	for i, doc := range docs {
		vectors[i] = space.Vectorize(doc)
	}

	slog.Info("similarity index fitted", "topics", len(topics), "vocabulary", space.Size())

	return &FallbackRecommender{
		topics:  topics,
		space:   space,
		vectors: vectors,
		params:  params,
		feas:    feas,
	}, nil
}

// VocabularySize returns the fitted vocabulary size.
func (f *FallbackRecommender) VocabularySize() int {
	return f.space.Size()
}

// Recommend scores every topic outside the excluded set by cosine
// similarity blended with relaxed feasibility, and returns up to n
// recommendations tagged with fallback provenance.
func (f *FallbackRecommender) Recommend(student *models.StudentProfile, n int, exclude map[string]struct{}) []*models.Recommendation {
	query := f.space.Vectorize(profileDocument(student))

	var candidates []*models.Recommendation
	for i, topic := range f.topics {
		if _, skip := exclude[topic.ID]; skip {
			continue
		}

		relaxed, constraintReasons := f.relaxedFeasibility(student, topic)
		if relaxed < f.params.MinScore {
			continue
		}

		similarity := cosine(query, f.vectors[i])
		score := f.params.SimilarityWeight*(similarity*100) + f.params.FeasibilityWeight*(relaxed*100)

		risk, riskReasons := AssessRisk(student, topic, f.feas)
		candidates = append(candidates, &models.Recommendation{
			Topic:            topic,
			Score:            score,
			FeasibilityScore: relaxed,
			RiskLevel:        risk,
			MatchReasons:     fallbackMatchReasons(student, topic, similarity),
			RiskReasons:      append(riskReasons, constraintReasons...),
			Provenance:       models.ProvenanceFallback,
		})
	}

	return RankCandidates(candidates, n)
}

// relaxedFeasibility applies multiplicative penalties starting from 1.0
// instead of hard pass/fail, so every student can be offered something.
func (f *FallbackRecommender) relaxedFeasibility(student *models.StudentProfile, topic *models.Topic) (float64, []string) {
	score := 1.0
	var reasons []string
	reqs := topic.Requirements

	relaxedCGPA := reqs.MinCGPA - f.params.CGPARelaxation
	switch {
	case student.CGPA < relaxedCGPA:
		score *= f.params.CGPAWellBelow
		reasons = append(reasons, fmt.Sprintf("CGPA below relaxed threshold (%.2f < %.2f)", student.CGPA, relaxedCGPA))
	case student.CGPA < reqs.MinCGPA:
		score *= f.params.CGPASlightlyBelow
		reasons = append(reasons, fmt.Sprintf("CGPA slightly below requirement (relaxed from %.2f)", reqs.MinCGPA))
	}

	skills := make([]string, 0, len(reqs.RequiredSkills))
	for skill := range reqs.RequiredSkills {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	var skillGaps []string
	for _, skill := range skills {
		minLevel := reqs.RequiredSkills[skill]
		relaxedLevel := minLevel - 1
		if relaxedLevel < models.ProficiencyNovice {
			relaxedLevel = models.ProficiencyNovice
		}

		switch {
		case !student.HasSkill(skill):
			score *= f.params.SkillMissing
			skillGaps = append(skillGaps, fmt.Sprintf("Missing %s (can learn)", skill))
		case student.SkillLevel(skill) < relaxedLevel:
			score *= f.params.SkillBelowRelaxed
			skillGaps = append(skillGaps, skill+" below relaxed level")
		case student.SkillLevel(skill) < minLevel:
			score *= f.params.SkillSlightlyBelow
			skillGaps = append(skillGaps, skill+" slightly below requirement")
		}
	}
	if len(skillGaps) > 2 {
		skillGaps = skillGaps[:2]
	}
	reasons = append(reasons, skillGaps...)

	if len(reqs.RequiredCourses) > 0 {
		completed := 0
		var missing []string
		for _, course := range reqs.RequiredCourses {
			if student.HasCompleted(course) {
				completed++
			} else {
				missing = append(missing, course)
			}
		}
		ratio := float64(completed) / float64(len(reqs.RequiredCourses))
		score *= 0.5 + 0.5*ratio
		if ratio < 0.5 {
			if len(missing) > 2 {
				missing = missing[:2]
			}
			reasons = append(reasons, "Missing courses: "+strings.Join(missing, ", "))
		}
	}

	if student.MaxWeeklyHours < reqs.EstimatedWeeklyHours {
		score *= f.params.HoursShort
		reasons = append(reasons, fmt.Sprintf("May need %dh/week (you have %dh)", reqs.EstimatedWeeklyHours, student.MaxWeeklyHours))
	}

	return score, reasons
}

func fallbackMatchReasons(student *models.StudentProfile, topic *models.Topic, similarity float64) []string {
	var reasons []string
	if similarity > 0.3 {
		reasons = append(reasons, fmt.Sprintf("High content similarity (%.0f%%) with your profile", similarity*100))
	} else {
		reasons = append(reasons, fmt.Sprintf("Moderate match (%.0f%%) based on interests", similarity*100))
	}

	if level, ok := student.InterestIn(topic.Domain); ok {
		reasons = append(reasons, fmt.Sprintf("Matches your %s interest in %s", strings.ToLower(level.String()), topic.Domain))
	}

	var matched []string
	for skill := range topic.Requirements.RequiredSkills {
		if student.HasSkill(skill) {
			matched = append(matched, skill)
		}
	}
	if len(matched) > 0 {
		sort.Strings(matched)
		if len(matched) > 3 {
			matched = matched[:3]
		}
		reasons = append(reasons, "You have some relevant skills: "+strings.Join(matched, ", "))
	}

	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return reasons
}

// topicDocument concatenates a topic's textual features into one document
// for the vector space.
func topicDocument(topic *models.Topic) string {
	parts := []string{
		topic.Title,
		topic.Description,
		topic.Domain,
		topic.Technique,
		topic.Context,
		topic.Difficulty,
		strings.Join(topic.Keywords, " "),
	}
	skills := make([]string, 0, len(topic.Requirements.RequiredSkills))
	for skill := range topic.Requirements.RequiredSkills {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	parts = append(parts, strings.Join(skills, " "))
	return strings.ToLower(strings.Join(parts, " "))
}

// profileDocument builds the query document. Interest and skill terms are
// repeated by their ordinal so stronger signals carry more weight.
func profileDocument(student *models.StudentProfile) string {
	var parts []string

	interests := make([]string, 0, len(student.Interests))
	for domain := range student.Interests {
		interests = append(interests, domain)
	}
	sort.Strings(interests)
	for _, domain := range interests {
		for i := 0; i < int(student.Interests[domain]); i++ {
			parts = append(parts, domain)
		}
	}

	parts = append(parts, student.PreferredDomains...)

	skills := make([]string, 0, len(student.Skills))
	for skill := range student.Skills {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	for _, skill := range skills {
		for i := 0; i < int(student.Skills[skill]); i++ {
			parts = append(parts, skill)
		}
	}

	courses := make([]string, 0, len(student.CompletedCourses))
	for course := range student.CompletedCourses {
		courses = append(courses, course)
	}
	sort.Strings(courses)
	parts = append(parts, courses...)

	parts = append(parts, student.Major)
	return strings.ToLower(strings.Join(parts, " "))
}
