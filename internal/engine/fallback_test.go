package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/fypmatch/recommender-engine/internal/models"
)

func fallbackTopics() []*models.Topic {
	second := testTopic()
	second.ID = "GEN0002"
	second.Title = "Decentralized Supply Chain Tracking"
	second.Domain = "Blockchain"
	second.Technique = "Blockchain"
	second.Context = "Supply Chain Management"
	second.Difficulty = models.DifficultyIntermediate
	second.Requirements = models.TopicRequirements{
		RequiredSkills:       map[string]models.Proficiency{"solidity": models.ProficiencyIntermediate},
		MinCGPA:              2.5,
		EstimatedWeeklyHours: 10,
	}
	second.Keywords = []string{"blockchain", "supply chain"}
	return []*models.Topic{testTopic(), second}
}

func newTestFallback(t *testing.T) *FallbackRecommender {
	t.Helper()
	f, err := NewFallbackRecommender(fallbackTopics(), DefaultRelaxedParams(), DefaultFeasibilityParams())
	if err != nil {
		t.Fatalf("NewFallbackRecommender failed: %v", err)
	}
	return f
}

func TestFallbackColdStart(t *testing.T) {
	// A weak profile with no skills still gets offers under relaxation.
	s := models.NewStudentProfile("s1", "Carol", 2.2, "IT", 2)
	s.AddInterest("Blockchain", models.InterestHigh)

	f := newTestFallback(t)
	recs := f.Recommend(s, 5, nil)
	if len(recs) == 0 {
		t.Fatal("expected fallback recommendations for a weak profile")
	}

	for i, rec := range recs {
		if rec.Provenance != models.ProvenanceFallback {
			t.Errorf("recommendation %d missing fallback provenance", i)
		}
		if rec.Rank != i+1 {
			t.Errorf("rank %d at position %d", rec.Rank, i)
		}
		if rec.Score < 0 || rec.Score > 100 {
			t.Errorf("score out of bounds: %v", rec.Score)
		}
		if len(rec.MatchReasons) == 0 || len(rec.MatchReasons) > 3 {
			t.Errorf("expected 1-3 match reasons, got %v", rec.MatchReasons)
		}
	}
}

func TestFallbackExcludesTopics(t *testing.T) {
	s := models.NewStudentProfile("s1", "Carol", 3.0, "CS", 3)
	s.AddSkill("python", models.ProficiencyAdvanced)

	f := newTestFallback(t)
	exclude := map[string]struct{}{"GEN0001": {}}
	recs := f.Recommend(s, 5, exclude)
	for _, rec := range recs {
		if rec.Topic.ID == "GEN0001" {
			t.Error("excluded topic returned by fallback")
		}
	}
}

func TestRelaxedFeasibilityPenalties(t *testing.T) {
	f := newTestFallback(t)
	topic := testTopic() // MinCGPA 3.0, needs python Advanced + statistics Intermediate, 15h

	// Well below the relaxed CGPA threshold (3.0 - 0.5 = 2.5).
	s := models.NewStudentProfile("s1", "Dan", 2.0, "IT", 2)
	s.AddSkill("python", models.ProficiencyAdvanced)
	s.AddSkill("statistics", models.ProficiencyIntermediate)
	s.AddCompletedCourse("CS201")
	s.AddCompletedCourse("CS301")
	s.MaxWeeklyHours = 20

	score, reasons := f.relaxedFeasibility(s, topic)
	if math.Abs(score-0.3) > 1e-9 {
		t.Errorf("expected 0.3 for CGPA well below, got %v", score)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "CGPA below relaxed threshold") {
		t.Errorf("unexpected reasons: %v", reasons)
	}

	// Slightly below: 2.7 is within the relaxation window.
	s.CGPA = 2.7
	score, _ = f.relaxedFeasibility(s, topic)
	if math.Abs(score-0.7) > 1e-9 {
		t.Errorf("expected 0.7 for CGPA slightly below, got %v", score)
	}

	// Missing skill multiplies by 0.5; short hours by 0.9.
	s.CGPA = 3.5
	s.Skills = map[string]models.Proficiency{"statistics": models.ProficiencyIntermediate}
	s.MaxWeeklyHours = 10
	score, reasons = f.relaxedFeasibility(s, topic)
	if math.Abs(score-0.45) > 1e-9 {
		t.Errorf("expected 0.45 (0.5 * 0.9), got %v", score)
	}
	foundMissing := false
	for _, r := range reasons {
		if strings.Contains(r, "Missing python (can learn)") {
			foundMissing = true
		}
	}
	if !foundMissing {
		t.Errorf("expected missing-skill reason in %v", reasons)
	}
}

func TestRelaxedFeasibilityCourseRatio(t *testing.T) {
	f := newTestFallback(t)
	topic := testTopic() // requires CS301, CS201

	s := models.NewStudentProfile("s1", "Eve", 3.5, "CS", 3)
	s.AddSkill("python", models.ProficiencyAdvanced)
	s.AddSkill("statistics", models.ProficiencyIntermediate)
	s.AddCompletedCourse("CS201")
	s.MaxWeeklyHours = 20

	// Half the courses: weight 0.5 + 0.5*0.5 = 0.75, no course reason at 0.5.
	score, reasons := f.relaxedFeasibility(s, topic)
	if math.Abs(score-0.75) > 1e-9 {
		t.Errorf("expected 0.75, got %v", score)
	}
	for _, r := range reasons {
		if strings.HasPrefix(r, "Missing courses:") {
			t.Errorf("course reason should appear only below half coverage: %v", reasons)
		}
	}

	// No courses: weight 0.5 and missing courses are named.
	s.CompletedCourses = map[string]struct{}{}
	score, reasons = f.relaxedFeasibility(s, topic)
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %v", score)
	}
	found := false
	for _, r := range reasons {
		if strings.HasPrefix(r, "Missing courses:") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing-courses reason in %v", reasons)
	}
}

func TestFallbackMinScoreCutoff(t *testing.T) {
	params := DefaultRelaxedParams()
	params.MinScore = 0.99 // everything short of a perfect relaxed score drops

	f, err := NewFallbackRecommender(fallbackTopics(), params, DefaultFeasibilityParams())
	if err != nil {
		t.Fatalf("NewFallbackRecommender failed: %v", err)
	}

	s := models.NewStudentProfile("s1", "Frank", 1.5, "IT", 1)
	s.MaxWeeklyHours = 2
	if recs := f.Recommend(s, 5, nil); len(recs) != 0 {
		t.Errorf("expected no candidates above cutoff, got %d", len(recs))
	}
}
