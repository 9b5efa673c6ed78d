package catalog

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/fypmatch/recommender-engine/internal/models"
)

func defaultTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	return cat
}

func TestGenerateDeterministic(t *testing.T) {
	cat := defaultTestCatalog(t)

	first := NewGenerator(cat).Generate()
	second := NewGenerator(cat).Generate()

	if len(first) == 0 {
		t.Fatal("expected a non-empty topic pool")
	}
	if len(first) != len(second) {
		t.Fatalf("regeneration changed pool size: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if !reflect.DeepEqual(first[i], second[i]) {
			t.Fatalf("topic %d differs between regenerations: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateIDsAndSkills(t *testing.T) {
	cat := defaultTestCatalog(t)
	topics := NewGenerator(cat).Generate()

	idPattern := regexp.MustCompile(`^GEN\d{4}$`)
	seen := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		if !idPattern.MatchString(topic.ID) {
			t.Errorf("topic id %q does not match GEN format", topic.ID)
		}
		if _, dup := seen[topic.ID]; dup {
			t.Errorf("duplicate topic id %q", topic.ID)
		}
		seen[topic.ID] = struct{}{}

		for skill, level := range topic.Requirements.RequiredSkills {
			if !level.Valid() {
				t.Errorf("topic %s skill %q has ordinal %d outside 1-4", topic.ID, skill, int(level))
			}
		}
		if topic.Requirements.EstimatedWeeklyHours <= 0 {
			t.Errorf("topic %s has non-positive weekly hours", topic.ID)
		}
		if topic.Requirements.TeamSizeMin != 1 || topic.Requirements.TeamSizeMax != 3 {
			t.Errorf("topic %s has unexpected team size bounds %d-%d",
				topic.ID, topic.Requirements.TeamSizeMin, topic.Requirements.TeamSizeMax)
		}
	}

	// First id is GEN0001
	if topics[0].ID != "GEN0001" {
		t.Errorf("expected first topic id GEN0001, got %s", topics[0].ID)
	}
}

func TestGenerateSkipsIncompatibleTriples(t *testing.T) {
	cat := defaultTestCatalog(t)
	topics := NewGenerator(cat).Generate()

	full := len(cat.Domains) * len(cat.Techniques) * len(cat.Contexts)
	if len(topics) >= full {
		t.Errorf("expected pruned pool, got full cross product of %d", full)
	}

	for _, topic := range topics {
		if topic.Domain == "Game Development" && topic.Technique == "Blockchain" {
			t.Errorf("topic %s violates domain/technique denylist", topic.ID)
		}
		if topic.Technique == "Blockchain" && topic.Context == "Entertainment Platform" {
			t.Errorf("topic %s violates technique/context denylist", topic.ID)
		}
	}
}

func TestBuildTopicMergeAndRounding(t *testing.T) {
	domain := models.DomainInfo{
		Name:        "Data Science",
		BaseSkills:  map[string]int{"python": 2, "statistics": 2},
		BaseCourses: []string{"CS200", "CS101"},
		Description: "Data pipelines",
	}
	technique := models.TechniqueInfo{
		Name:           "Machine Learning",
		RequiredSkills: map[string]int{"python": 3},
		Difficulty:     models.DifficultyAdvanced,
		MinCGPA:        3.0,
		EstimatedHours: 15,
		RiskFactors:    []string{"Model accuracy"},
		Description:    "Predictive models",
	}
	context := models.ContextInfo{
		Name:               "Healthcare Application",
		AdditionalSkills:   map[string]int{"statistics": 3},
		AdditionalCourses:  []string{"CS101", "BIO100"},
		ComplexityModifier: 1.1,
		Description:        "Patient care tooling",
	}

	topic := buildTopic(7, domain, technique, context)

	if topic.ID != "GEN0007" {
		t.Errorf("expected id GEN0007, got %s", topic.ID)
	}
	// Technique overrides domain; context overrides technique.
	if topic.Requirements.RequiredSkills["python"] != 3 {
		t.Errorf("expected python level 3, got %d", topic.Requirements.RequiredSkills["python"])
	}
	if topic.Requirements.RequiredSkills["statistics"] != 3 {
		t.Errorf("expected statistics level 3, got %d", topic.Requirements.RequiredSkills["statistics"])
	}

	// round(15 * 1.1) = 17 (16.5 rounds half away from zero)
	if topic.Requirements.EstimatedWeeklyHours != 17 {
		t.Errorf("expected 17 weekly hours, got %d", topic.Requirements.EstimatedWeeklyHours)
	}
	// round2(3.0 * 1.1) = 3.3
	if topic.Requirements.MinCGPA != 3.3 {
		t.Errorf("expected min cgpa 3.3, got %v", topic.Requirements.MinCGPA)
	}

	// Courses are a sorted, deduplicated union.
	want := []string{"BIO100", "CS101", "CS200"}
	if !reflect.DeepEqual(topic.Requirements.RequiredCourses, want) {
		t.Errorf("expected courses %v, got %v", want, topic.Requirements.RequiredCourses)
	}

	// Context complexity is appended to the technique risk factors.
	last := topic.RiskFactors[len(topic.RiskFactors)-1]
	if last != "Healthcare Application domain complexity" {
		t.Errorf("unexpected final risk factor: %s", last)
	}
}

func TestGenerateTitleStable(t *testing.T) {
	technique := models.TechniqueInfo{
		Name:          "Machine Learning",
		TitlePatterns: []string{"Predictive Analytics for {context}", "Intelligent {context} Optimization"},
	}

	first := generateTitle(technique, "Smart City")
	second := generateTitle(technique, "Smart City")
	if first != second {
		t.Errorf("title generation not stable: %q vs %q", first, second)
	}
	if first == "" {
		t.Fatal("empty title")
	}

	// Without patterns a default title is synthesized.
	bare := models.TechniqueInfo{Name: "Blockchain"}
	if got := generateTitle(bare, "Smart City"); got != "Smart City with Blockchain" {
		t.Errorf("unexpected default title: %q", got)
	}
}
