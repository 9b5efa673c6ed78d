package models

// Difficulty labels used by technique definitions.
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// TopicRequirements holds the eligibility requirements of a generated topic.
type TopicRequirements struct {
	// RequiredSkills maps skill name to minimum proficiency ordinal.
	RequiredSkills       map[string]Proficiency `json:"required_skills"`
	MinCGPA              float64                `json:"min_cgpa"`
	RequiredCourses      []string               `json:"required_courses"`
	TeamSizeMin          int                    `json:"team_size_min"`
	TeamSizeMax          int                    `json:"team_size_max"`
	EstimatedWeeklyHours int                    `json:"estimated_weekly_hours"`
}

// RequiresCourse reports whether the course appears in RequiredCourses.
func (r TopicRequirements) RequiresCourse(course string) bool {
	for _, c := range r.RequiredCourses {
		if c == course {
			return true
		}
	}
	return false
}

// Topic is a generated project proposal. Topics are created once by the
// catalog generator and never mutated afterwards; a given catalog
// configuration always regenerates the same topic set.
type Topic struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Domain       string            `json:"domain"`
	Technique    string            `json:"technique"`
	Context      string            `json:"context"`
	Difficulty   string            `json:"difficulty"`
	Requirements TopicRequirements `json:"requirements"`
	RiskFactors  []string          `json:"risk_factors"`
	Keywords     []string          `json:"keywords"`
}

// DomainInfo is a static reference record describing a project domain.
type DomainInfo struct {
	Name        string         `yaml:"name" json:"name"`
	BaseSkills  map[string]int `yaml:"base_skills" json:"base_skills"`
	BaseCourses []string       `yaml:"base_courses" json:"base_courses"`
	Description string         `yaml:"description" json:"description"`
}

// TechniqueInfo is a static reference record describing a technique.
type TechniqueInfo struct {
	Name           string         `yaml:"name" json:"name"`
	RequiredSkills map[string]int `yaml:"required_skills" json:"required_skills"`
	Difficulty     string         `yaml:"difficulty" json:"difficulty"`
	MinCGPA        float64        `yaml:"min_cgpa" json:"min_cgpa"`
	EstimatedHours int            `yaml:"estimated_hours" json:"estimated_hours"`
	RiskFactors    []string       `yaml:"risk_factors" json:"risk_factors"`
	Description    string         `yaml:"description" json:"description"`
	// TitlePatterns are technique-specific title templates. "{context}" is
	// replaced with the context name; the pattern is picked by a stable hash
	// of the context name so regeneration is reproducible.
	TitlePatterns []string `yaml:"title_patterns" json:"title_patterns,omitempty"`
}

// ContextInfo is a static reference record describing an application context.
type ContextInfo struct {
	Name              string         `yaml:"name" json:"name"`
	AdditionalSkills  map[string]int `yaml:"additional_skills" json:"additional_skills"`
	AdditionalCourses []string       `yaml:"additional_courses" json:"additional_courses"`
	// ComplexityModifier scales technique hours and CGPA floor (0.8-1.2).
	ComplexityModifier float64 `yaml:"complexity_modifier" json:"complexity_modifier"`
	Description        string  `yaml:"description" json:"description"`
}
