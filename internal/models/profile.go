package models

import (
	"fmt"
	"strings"
)

// Proficiency is a closed 1-4 ordinal scale for skill levels.
// Comparisons are always made on the ordinal value, never the label.
type Proficiency int

const (
	ProficiencyNovice       Proficiency = 1
	ProficiencyIntermediate Proficiency = 2
	ProficiencyAdvanced     Proficiency = 3
	ProficiencyExpert       Proficiency = 4
)

var proficiencyNames = map[Proficiency]string{
	ProficiencyNovice:       "NOVICE",
	ProficiencyIntermediate: "INTERMEDIATE",
	ProficiencyAdvanced:     "ADVANCED",
	ProficiencyExpert:       "EXPERT",
}

// Valid reports whether the ordinal is within the closed scale.
func (p Proficiency) Valid() bool {
	return p >= ProficiencyNovice && p <= ProficiencyExpert
}

func (p Proficiency) String() string {
	if name, ok := proficiencyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Proficiency(%d)", int(p))
}

// ParseProficiency converts a label like "EXPERT" to its ordinal.
func ParseProficiency(name string) (Proficiency, error) {
	for p, n := range proficiencyNames {
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown proficiency: %q", name)
}

// InterestLevel is a closed 1-4 ordinal scale for domain interest.
type InterestLevel int

const (
	InterestLow      InterestLevel = 1
	InterestMedium   InterestLevel = 2
	InterestHigh     InterestLevel = 3
	InterestVeryHigh InterestLevel = 4
)

var interestNames = map[InterestLevel]string{
	InterestLow:      "LOW",
	InterestMedium:   "MEDIUM",
	InterestHigh:     "HIGH",
	InterestVeryHigh: "VERY_HIGH",
}

// Valid reports whether the ordinal is within the closed scale.
func (l InterestLevel) Valid() bool {
	return l >= InterestLow && l <= InterestVeryHigh
}

func (l InterestLevel) String() string {
	if name, ok := interestNames[l]; ok {
		return name
	}
	return fmt.Sprintf("InterestLevel(%d)", int(l))
}

// ParseInterestLevel converts a label like "HIGH" to its ordinal.
func ParseInterestLevel(name string) (InterestLevel, error) {
	for l, n := range interestNames {
		if strings.EqualFold(n, name) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown interest level: %q", name)
}

// StudentProfile holds a student's academic standing, skills, and
// preferences. Skill and interest keys are stored lowercase. A profile is
// treated as immutable for the duration of a recommendation request.
type StudentProfile struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	CGPA  float64 `json:"cgpa"`
	Major string  `json:"major"`
	Year  int     `json:"year"`

	Skills    map[string]Proficiency   `json:"skills"`
	Interests map[string]InterestLevel `json:"interests"`

	PreferredDomains []string            `json:"preferred_domains"`
	CompletedCourses map[string]struct{} `json:"-"`

	MaxWeeklyHours     int `json:"max_weekly_hours"`
	TeamSizePreference int `json:"team_size_preference"`
}

// NewStudentProfile creates a profile with initialized maps.
func NewStudentProfile(id, name string, cgpa float64, major string, year int) *StudentProfile {
	return &StudentProfile{
		ID:                 id,
		Name:               name,
		CGPA:               cgpa,
		Major:              major,
		Year:               year,
		Skills:             make(map[string]Proficiency),
		Interests:          make(map[string]InterestLevel),
		CompletedCourses:   make(map[string]struct{}),
		MaxWeeklyHours:     20,
		TeamSizePreference: 1,
	}
}

// AddSkill records a skill at the given proficiency. Names are lowercased.
func (s *StudentProfile) AddSkill(name string, level Proficiency) {
	if s.Skills == nil {
		s.Skills = make(map[string]Proficiency)
	}
	s.Skills[strings.ToLower(name)] = level
}

// AddInterest records interest in a domain. High and very high interest
// also adds the domain to the preferred list.
func (s *StudentProfile) AddInterest(domain string, level InterestLevel) {
	if s.Interests == nil {
		s.Interests = make(map[string]InterestLevel)
	}
	key := strings.ToLower(domain)
	s.Interests[key] = level
	if level >= InterestHigh && !s.PrefersDomain(key) {
		s.PreferredDomains = append(s.PreferredDomains, key)
	}
}

// AddCompletedCourse records a completed course.
func (s *StudentProfile) AddCompletedCourse(course string) {
	if s.CompletedCourses == nil {
		s.CompletedCourses = make(map[string]struct{})
	}
	s.CompletedCourses[course] = struct{}{}
}

// HasCompleted reports whether the course has been completed.
func (s *StudentProfile) HasCompleted(course string) bool {
	_, ok := s.CompletedCourses[course]
	return ok
}

// SkillLevel returns the proficiency for a skill. Unknown skills report the
// lowest ordinal rather than zero so gap arithmetic stays on the scale.
func (s *StudentProfile) SkillLevel(name string) Proficiency {
	if level, ok := s.Skills[strings.ToLower(name)]; ok {
		return level
	}
	return ProficiencyNovice
}

// HasSkill reports whether the profile lists the skill at all.
func (s *StudentProfile) HasSkill(name string) bool {
	_, ok := s.Skills[strings.ToLower(name)]
	return ok
}

// InterestIn returns the interest level for a domain, if any.
func (s *StudentProfile) InterestIn(domain string) (InterestLevel, bool) {
	level, ok := s.Interests[strings.ToLower(domain)]
	return level, ok
}

// PrefersDomain reports whether the domain is in the preferred list.
func (s *StudentProfile) PrefersDomain(domain string) bool {
	key := strings.ToLower(domain)
	for _, d := range s.PreferredDomains {
		if strings.ToLower(d) == key {
			return true
		}
	}
	return false
}

// Validate checks ordinal ranges and required fields.
func (s *StudentProfile) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("student id is required")
	}
	if s.CGPA < 0 || s.CGPA > 4.0 {
		return fmt.Errorf("cgpa %.2f out of range [0, 4.0]", s.CGPA)
	}
	for name, level := range s.Skills {
		if !level.Valid() {
			return fmt.Errorf("skill %q has invalid proficiency %d", name, int(level))
		}
	}
	for domain, level := range s.Interests {
		if !level.Valid() {
			return fmt.Errorf("interest %q has invalid level %d", domain, int(level))
		}
	}
	return nil
}
