package catalog

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// Default team size bounds applied to every generated topic.
const (
	defaultTeamSizeMin = 1
	defaultTeamSizeMax = 3
)

// Generator synthesizes the topic pool from the reference catalogs. The
// candidate pool is built once at startup; identical catalog inputs always
// produce an identical topic set (same ids, same field values).
type Generator struct {
	catalog *Catalog
}

// NewGenerator creates a generator over the given catalog.
func NewGenerator(c *Catalog) *Generator {
	return &Generator{catalog: c}
}

// Generate builds every compatible (domain, technique, context) topic.
// Triples rejected by the compatibility rules produce no topic. Empty
// catalogs yield an empty pool; that is not an error.
func (g *Generator) Generate() []*models.Topic {
	var topics []*models.Topic
	id := 1

	for _, domain := range g.catalog.Domains {
		for _, technique := range g.catalog.Techniques {
			for _, context := range g.catalog.Contexts {
				if !g.catalog.Rules.Allows(domain.Name, technique.Name, context.Name) {
					continue
				}
				topics = append(topics, buildTopic(id, domain, technique, context))
				id++
			}
		}
	}

	slog.Info("topic pool generated",
		"topics", len(topics),
		"domains", len(g.catalog.Domains),
		"techniques", len(g.catalog.Techniques),
		"contexts", len(g.catalog.Contexts),
	)
	return topics
}

func buildTopic(id int, domain models.DomainInfo, technique models.TechniqueInfo, context models.ContextInfo) *models.Topic {
	// Merge skill requirements; later sources override on collision.
	skills := make(map[string]models.Proficiency)
	for name, level := range domain.BaseSkills {
		skills[name] = models.Proficiency(level)
	}
	for name, level := range technique.RequiredSkills {
		skills[name] = models.Proficiency(level)
	}
	for name, level := range context.AdditionalSkills {
		skills[name] = models.Proficiency(level)
	}

	courses := unionCourses(domain.BaseCourses, context.AdditionalCourses)

	hours := int(math.Round(float64(technique.EstimatedHours) * context.ComplexityModifier))
	minCGPA := math.Round(technique.MinCGPA*context.ComplexityModifier*100) / 100

	riskFactors := make([]string, 0, len(technique.RiskFactors)+1)
	riskFactors = append(riskFactors, technique.RiskFactors...)
	riskFactors = append(riskFactors, context.Name+" domain complexity")

	return &models.Topic{
		ID:          fmt.Sprintf("GEN%04d", id),
		Title:       generateTitle(technique, context.Name),
		Description: fmt.Sprintf("%s implemented with %s in the %s domain.", context.Description, strings.ToLower(technique.Description), strings.ToLower(domain.Name)),
		Domain:      domain.Name,
		Technique:   technique.Name,
		Context:     context.Name,
		Difficulty:  technique.Difficulty,
		Requirements: models.TopicRequirements{
			RequiredSkills:       skills,
			MinCGPA:              minCGPA,
			RequiredCourses:      courses,
			TeamSizeMin:          defaultTeamSizeMin,
			TeamSizeMax:          defaultTeamSizeMax,
			EstimatedWeeklyHours: hours,
		},
		RiskFactors: riskFactors,
		Keywords: []string{
			strings.ToLower(domain.Name),
			strings.ToLower(technique.Name),
			strings.ToLower(context.Name),
		},
	}
}

// generateTitle picks a title pattern by hashing the context name. The hash
// is intentionally stable across runs so regeneration is reproducible; it is
// not security-sensitive randomness.
func generateTitle(technique models.TechniqueInfo, contextName string) string {
	patterns := technique.TitlePatterns
	if len(patterns) == 0 {
		return contextName + " with " + technique.Name
	}
	idx := stableHash(contextName) % uint32(len(patterns))
	return strings.ReplaceAll(patterns[idx], "{context}", contextName)
}

func stableHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func unionCourses(base, additional []string) []string {
	seen := make(map[string]struct{}, len(base)+len(additional))
	for _, c := range base {
		seen[c] = struct{}{}
	}
	for _, c := range additional {
		seen[c] = struct{}{}
	}
	courses := make([]string, 0, len(seen))
	for c := range seen {
		courses = append(courses, c)
	}
	sort.Strings(courses)
	return courses
}
