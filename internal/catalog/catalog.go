package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fypmatch/recommender-engine/internal/models"
)

//go:embed defaults/*.yaml
var defaultFiles embed.FS

// CompatibilityRule forbids a (domain, technique) pairing.
type CompatibilityRule struct {
	Domain    string `yaml:"domain" json:"domain"`
	Technique string `yaml:"technique" json:"technique"`
}

// ContextRule forbids a technique in the listed application contexts.
type ContextRule struct {
	Technique string   `yaml:"technique" json:"technique"`
	Contexts  []string `yaml:"contexts" json:"contexts"`
}

// Rules is the data-driven compatibility table consulted during generation.
// Pairings listed here produce no topic.
type Rules struct {
	DomainTechnique   []CompatibilityRule `yaml:"domain_technique" json:"domain_technique"`
	TechniqueContexts []ContextRule       `yaml:"technique_contexts" json:"technique_contexts"`
}

// Allows reports whether the (domain, technique, context) triple is
// compatible under the rule table.
func (r Rules) Allows(domain, technique, context string) bool {
	for _, rule := range r.DomainTechnique {
		if rule.Domain == domain && rule.Technique == technique {
			return false
		}
	}
	for _, rule := range r.TechniqueContexts {
		if rule.Technique != technique {
			continue
		}
		for _, c := range rule.Contexts {
			if c == context {
				return false
			}
		}
	}
	return true
}

// Catalog holds the static reference data topics are generated from.
// Ordering is significant: topic ids are assigned over the declared order,
// so identical catalog files always regenerate an identical topic set.
type Catalog struct {
	Domains    []models.DomainInfo
	Techniques []models.TechniqueInfo
	Contexts   []models.ContextInfo
	Rules      Rules
}

type catalogFiles struct {
	domains struct {
		Domains []models.DomainInfo `yaml:"domains"`
	}
	techniques struct {
		Techniques []models.TechniqueInfo `yaml:"techniques"`
	}
	contexts struct {
		Contexts []models.ContextInfo `yaml:"contexts"`
	}
}

// LoadDefault loads the embedded reference catalogs.
func LoadDefault() (*Catalog, error) {
	sub, err := fs.Sub(defaultFiles, "defaults")
	if err != nil {
		return nil, err
	}
	return loadFS(sub)
}

// LoadFromDir loads catalogs from a directory containing domains.yaml,
// techniques.yaml, contexts.yaml, and compatibility.yaml.
func LoadFromDir(dir string) (*Catalog, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("catalog directory %s: %w", dir, err)
	}
	slog.Info("loading catalogs from directory", "dir", dir)
	return loadFS(os.DirFS(filepath.Clean(dir)))
}

func loadFS(fsys fs.FS) (*Catalog, error) {
	var files catalogFiles

	if err := readYAML(fsys, "domains.yaml", &files.domains); err != nil {
		return nil, err
	}
	if err := readYAML(fsys, "techniques.yaml", &files.techniques); err != nil {
		return nil, err
	}
	if err := readYAML(fsys, "contexts.yaml", &files.contexts); err != nil {
		return nil, err
	}

	var rules Rules
	if err := readYAML(fsys, "compatibility.yaml", &rules); err != nil {
		return nil, err
	}

	c := &Catalog{
		Domains:    files.domains.Domains,
		Techniques: files.techniques.Techniques,
		Contexts:   files.contexts.Contexts,
		Rules:      rules,
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	slog.Info("catalogs loaded",
		"domains", len(c.Domains),
		"techniques", len(c.Techniques),
		"contexts", len(c.Contexts),
	)
	return c, nil
}

func readYAML(fsys fs.FS, name string, out interface{}) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Validate checks the reference data for malformed entries. A failure here
// is fatal at startup; empty catalogs are valid and simply generate nothing.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{})
	for _, d := range c.Domains {
		if d.Name == "" {
			return fmt.Errorf("domain with empty name")
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("duplicate domain %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		if err := validSkillLevels("domain", d.Name, d.BaseSkills); err != nil {
			return err
		}
	}

	seen = make(map[string]struct{})
	for _, t := range c.Techniques {
		if t.Name == "" {
			return fmt.Errorf("technique with empty name")
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("duplicate technique %q", t.Name)
		}
		seen[t.Name] = struct{}{}
		switch t.Difficulty {
		case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
		default:
			return fmt.Errorf("technique %q has unknown difficulty %q", t.Name, t.Difficulty)
		}
		if t.MinCGPA < 0 || t.MinCGPA > 4.0 {
			return fmt.Errorf("technique %q has min_cgpa %.2f out of range", t.Name, t.MinCGPA)
		}
		if t.EstimatedHours <= 0 {
			return fmt.Errorf("technique %q has non-positive estimated_hours", t.Name)
		}
		if err := validSkillLevels("technique", t.Name, t.RequiredSkills); err != nil {
			return err
		}
	}

	seen = make(map[string]struct{})
	for _, ctx := range c.Contexts {
		if ctx.Name == "" {
			return fmt.Errorf("context with empty name")
		}
		if _, dup := seen[ctx.Name]; dup {
			return fmt.Errorf("duplicate context %q", ctx.Name)
		}
		seen[ctx.Name] = struct{}{}
		if ctx.ComplexityModifier <= 0 {
			return fmt.Errorf("context %q has non-positive complexity_modifier", ctx.Name)
		}
		if err := validSkillLevels("context", ctx.Name, ctx.AdditionalSkills); err != nil {
			return err
		}
	}

	return nil
}

func validSkillLevels(kind, name string, skills map[string]int) error {
	for skill, level := range skills {
		if !models.Proficiency(level).Valid() {
			return fmt.Errorf("%s %q: skill %q level %d outside 1-4", kind, name, skill, level)
		}
	}
	return nil
}
