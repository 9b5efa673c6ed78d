// Package report renders human-readable recommendation reports. Formatting
// only; no scoring logic lives here.
package report

import (
	"fmt"
	"strings"

	"github.com/fypmatch/recommender-engine/internal/models"
)

const divider = "============================================================"

// Render produces a plain-text report for a served recommendation set.
func Render(student *models.StudentProfile, recs []*models.Recommendation, usedFallback bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FYP Recommendation Report for %s\n", student.Name)
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Major: %s | CGPA: %.2f\n", student.Major, student.CGPA)
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(student.PreferredDomains, ", "))

	if usedFallback {
		b.WriteString("\nNOTE: similarity fallback activated.\n")
		b.WriteString("Some recommendations use relaxed constraints to ensure you have options.\n")
		b.WriteString("Consider improving your skills/CGPA for better knowledge-based matches.\n")
	}

	fmt.Fprintf(&b, "\n%d Top Recommendations based on your profile:\n\n", len(recs))

	for _, rec := range recs {
		b.WriteString(divider + "\n")
		fmt.Fprintf(&b, "RANK #%d: %s\n", rec.Rank, rec.Topic.Title)
		b.WriteString(divider + "\n")
		fmt.Fprintf(&b, "MATCH SCORE: %.2f/100  |  Topic ID: %s\n", rec.Score, rec.Topic.ID)
		fmt.Fprintf(&b, "Domain: %s  |  Difficulty: %s\n", rec.Topic.Domain, rec.Topic.Difficulty)
		if rec.Provenance == models.ProvenanceFallback {
			b.WriteString("Source: similarity fallback (relaxed constraints)\n")
		}
		fmt.Fprintf(&b, "\nDescription: %s\n", rec.Topic.Description)

		b.WriteString("\nWhy this matches you:\n")
		for _, reason := range rec.MatchReasons {
			fmt.Fprintf(&b, "  - %s\n", reason)
		}

		if rec.RiskLevel != models.RiskLow {
			fmt.Fprintf(&b, "\nRisk Assessment: %s\n", strings.ToUpper(string(rec.RiskLevel)))
			for _, risk := range rec.RiskReasons {
				fmt.Fprintf(&b, "  - %s\n", risk)
			}
		} else {
			fmt.Fprintf(&b, "\nRisk Assessment: %s - Good fit!\n", rec.RiskLevel)
		}

		fmt.Fprintf(&b, "\nTechnical Feasibility: %d%%\n\n", int(rec.FeasibilityScore*100))
	}

	if len(recs) == 0 {
		fmt.Fprintf(&b, "No suitable topics found for %s. Please broaden your interests or acquire more skills.\n", student.Name)
	}

	return b.String()
}

// RenderSelections formats the claims registry for display.
func RenderSelections(claims []*models.Claim) string {
	if len(claims) == 0 {
		return "No topics have been selected yet."
	}

	var b strings.Builder
	b.WriteString("\n" + strings.Repeat("=", 70) + "\n")
	b.WriteString("SELECTED TOPICS REGISTRY\n")
	b.WriteString(strings.Repeat("=", 70) + "\n\n")

	for i, claim := range claims {
		fmt.Fprintf(&b, "%d. Student: %s (ID: %s)\n", i+1, claim.StudentName, claim.StudentID)
		fmt.Fprintf(&b, "   Topic: %s (ID: %s)\n", claim.TopicTitle, claim.TopicID)
		fmt.Fprintf(&b, "   Score: %.2f\n", claim.Score)
		fmt.Fprintf(&b, "   Selected: %s\n\n", claim.SelectedAt.Format("2006-01-02 15:04:05"))
	}

	return b.String()
}
