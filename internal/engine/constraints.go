package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// CheckHardConstraints evaluates the necessary conditions for a topic. All
// four checks run independently so every applicable failure is reported
// together; the topic is admissible iff reasons is empty. No side effects.
func CheckHardConstraints(student *models.StudentProfile, topic *models.Topic) (bool, []string) {
	var reasons []string
	reqs := topic.Requirements

	// CGPA boundary is inclusive: an exact match passes.
	if student.CGPA < reqs.MinCGPA {
		reasons = append(reasons, fmt.Sprintf("CGPA %.2f is below minimum requirement %.2f", student.CGPA, reqs.MinCGPA))
	}

	if missing := missingCourses(student, reqs.RequiredCourses); len(missing) > 0 {
		reasons = append(reasons, "Missing required courses: "+strings.Join(missing, ", "))
	}

	if student.TeamSizePreference < reqs.TeamSizeMin {
		reasons = append(reasons, fmt.Sprintf("Preferred team size %d is too small (min %d)", student.TeamSizePreference, reqs.TeamSizeMin))
	}

	if student.MaxWeeklyHours < reqs.EstimatedWeeklyHours {
		reasons = append(reasons, fmt.Sprintf("Available hours %d less than required %d", student.MaxWeeklyHours, reqs.EstimatedWeeklyHours))
	}

	return len(reasons) == 0, reasons
}

func missingCourses(student *models.StudentProfile, required []string) []string {
	var missing []string
	for _, course := range required {
		if !student.HasCompleted(course) {
			missing = append(missing, course)
		}
	}
	sort.Strings(missing)
	return missing
}
