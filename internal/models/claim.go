package models

import "time"

// Claim is an exclusive, registry-enforced assignment of one topic to one
// student. A topic can be claimed once, and a student can hold one claim.
type Claim struct {
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	TopicID     string    `json:"topic_id"`
	TopicTitle  string    `json:"topic_title"`
	Score       float64   `json:"score"`
	SelectedAt  time.Time `json:"selected_at"`
}
