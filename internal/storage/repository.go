package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// Common errors
var (
	ErrStudentNotFound = errors.New("student not found")
	// ErrClaimConflict means the topic is already claimed or the student
	// already holds a claim.
	ErrClaimConflict = errors.New("claim conflict")
)

// ClaimRegistry is the exclusive topic-assignment registry. Claim is an
// atomic check-and-set: implementations must never leave a window between
// the availability check and the write.
type ClaimRegistry interface {
	ListUnavailableTopicIDs(ctx context.Context) (map[string]struct{}, error)
	Claim(ctx context.Context, claim *models.Claim) error
	ListClaims(ctx context.Context) ([]*models.Claim, error)
	ClearClaims(ctx context.Context) error
}

// Repository defines persistence for student profiles, topic claims,
// recommendation history, and API clients.
type Repository interface {
	// Students
	SaveStudent(ctx context.Context, s *models.StudentProfile) error
	GetStudent(ctx context.Context, id string) (*models.StudentProfile, error)
	DeleteStudent(ctx context.Context, id string) error
	ListStudents(ctx context.Context) ([]*models.StudentProfile, error)
	StudentExists(ctx context.Context, id string) (bool, error)

	// Claim registry
	ClaimRegistry

	// Recommendation history
	SaveHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, studentID string, limit int) ([]*models.HistoryEntry, error)
	PruneHistory(ctx context.Context, olderThan time.Time) (int64, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
