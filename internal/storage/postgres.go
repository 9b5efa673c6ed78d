package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fypmatch/recommender-engine/internal/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// studentRow is the JSON shape of the skills/interests columns.
type studentRow struct {
	Skills    map[string]int `json:"skills"`
	Interests map[string]int `json:"interests"`
}

// SaveStudent inserts or updates a student profile
func (r *PostgresRepository) SaveStudent(ctx context.Context, s *models.StudentProfile) error {
	skills := make(map[string]int, len(s.Skills))
	for name, level := range s.Skills {
		skills[name] = int(level)
	}
	interests := make(map[string]int, len(s.Interests))
	for domain, level := range s.Interests {
		interests[domain] = int(level)
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	interestsJSON, err := json.Marshal(interests)
	if err != nil {
		return fmt.Errorf("failed to marshal interests: %w", err)
	}

	courses := make([]string, 0, len(s.CompletedCourses))
	for course := range s.CompletedCourses {
		courses = append(courses, course)
	}

	query := `
		INSERT INTO students (id, name, cgpa, major, year, skills, interests, preferred_domains, completed_courses, max_weekly_hours, team_size_preference, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			cgpa = EXCLUDED.cgpa,
			major = EXCLUDED.major,
			year = EXCLUDED.year,
			skills = EXCLUDED.skills,
			interests = EXCLUDED.interests,
			preferred_domains = EXCLUDED.preferred_domains,
			completed_courses = EXCLUDED.completed_courses,
			max_weekly_hours = EXCLUDED.max_weekly_hours,
			team_size_preference = EXCLUDED.team_size_preference,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.Name,
		s.CGPA,
		s.Major,
		s.Year,
		skillsJSON,
		interestsJSON,
		s.PreferredDomains,
		courses,
		s.MaxWeeklyHours,
		s.TeamSizePreference,
	)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

// GetStudent retrieves a student profile by ID
func (r *PostgresRepository) GetStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	query := `
		SELECT id, name, cgpa, major, year, skills, interests, preferred_domains, completed_courses, max_weekly_hours, team_size_preference
		FROM students
		WHERE id = $1
	`
	return scanStudent(r.pool.QueryRow(ctx, query, id))
}

// DeleteStudent removes a student profile
func (r *PostgresRepository) DeleteStudent(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// ListStudents returns all student profiles ordered by ID
func (r *PostgresRepository) ListStudents(ctx context.Context) ([]*models.StudentProfile, error) {
	query := `
		SELECT id, name, cgpa, major, year, skills, interests, preferred_domains, completed_courses, max_weekly_hours, team_size_preference
		FROM students
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*models.StudentProfile
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// StudentExists checks whether a student profile exists
func (r *PostgresRepository) StudentExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*models.StudentProfile, error) {
	var (
		s             models.StudentProfile
		skillsJSON    []byte
		interestsJSON []byte
		courses       []string
	)

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.CGPA,
		&s.Major,
		&s.Year,
		&skillsJSON,
		&interestsJSON,
		&s.PreferredDomains,
		&courses,
		&s.MaxWeeklyHours,
		&s.TeamSizePreference,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	var raw studentRow
	if err := json.Unmarshal(skillsJSON, &raw.Skills); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
	}
	if err := json.Unmarshal(interestsJSON, &raw.Interests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interests: %w", err)
	}

	s.Skills = make(map[string]models.Proficiency, len(raw.Skills))
	for name, level := range raw.Skills {
		s.Skills[name] = models.Proficiency(level)
	}
	s.Interests = make(map[string]models.InterestLevel, len(raw.Interests))
	for domain, level := range raw.Interests {
		s.Interests[domain] = models.InterestLevel(level)
	}
	s.CompletedCourses = make(map[string]struct{}, len(courses))
	for _, course := range courses {
		s.CompletedCourses[course] = struct{}{}
	}
	return &s, nil
}

// Claim registry

// Claim records a topic selection. Atomicity relies on the table's unique
// constraints on topic_id and student_id: the insert either succeeds or
// reports a conflict, with no separate availability check.
func (r *PostgresRepository) Claim(ctx context.Context, claim *models.Claim) error {
	query := `
		INSERT INTO selections (topic_id, student_id, student_name, topic_title, score, selected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		claim.TopicID,
		claim.StudentID,
		claim.StudentName,
		claim.TopicTitle,
		claim.Score,
		claim.SelectedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrClaimConflict
		}
		return fmt.Errorf("failed to record selection: %w", err)
	}
	return nil
}

// ListUnavailableTopicIDs returns the set of claimed topic ids
func (r *PostgresRepository) ListUnavailableTopicIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT topic_id FROM selections`)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimed topics: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ListClaims returns all selections ordered by selection time
func (r *PostgresRepository) ListClaims(ctx context.Context) ([]*models.Claim, error) {
	query := `
		SELECT topic_id, student_id, student_name, topic_title, score, selected_at
		FROM selections
		ORDER BY selected_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	defer rows.Close()

	var claims []*models.Claim
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(&c.TopicID, &c.StudentID, &c.StudentName, &c.TopicTitle, &c.Score, &c.SelectedAt); err != nil {
			return nil, err
		}
		claims = append(claims, &c)
	}
	return claims, rows.Err()
}

// ClearClaims removes all selections
func (r *PostgresRepository) ClearClaims(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM selections`); err != nil {
		return fmt.Errorf("failed to clear selections: %w", err)
	}
	return nil
}

// Recommendation history

// SaveHistory appends a served recommendation set to the history log
func (r *PostgresRepository) SaveHistory(ctx context.Context, entry *models.HistoryEntry) error {
	query := `
		INSERT INTO recommendation_history (student_id, student_name, topic_ids, fallback_used, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.StudentID,
		entry.StudentName,
		entry.TopicIDs,
		entry.FallbackUsed,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// ListHistory returns history entries, optionally filtered by student
func (r *PostgresRepository) ListHistory(ctx context.Context, studentID string, limit int) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, student_id, student_name, topic_ids, fallback_used, created_at
		FROM recommendation_history
	`
	args := []interface{}{}
	if studentID != "" {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.StudentName, &e.TopicIDs, &e.FallbackUsed, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// PruneHistory deletes history entries older than the given time
func (r *PostgresRepository) PruneHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recommendation_history WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// API Clients

// GetClientByApiKey looks up an active API client by key. Returns (nil, nil)
// when no client matches.
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var (
		c               models.ApiClient
		permissionsJSON []byte
		metadataJSON    []byte
	)
	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&c.ID,
		&c.Name,
		&c.ApiKey,
		&c.IsActive,
		&c.CreatedAt,
		&c.LastUsedAt,
		&permissionsJSON,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if err := json.Unmarshal(permissionsJSON, &c.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &c, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	return err
}
