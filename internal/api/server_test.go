package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fypmatch/recommender-engine/internal/catalog"
	"github.com/fypmatch/recommender-engine/internal/config"
	"github.com/fypmatch/recommender-engine/internal/engine"
	"github.com/fypmatch/recommender-engine/internal/models"
	"github.com/fypmatch/recommender-engine/internal/storage"
)

const testAPIKey = "sk_test_0123456789abcdef"

// fakeRepo is an in-memory Repository for handler tests.
type fakeRepo struct {
	mu        sync.Mutex
	students  map[string]*models.StudentProfile
	claims    map[string]*models.Claim
	byStudent map[string]string
	history   []*models.HistoryEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		students:  make(map[string]*models.StudentProfile),
		claims:    make(map[string]*models.Claim),
		byStudent: make(map[string]string),
	}
}

func (f *fakeRepo) SaveStudent(ctx context.Context, s *models.StudentProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students[s.ID] = s
	return nil
}

func (f *fakeRepo) GetStudent(ctx context.Context, id string) (*models.StudentProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil, storage.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeRepo) DeleteStudent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[id]; !ok {
		return storage.ErrStudentNotFound
	}
	delete(f.students, id)
	return nil
}

func (f *fakeRepo) ListStudents(ctx context.Context) ([]*models.StudentProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.StudentProfile, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRepo) StudentExists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.students[id]
	return ok, nil
}

func (f *fakeRepo) ListUnavailableTopicIDs(ctx context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make(map[string]struct{}, len(f.claims))
	for id := range f.claims {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeRepo) Claim(ctx context.Context, claim *models.Claim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.claims[claim.TopicID]; taken {
		return storage.ErrClaimConflict
	}
	if _, has := f.byStudent[claim.StudentID]; has {
		return storage.ErrClaimConflict
	}
	f.claims[claim.TopicID] = claim
	f.byStudent[claim.StudentID] = claim.TopicID
	return nil
}

func (f *fakeRepo) ListClaims(ctx context.Context) ([]*models.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Claim, 0, len(f.claims))
	for _, c := range f.claims {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) ClearClaims(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = make(map[string]*models.Claim)
	f.byStudent = make(map[string]string)
	return nil
}

func (f *fakeRepo) SaveHistory(ctx context.Context, entry *models.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeRepo) ListHistory(ctx context.Context, studentID string, limit int) ([]*models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.HistoryEntry
	for _, e := range f.history {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) PruneHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	if apiKey != testAPIKey {
		return nil, nil
	}
	return &models.ApiClient{
		ID:          1,
		Name:        "test-client",
		ApiKey:      apiKey,
		IsActive:    true,
		Permissions: []string{"*"},
	}, nil
}

func (f *fakeRepo) UpdateClientLastUsed(ctx context.Context, apiKey string) error { return nil }
func (f *fakeRepo) Ping(ctx context.Context) error                                { return nil }
func (f *fakeRepo) Close() error                                                  { return nil }

func newTestServer(t *testing.T) (*Server, *fakeRepo) {
	t.Helper()
	cat, err := catalog.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}

	repo := newFakeRepo()
	eng := engine.New(cat, repo, engine.Options{})

	srv := NewServer(
		config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		config.RecommendConfig{DefaultCount: 5, MinThreshold: 3},
		config.CatalogConfig{},
		eng,
		repo,
		repo,
	)
	return srv, repo
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("request failed: %s", rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func seedStudent(t *testing.T, srv *Server, id string) {
	t.Helper()
	body := map[string]interface{}{
		"id":    id,
		"name":  "Alice",
		"cgpa":  3.8,
		"major": "Computer Science",
		"year":  4,
		"skills": map[string]string{
			"python":     "EXPERT",
			"statistics": "ADVANCED",
		},
		"interests": map[string]string{
			"Data Science": "VERY_HIGH",
		},
		"completed_courses": []string{
			"Data Structures", "Statistics", "Database Systems", "Ethics in Computing",
		},
		"max_weekly_hours": 40,
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/students", body, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed student failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/ready", nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("ready returned %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/topics", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without api key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil)
	req.Header.Set("Authorization", "Bearer sk_wrong")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid key, got %d", w.Code)
	}
}

func TestStudentLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	seedStudent(t, srv, "s1")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/students/s1", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("get student returned %d", rec.Code)
	}
	var student struct {
		ID               string         `json:"id"`
		Skills           map[string]int `json:"skills"`
		PreferredDomains []string       `json:"preferred_domains"`
		CompletedCourses []string       `json:"completed_courses"`
	}
	decodeData(t, rec, &student)
	if student.Skills["python"] != 4 {
		t.Errorf("expected python ordinal 4, got %d", student.Skills["python"])
	}
	if len(student.PreferredDomains) == 0 {
		t.Error("high interest should populate preferred domains")
	}
	if len(student.CompletedCourses) != 4 {
		t.Errorf("expected 4 completed courses, got %v", student.CompletedCourses)
	}

	// Invalid label is rejected.
	bad := map[string]interface{}{
		"name":   "Bob",
		"cgpa":   3.0,
		"skills": map[string]string{"python": "WIZARD"},
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/students", bad, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown proficiency label, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/students/s1", nil, true)
	if rec.Code != http.StatusOK {
		t.Errorf("delete returned %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/students/s1", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedStudent(t, srv, "s1")

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/recommendations",
		map[string]interface{}{"student_id": "s1", "count": 5}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("recommend returned %d: %s", rec.Code, rec.Body.String())
	}

	var set models.RecommendationSet
	decodeData(t, rec, &set)
	if set.StudentID != "s1" {
		t.Errorf("unexpected student id %q", set.StudentID)
	}
	if len(set.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}

	// Unknown student
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/recommendations",
		map[string]interface{}{"student_id": "ghost"}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown student, got %d", rec.Code)
	}
}

func TestSelectionConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	seedStudent(t, srv, "s1")
	seedStudent(t, srv, "s2")

	topicID := "GEN0001"
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/selections",
		map[string]interface{}{"student_id": "s1", "topic_id": topicID, "score": 90.0}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("selection returned %d: %s", rec.Code, rec.Body.String())
	}

	var claim models.Claim
	decodeData(t, rec, &claim)
	if claim.TopicID != topicID || claim.StudentID != "s1" {
		t.Errorf("unexpected claim %+v", claim)
	}

	// Same topic again conflicts.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/selections",
		map[string]interface{}{"student_id": "s2", "topic_id": topicID}, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for claimed topic, got %d", rec.Code)
	}

	// Same student, different topic also conflicts.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/selections",
		map[string]interface{}{"student_id": "s1", "topic_id": "GEN0002"}, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for second claim by one student, got %d", rec.Code)
	}

	// Unknown topic
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/selections",
		map[string]interface{}{"student_id": "s2", "topic_id": "GEN9999"}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown topic, got %d", rec.Code)
	}

	// Clear and re-claim succeeds.
	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/selections", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear selections returned %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/selections",
		map[string]interface{}{"student_id": "s2", "topic_id": topicID}, true)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected claim to succeed after clear, got %d", rec.Code)
	}
}

func TestTopicAndCatalogEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/topics?domain=Data+Science", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("topics returned %d", rec.Code)
	}
	var listing struct {
		Topics []*models.Topic `json:"topics"`
		Total  int             `json:"total"`
	}
	decodeData(t, rec, &listing)
	if listing.Total == 0 {
		t.Fatal("expected filtered topics")
	}
	for _, topic := range listing.Topics {
		if topic.Domain != "Data Science" {
			t.Errorf("filter leaked domain %q", topic.Domain)
		}
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/topics/"+listing.Topics[0].ID, nil, true)
	if rec.Code != http.StatusOK {
		t.Errorf("topic by id returned %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/catalog/domains", nil, true)
	if rec.Code != http.StatusOK {
		t.Errorf("domains returned %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/stats", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var stats struct {
		TopicsTotal    int  `json:"topics_total"`
		FallbackReady  bool `json:"fallback_ready"`
		VocabularySize int  `json:"vocabulary_size"`
	}
	decodeData(t, rec, &stats)
	if stats.TopicsTotal == 0 || !stats.FallbackReady {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStudentReportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedStudent(t, srv, "s1")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/students/s1/report", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("report returned %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain report, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "FYP Recommendation Report for Alice") {
		t.Error("report body missing header line")
	}
}

func TestSelectionsTextFormat(t *testing.T) {
	srv, _ := newTestServer(t)
	seedStudent(t, srv, "s1")

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/selections?format=text", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("selections returned %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain selections, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "No topics have been selected yet.") {
		t.Error("expected empty-registry message")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/selections",
		map[string]interface{}{"student_id": "s1", "topic_id": "GEN0001", "score": 88.0}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("selection returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/selections?format=text", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("selections returned %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "SELECTED TOPICS REGISTRY") {
		t.Error("registry view missing header")
	}
	if !strings.Contains(body, "(ID: s1)") || !strings.Contains(body, "(ID: GEN0001)") {
		t.Errorf("registry view missing claim details:\n%s", body)
	}
}
