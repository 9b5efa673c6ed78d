package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fypmatch/recommender-engine/internal/models"
)

// Client is a Go SDK for the recommender-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new recommender-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Student represents a student profile response
type Student struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	CGPA               float64        `json:"cgpa"`
	Major              string         `json:"major"`
	Year               int            `json:"year"`
	Skills             map[string]int `json:"skills"`
	Interests          map[string]int `json:"interests"`
	PreferredDomains   []string       `json:"preferred_domains"`
	CompletedCourses   []string       `json:"completed_courses"`
	MaxWeeklyHours     int            `json:"max_weekly_hours"`
	TeamSizePreference int            `json:"team_size_preference"`
}

// StudentRequest represents a student create/update request. Skill and
// interest values are labels like "EXPERT" or "HIGH".
type StudentRequest struct {
	ID                 string            `json:"id,omitempty"`
	Name               string            `json:"name"`
	CGPA               float64           `json:"cgpa"`
	Major              string            `json:"major,omitempty"`
	Year               int               `json:"year,omitempty"`
	Skills             map[string]string `json:"skills,omitempty"`
	Interests          map[string]string `json:"interests,omitempty"`
	CompletedCourses   []string          `json:"completed_courses,omitempty"`
	MaxWeeklyHours     int               `json:"max_weekly_hours,omitempty"`
	TeamSizePreference int               `json:"team_size_preference,omitempty"`
}

// RecommendRequest represents a recommendation request
type RecommendRequest struct {
	StudentID    string `json:"student_id"`
	Count        int    `json:"count,omitempty"`
	MinThreshold *int   `json:"min_threshold,omitempty"`
}

// SelectionRequest represents a topic selection request
type SelectionRequest struct {
	StudentID string  `json:"student_id"`
	TopicID   string  `json:"topic_id"`
	Score     float64 `json:"score,omitempty"`
}

// TopicFilters narrows topic listings
type TopicFilters struct {
	Domain    string
	Technique string
	Context   string
}

// Stats represents engine statistics
type Stats struct {
	TopicsTotal     int  `json:"topics_total"`
	TopicsClaimed   int  `json:"topics_claimed"`
	TopicsAvailable int  `json:"topics_available"`
	Students        int  `json:"students"`
	VocabularySize  int  `json:"vocabulary_size"`
	FallbackReady   bool `json:"fallback_ready"`
}

type apiErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateStudent registers a new student profile
func (c *Client) CreateStudent(ctx context.Context, req StudentRequest) (*Student, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/students", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool     `json:"success"`
		Data    *Student `json:"data"`
		Error   *apiErr  `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data, nil
}

// UpdateStudent replaces an existing student profile
func (c *Client) UpdateStudent(ctx context.Context, id string, req StudentRequest) (*Student, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "PUT", fmt.Sprintf("/api/v1/students/%s", id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool     `json:"success"`
		Data    *Student `json:"data"`
		Error   *apiErr  `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data, nil
}

// GetStudent retrieves a student profile by ID
func (c *Client) GetStudent(ctx context.Context, id string) (*Student, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/api/v1/students/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool     `json:"success"`
		Data    *Student `json:"data"`
		Error   *apiErr  `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data, nil
}

// DeleteStudent removes a student profile
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	resp, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/api/v1/students/%s", id), nil)
	if err != nil {
		return err
	}

	var result struct {
		Success bool    `json:"success"`
		Error   *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return nil
}

// ListStudents retrieves all student profiles
func (c *Client) ListStudents(ctx context.Context) ([]*Student, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/students", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Students []*Student `json:"students"`
			Total    int        `json:"total"`
		} `json:"data"`
		Error *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data.Students, nil
}

// Recommend generates topic recommendations for a student
func (c *Client) Recommend(ctx context.Context, req RecommendRequest) (*models.RecommendationSet, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/recommendations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool                      `json:"success"`
		Data    *models.RecommendationSet `json:"data"`
		Error   *apiErr                   `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data, nil
}

// GetReport retrieves a plain-text recommendation report for a student
func (c *Client) GetReport(ctx context.Context, studentID string, count int) (string, error) {
	path := fmt.Sprintf("/api/v1/students/%s/report", studentID)
	if count > 0 {
		path += fmt.Sprintf("?count=%d", count)
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return "", err
	}

	return string(resp), nil
}

// GetHistory retrieves served recommendation sets for a student
func (c *Client) GetHistory(ctx context.Context, studentID string, limit int) ([]*models.HistoryEntry, error) {
	path := fmt.Sprintf("/api/v1/students/%s/history", studentID)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			History []*models.HistoryEntry `json:"history"`
			Total   int                    `json:"total"`
		} `json:"data"`
		Error *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data.History, nil
}

// CreateSelection claims a topic for a student
func (c *Client) CreateSelection(ctx context.Context, req SelectionRequest) (*models.Claim, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/selections", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool          `json:"success"`
		Data    *models.Claim `json:"data"`
		Error   *apiErr       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data, nil
}

// ListSelections retrieves all recorded topic claims
func (c *Client) ListSelections(ctx context.Context) ([]*models.Claim, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/selections", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Selections []*models.Claim `json:"selections"`
			Total      int             `json:"total"`
		} `json:"data"`
		Error *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data.Selections, nil
}

// ClearSelections resets the claim registry
func (c *Client) ClearSelections(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "DELETE", "/api/v1/selections", nil)
	if err != nil {
		return err
	}

	var result struct {
		Success bool    `json:"success"`
		Error   *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return nil
}

// ListTopics retrieves generated topics, optionally filtered
func (c *Client) ListTopics(ctx context.Context, filters TopicFilters) ([]*models.Topic, error) {
	q := url.Values{}
	if filters.Domain != "" {
		q.Set("domain", filters.Domain)
	}
	if filters.Technique != "" {
		q.Set("technique", filters.Technique)
	}
	if filters.Context != "" {
		q.Set("context", filters.Context)
	}

	path := "/api/v1/topics"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Topics []*models.Topic `json:"topics"`
			Total  int             `json:"total"`
		} `json:"data"`
		Error *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data.Topics, nil
}

// GetTopic retrieves a single topic by ID
func (c *Client) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/api/v1/topics/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool          `json:"success"`
		Data    *models.Topic `json:"data"`
		Error   *apiErr       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data, nil
}

// Retrain reloads the catalog and rebuilds the recommendation model
func (c *Client) Retrain(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "POST", "/api/v1/model/retrain", nil)
	if err != nil {
		return err
	}

	var result struct {
		Success bool    `json:"success"`
		Error   *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return nil
}

// GetStats retrieves engine statistics
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/stats", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool    `json:"success"`
		Data    *Stats  `json:"data"`
		Error   *apiErr `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
	}

	return result.Data, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
