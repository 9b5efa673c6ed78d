package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fypmatch/recommender-engine/internal/catalog"
	"github.com/fypmatch/recommender-engine/internal/models"
)

// ClaimRegistry is the external registry of exclusive topic assignments.
// Claim must be an atomic check-and-set at the registry; the engine never
// performs a check-then-write sequence around it.
type ClaimRegistry interface {
	ListUnavailableTopicIDs(ctx context.Context) (map[string]struct{}, error)
	Claim(ctx context.Context, claim *models.Claim) error
}

// Options tunes the engine. Zero values fall back to the defaults.
type Options struct {
	Weights     RankWeights
	Feasibility FeasibilityParams
	Relaxed     RelaxedParams
}

// Engine runs the hybrid recommendation pipeline: rule-based filtering,
// scoring, and ranking, with a content-similarity fallback under a
// deterministic activation policy. The topic pool and fitted similarity
// index are immutable after construction and shared across requests; they
// are replaced only by Retrain.
type Engine struct {
	registry ClaimRegistry
	weights  RankWeights
	feas     FeasibilityParams
	relaxed  RelaxedParams

	state atomic.Pointer[modelState]
}

type modelState struct {
	cat         *catalog.Catalog
	topics      []*models.Topic
	byID        map[string]*models.Topic
	fallback    *FallbackRecommender
	fallbackErr error
}

// New generates the topic pool from the catalog and fits the similarity
// index. A failed index build is not fatal: the engine degrades to
// rule-based-only results.
func New(cat *catalog.Catalog, registry ClaimRegistry, opts Options) *Engine {
	if opts.Weights == (RankWeights{}) {
		opts.Weights = DefaultRankWeights()
	}
	if opts.Feasibility == (FeasibilityParams{}) {
		opts.Feasibility = DefaultFeasibilityParams()
	}
	if opts.Relaxed == (RelaxedParams{}) {
		opts.Relaxed = DefaultRelaxedParams()
	}

	e := &Engine{
		registry: registry,
		weights:  opts.Weights,
		feas:     opts.Feasibility,
		relaxed:  opts.Relaxed,
	}
	e.state.Store(e.buildState(cat))
	return e
}

func (e *Engine) buildState(cat *catalog.Catalog) *modelState {
	topics := catalog.NewGenerator(cat).Generate()

	byID := make(map[string]*models.Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	st := &modelState{cat: cat, topics: topics, byID: byID}
	fallback, err := NewFallbackRecommender(topics, e.relaxed, e.feas)
	if err != nil {
		slog.Warn("similarity fallback disabled", "error", err)
		st.fallbackErr = fmt.Errorf("%w: %v", ErrFallbackUnavailable, err)
	} else {
		st.fallback = fallback
	}
	return st
}

// Retrain regenerates the topic pool and refits the similarity index from
// the given catalog, then swaps it in atomically. In-flight requests keep
// reading the previous state.
func (e *Engine) Retrain(cat *catalog.Catalog) error {
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}
	start := time.Now()
	st := e.buildState(cat)
	e.state.Store(st)
	slog.Info("engine retrained", "topics", len(st.topics), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Catalog returns the reference catalog behind the current topic pool.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.state.Load().cat
}

// Topics returns the current topic pool in generation order.
func (e *Engine) Topics() []*models.Topic {
	return e.state.Load().topics
}

// Topic looks up a topic by id.
func (e *Engine) Topic(id string) (*models.Topic, error) {
	if t, ok := e.state.Load().byID[id]; ok {
		return t, nil
	}
	return nil, ErrTopicNotFound
}

// VocabularySize reports the fitted similarity vocabulary, or 0 when the
// fallback is unavailable.
func (e *Engine) VocabularySize() int {
	st := e.state.Load()
	if st.fallback == nil {
		return 0
	}
	return st.fallback.VocabularySize()
}

// Recommend runs the full hybrid pipeline for one student. count is the
// requested list length; threshold is the minimum below which the fallback
// activates (clamped to count). The combined list never contains a topic id
// twice, and knowledge-based entries always precede fallback entries.
func (e *Engine) Recommend(ctx context.Context, student *models.StudentProfile, count, threshold int) (*models.RecommendationSet, error) {
	if count <= 0 {
		return nil, fmt.Errorf("requested count must be positive, got %d", count)
	}
	if threshold > count {
		threshold = count
	}

	st := e.state.Load()

	// One registry snapshot per request; both paths honor it.
	unavailable, err := e.registry.ListUnavailableTopicIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimed topics: %w", err)
	}

	kbList := e.ruleBased(student, st.topics, unavailable, count)

	set := &models.RecommendationSet{
		StudentID:       student.ID,
		Recommendations: kbList,
		State:           models.CombineKBOnly,
	}

	if len(kbList) >= threshold {
		explainRecommendations(set.Recommendations)
		return set, nil
	}

	// Rule path under-delivered; top up from the similarity model.
	if st.fallback == nil {
		set.Notes = append(set.Notes, "similarity fallback unavailable; returning rule-based results only")
		slog.Warn("fallback requested but unavailable", "student_id", student.ID, "error", st.fallbackErr)
	} else {
		exclude := make(map[string]struct{}, len(unavailable)+len(kbList))
		for id := range unavailable {
			exclude[id] = struct{}{}
		}
		for _, rec := range kbList {
			exclude[rec.Topic.ID] = struct{}{}
		}

		needed := threshold - len(kbList)
		fallbackList := st.fallback.Recommend(student, needed, exclude)
		if len(fallbackList) > 0 {
			set.State = models.CombineHybrid
			set.FallbackUsed = true
			set.Recommendations = append(kbList, fallbackList...)
			// KB entries keep priority regardless of raw score; ranks are
			// recomputed over the concatenation.
			for i, rec := range set.Recommendations {
				rec.Rank = i + 1
			}
		}
	}

	if len(set.Recommendations) == 0 {
		set.State = models.CombineEmpty
		set.Notes = append(set.Notes, "no admissible topics and no fallback candidates for this profile")
	}
	explainRecommendations(set.Recommendations)
	return set, nil
}

// explainRecommendations fills the brief per-entry explanation from the
// first two match reasons, with a generic line for entries that have none.
func explainRecommendations(recs []*models.Recommendation) {
	for _, rec := range recs {
		if rec.Explanation != "" {
			continue
		}
		if len(rec.MatchReasons) == 0 {
			rec.Explanation = "Recommended based on your profile compatibility."
			continue
		}
		reasons := rec.MatchReasons
		if len(reasons) > 2 {
			reasons = reasons[:2]
		}
		rec.Explanation = strings.Join(reasons, " ")
		if !strings.HasSuffix(rec.Explanation, ".") {
			rec.Explanation += "."
		}
	}
}

// ruleBased runs the constraint/score/risk pipeline over the pruned pool.
func (e *Engine) ruleBased(student *models.StudentProfile, topics []*models.Topic, unavailable map[string]struct{}, count int) []*models.Recommendation {
	var candidates []*models.Recommendation
	for _, topic := range topics {
		if _, claimed := unavailable[topic.ID]; claimed {
			continue
		}

		admissible, _ := CheckHardConstraints(student, topic)
		if !admissible {
			continue
		}

		score := CompositeScore(student, topic, e.weights, e.feas)
		risk, riskReasons := AssessRisk(student, topic, e.feas)
		feasibility, _ := EvaluateFeasibility(student, topic.Requirements.RequiredSkills, e.feas)

		candidates = append(candidates, &models.Recommendation{
			Topic:            topic,
			Score:            score,
			FeasibilityScore: feasibility,
			RiskLevel:        risk,
			MatchReasons:     MatchReasons(student, topic),
			RiskReasons:      riskReasons,
			Provenance:       models.ProvenanceRuleBased,
		})
	}
	return RankCandidates(candidates, count)
}

// RecordSelection claims a topic for a student and returns the resulting
// claim. The claim is atomic at the registry; ErrClaimConflict is returned
// when the topic is taken or the student already holds a claim.
func (e *Engine) RecordSelection(ctx context.Context, student *models.StudentProfile, topicID string, score float64) (*models.Claim, error) {
	topic, err := e.Topic(topicID)
	if err != nil {
		return nil, err
	}
	claim := &models.Claim{
		StudentID:   student.ID,
		StudentName: student.Name,
		TopicID:     topic.ID,
		TopicTitle:  topic.Title,
		Score:       score,
		SelectedAt:  time.Now().UTC(),
	}
	if err := e.registry.Claim(ctx, claim); err != nil {
		return nil, err
	}
	slog.Info("topic claimed", "student_id", student.ID, "topic_id", topic.ID)
	return claim, nil
}
