package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"github.com/rs/zerolog"
)

// GlobalStats is the percentile-comparison view for one test.
type GlobalStats struct {
	Rank          int     `json:"rank"`
	Percentile    float64 `json:"percentile"`
	TotalAttempts int     `json:"total_attempts"`
	TopScore      float64 `json:"top_score"`
	AvgScore      float64 `json:"avg_score"`
	// Synthetic marks stats estimated locally because the remote provider
	// was absent or unreachable. Degrading to an estimate is part of the
	// contract, not an error case.
	Synthetic bool `json:"synthetic"`
}

// StatsService talks to the optional remote stats provider and falls back
// to a local estimate computed from the attempt history.
type StatsService struct {
	cfg         *config.Config
	attemptRepo *repository.AttemptRepository
	client      *http.Client
	log         zerolog.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(cfg *config.Config, attemptRepo *repository.AttemptRepository, log zerolog.Logger) *StatsService {
	return &StatsService{
		cfg:         cfg,
		attemptRepo: attemptRepo,
		client:      &http.Client{Timeout: 5 * time.Second},
		log:         log.With().Str("component", "stats_service").Logger(),
	}
}

// SubmitAttempt pushes a completed score to the remote provider.
// Fire-and-forget: failures are logged and dropped.
func (s *StatsService) SubmitAttempt(ctx context.Context, testName string, score float64, accuracy int, userID int) {
	if s.cfg.StatsEndpoint == "" {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"test_name": testName,
		"score":     score,
		"accuracy":  accuracy,
		"user_id":   userID,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.StatsEndpoint+"/attempts", bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Msg("Remote stats submission failed")
		return
	}
	resp.Body.Close()
}

// GetGlobalStats returns the comparison stats for a test. The remote
// provider is tried first; absence or failure degrades to a synthetic
// estimate built from the local history.
func (s *StatsService) GetGlobalStats(ctx context.Context, testName string, yourScore float64) (*GlobalStats, error) {
	if s.cfg.StatsEndpoint != "" {
		stats, err := s.fetchRemote(ctx, testName, yourScore)
		if err == nil {
			return stats, nil
		}
		s.log.Warn().Err(err).Str("test_name", testName).Msg("Remote stats unavailable, using local estimate")
	}
	return s.syntheticStats(ctx, testName, yourScore)
}

func (s *StatsService) fetchRemote(ctx context.Context, testName string, yourScore float64) (*GlobalStats, error) {
	u := fmt.Sprintf("%s/stats?test_name=%s&score=%g",
		s.cfg.StatsEndpoint, url.QueryEscape(testName), yourScore)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats provider returned %d", resp.StatusCode)
	}

	var stats GlobalStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// syntheticStats estimates rank and percentile from locally stored attempts
// of the same test. With no history at all it reports a single-attempt
// baseline rather than failing.
func (s *StatsService) syntheticStats(ctx context.Context, testName string, yourScore float64) (*GlobalStats, error) {
	agg, err := s.attemptRepo.AggregateByTest(ctx, testName, yourScore)
	if err != nil {
		return nil, fmt.Errorf("aggregate local attempts: %w", err)
	}

	if agg.Attempts == 0 {
		return &GlobalStats{
			Rank:          1,
			Percentile:    100,
			TotalAttempts: 1,
			TopScore:      yourScore,
			AvgScore:      yourScore,
			Synthetic:     true,
		}, nil
	}

	percentile := float64(agg.Attempts-agg.Above) / float64(agg.Attempts) * 100
	return &GlobalStats{
		Rank:          agg.Above + 1,
		Percentile:    math.Round(percentile*100) / 100,
		TotalAttempts: agg.Attempts,
		TopScore:      agg.TopScore,
		AvgScore:      math.Round(agg.AvgScore*100) / 100,
		Synthetic:     true,
	}, nil
}
