package service

import (
	"context"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/application/port"
)

// Insight sources
const (
	InsightSourceAI    = "ai"
	InsightSourceRules = "rules"
	InsightSourceNone  = "none"
)

// InsightReport is the insights page payload
type InsightReport struct {
	Source   string              `json:"source"`
	Summary  []analytics.Insight `json:"summary"`
	Insights []analytics.Insight `json:"insights"`
	Digest   analytics.Digest    `json:"digest"`
}

// InsightService produces recommendations for a user's spending
type InsightService interface {
	Generate(ctx context.Context, userID string) (*InsightReport, error)
}

type insightServiceImpl struct {
	analytics AnalyticsService
	generator port.TextGenerator
	logger    Logger
	now       Clock
}

// NewInsightService creates a new InsightService. generator may be nil, in
// which case only rule-based insights are produced.
func NewInsightService(analyticsService AnalyticsService, generator port.TextGenerator, logger Logger) InsightService {
	return &insightServiceImpl{
		analytics: analyticsService,
		generator: generator,
		logger:    logger,
		now:       utcNow,
	}
}

// Generate asks the text generator for insights on the user's records and
// falls back to rule-based insights when it is unavailable or returns
// nothing usable. AI failures never fail the request.
func (s *insightServiceImpl) Generate(ctx context.Context, userID string) (*InsightReport, error) {
	records, err := s.analytics.Records(ctx, userID)
	if err != nil {
		return nil, err
	}

	digest := analytics.BuildDigest(records)
	report := &InsightReport{
		Source:   InsightSourceNone,
		Summary:  analytics.SummaryInsights(digest),
		Insights: []analytics.Insight{},
		Digest:   digest,
	}
	if digest.Summary.TotalCount == 0 {
		return report, nil
	}

	if insights := s.generate(ctx, userID, digest); len(insights) > 0 {
		report.Source = InsightSourceAI
		report.Insights = insights
		return report, nil
	}

	report.Source = InsightSourceRules
	report.Insights = analytics.RuleInsights(digest)
	return report, nil
}

func (s *insightServiceImpl) generate(ctx context.Context, userID string, digest analytics.Digest) []analytics.Insight {
	if s.generator == nil {
		return nil
	}

	prompt, err := insightPrompt(digest)
	if err != nil {
		s.logger.Error("Failed to build insight prompt", "error", err)
		return nil
	}

	text, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Error("Insight generation failed, using rule insights", "error", err, "user_id", userID)
		return nil
	}

	insights := analytics.ParseInsights(text, analytics.NewSeededRandom(s.now().UnixNano()))
	if len(insights) == 0 {
		s.logger.Info("Generated text had no insights, using rule insights", "user_id", userID)
	}
	return insights
}
