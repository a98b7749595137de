// Package results persists finished matches and maintains ranked skill scores.
package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mcoot/pongarena/internal/dependencies/clock"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

// Config holds rating and read limits
type Config struct {
	WinPoints  int
	LossPoints int

	DefaultLeaderboardLimit int
	DefaultHistoryLimit     int
	MaxLimit                int
}

// DefaultConfig returns the default rating rules
func DefaultConfig() Config {
	return Config{
		WinPoints:               25,
		LossPoints:              20,
		DefaultLeaderboardLimit: 20,
		DefaultHistoryLimit:     20,
		MaxLimit:                100,
	}
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank       int            `json:"rank"`
	PlayerID   model.PlayerID `json:"player_id"`
	Nick       string         `json:"nick"`
	Avatar     string         `json:"avatar"`
	Faction    model.Faction  `json:"faction"`
	SkillScore int            `json:"skill_score"`
}

// Service records outcomes and serves leaderboard and history reads
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config
}

// New creates a results service
func New(storage storage.Storage, clk clock.Clock, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		storage: storage,
		clock:   clk,
		logger:  logger.With(slog.String("component", "results")),
		cfg:     cfg,
	}
}

// Record stores a finished match. Ranked matches move the winner up by
// WinPoints and the loser down by LossPoints, never below zero. Casual
// matches are stored without a rating change.
func (s *Service) Record(ctx context.Context, outcome model.MatchOutcome) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	result := &model.MatchResult{
		ID:         model.MatchResultID(id),
		Outcome:    outcome,
		RecordedAt: s.clock.Now(),
	}

	if outcome.Kind == model.MatchKindRanked {
		winnerDelta, err := s.adjust(ctx, outcome.WinnerID, s.cfg.WinPoints)
		if err != nil {
			return err
		}
		loserDelta, err := s.adjust(ctx, outcome.LoserID(), -s.cfg.LossPoints)
		if err != nil {
			s.logPartial(outcome, winnerDelta, 0, err)
			return err
		}
		if outcome.WinnerID == outcome.Participant1ID {
			result.SkillDelta1, result.SkillDelta2 = winnerDelta, loserDelta
		} else {
			result.SkillDelta1, result.SkillDelta2 = loserDelta, winnerDelta
		}
	}

	if err := s.storage.SaveMatchResult(ctx, result); err != nil {
		if result.SkillDelta1 != 0 || result.SkillDelta2 != 0 {
			s.logPartial(outcome, winnerDeltaOf(result, outcome), loserDeltaOf(result, outcome), err)
		}
		return fmt.Errorf("save match result: %w", err)
	}

	s.logger.Info("match recorded",
		slog.String("result_id", id),
		slog.String("match_id", string(outcome.MatchID)),
		slog.String("winner_id", string(outcome.WinnerID)),
		slog.Int("delta1", result.SkillDelta1),
		slog.Int("delta2", result.SkillDelta2))
	return nil
}

// logPartial reports rating changes that were applied although the match
// could not be fully recorded. Storage has no transaction spanning both
// identities and the result row.
func (s *Service) logPartial(outcome model.MatchOutcome, winnerDelta, loserDelta int, err error) {
	s.logger.Error("rating change partially applied",
		slog.String("match_id", string(outcome.MatchID)),
		slog.String("winner_id", string(outcome.WinnerID)),
		slog.String("loser_id", string(outcome.LoserID())),
		slog.Int("winner_delta", winnerDelta),
		slog.Int("loser_delta", loserDelta),
		slog.Any("error", err))
}

func winnerDeltaOf(result *model.MatchResult, outcome model.MatchOutcome) int {
	if outcome.WinnerID == outcome.Participant1ID {
		return result.SkillDelta1
	}
	return result.SkillDelta2
}

func loserDeltaOf(result *model.MatchResult, outcome model.MatchOutcome) int {
	if outcome.WinnerID == outcome.Participant1ID {
		return result.SkillDelta2
	}
	return result.SkillDelta1
}

// adjust applies delta and returns the change actually made. Identities
// that no longer exist, such as expired guests, are skipped.
func (s *Service) adjust(ctx context.Context, id model.PlayerID, delta int) (int, error) {
	before, err := s.storage.GetIdentity(ctx, id)
	if errors.Is(err, model.ErrPlayerNotFound) {
		s.logger.Warn("skipping rating change for missing identity", slog.String("player_id", string(id)))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	after, err := s.storage.AdjustSkillScore(ctx, id, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust skill score: %w", err)
	}
	return after - before.SkillScore, nil
}

// Leaderboard returns the top players by skill score with 1-based ranks
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	identities, err := s.storage.TopIdentities(ctx, s.clampLimit(limit, s.cfg.DefaultLeaderboardLimit))
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(identities))
	for i, identity := range identities {
		entries[i] = LeaderboardEntry{
			Rank:       i + 1,
			PlayerID:   identity.ID,
			Nick:       identity.Nick,
			Avatar:     identity.AvatarOrDefault(),
			Faction:    identity.Faction,
			SkillScore: identity.SkillScore,
		}
	}
	return entries, nil
}

// History returns a player's recent results, newest first
func (s *Service) History(ctx context.Context, id model.PlayerID, limit int) ([]*model.MatchResult, error) {
	return s.storage.GetMatchResults(ctx, id, s.clampLimit(limit, s.cfg.DefaultHistoryLimit))
}

func (s *Service) clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
