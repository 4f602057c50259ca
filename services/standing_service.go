package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goalline/matchday/live"
	"github.com/goalline/matchday/models"
	"github.com/goalline/matchday/repositories"
)

const recomputeConcurrency = 8

type StandingService interface {
	List(ctx context.Context) ([]models.Standing, error)
	// Recompute строит таблицу заново из логов событий всех завершённых
	// матчей и атомарно заменяет кеш. Матчи внешних команд (без team_id)
	// в таблицу не попадают.
	Recompute(ctx context.Context) error
}

type standingService struct {
	standingRepo repositories.StandingRepository
	matchRepo    repositories.MatchRepository
	eventRepo    repositories.EventRepository
	teamRepo     repositories.TeamRepository
	logger       *slog.Logger
}

func NewStandingService(
	standingRepo repositories.StandingRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) StandingService {
	return &standingService{
		standingRepo: standingRepo,
		matchRepo:    matchRepo,
		eventRepo:    eventRepo,
		teamRepo:     teamRepo,
		logger:       logger,
	}
}

func (s *standingService) List(ctx context.Context) ([]models.Standing, error) {
	standings, err := s.standingRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	if standings == nil {
		standings = []models.Standing{}
	}
	return standings, nil
}

type matchResult struct {
	homeTeamID *int
	awayTeamID *int
	score      models.Score
}

func (s *standingService) Recompute(ctx context.Context) error {
	finished := models.MatchStatusFinished
	matches, err := s.matchRepo.List(ctx, &finished, nil)
	if err != nil {
		return fmt.Errorf("failed to list finished matches: %w", err)
	}

	var (
		mu      sync.Mutex
		results []matchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)
	for _, match := range matches {
		match := match
		g.Go(func() error {
			events, err := s.eventRepo.ListByMatch(gctx, match.ID)
			if err != nil {
				return fmt.Errorf("failed to list events for match %d: %w", match.ID, err)
			}
			res := matchResult{
				homeTeamID: match.HomeTeam.TeamID,
				awayTeamID: match.AwayTeam.TeamID,
				score:      live.DeriveScore(events),
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	rows := make(map[int]*models.Standing, len(teams))
	for _, team := range teams {
		rows[team.ID] = &models.Standing{TeamID: team.ID, TeamName: team.Name}
	}

	for _, res := range results {
		applyResult(rows, res.homeTeamID, res.score.Home, res.score.Away)
		applyResult(rows, res.awayTeamID, res.score.Away, res.score.Home)
	}

	standings := make([]models.Standing, 0, len(rows))
	for _, row := range rows {
		row.GoalDiff = row.GoalsFor - row.GoalsAgainst
		row.Points = row.Won*3 + row.Drawn
		standings = append(standings, *row)
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamName < b.TeamName
	})

	if err := s.standingRepo.ReplaceAll(ctx, standings); err != nil {
		return fmt.Errorf("failed to replace standings: %w", err)
	}

	s.logger.InfoContext(ctx, "Standings recomputed",
		slog.Int("matches", len(results)), slog.Int("teams", len(standings)))
	return nil
}

func applyResult(rows map[int]*models.Standing, teamID *int, scored, conceded int) {
	if teamID == nil {
		return
	}
	row, ok := rows[*teamID]
	if !ok {
		// Команда удалена после завершения матча: строка для неё не строится.
		return
	}
	row.Played++
	row.GoalsFor += scored
	row.GoalsAgainst += conceded
	switch {
	case scored > conceded:
		row.Won++
	case scored == conceded:
		row.Drawn++
	default:
		row.Lost++
	}
}
