package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goalline/matchday/live"
	"github.com/goalline/matchday/models"
	"github.com/goalline/matchday/repositories"
)

const listScoreConcurrency = 8

type CreateMatchInput struct {
	Competition *string
	HomeTeamID  *int
	HomeName    string
	AwayTeamID  *int
	AwayName    string
	KickoffAt   time.Time
}

type UpdateMatchInput struct {
	Competition *string
	KickoffAt   *time.Time
}

type MatchListFilter struct {
	Status      *models.MatchStatus
	Competition *string
}

type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context, filter MatchListFilter) ([]*models.Match, error)
	UpdateMatch(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error)
	DeleteMatch(ctx context.Context, id int) error
}

type matchService struct {
	matchRepo repositories.MatchRepository
	eventRepo repositories.EventRepository
	teamRepo  repositories.TeamRepository
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
) MatchService {
	return &matchService{
		matchRepo: matchRepo,
		eventRepo: eventRepo,
		teamRepo:  teamRepo,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	home, err := s.resolveSide(ctx, input.HomeTeamID, input.HomeName)
	if err != nil {
		return nil, err
	}
	away, err := s.resolveSide(ctx, input.AwayTeamID, input.AwayName)
	if err != nil {
		return nil, err
	}
	if home.Name == "" || away.Name == "" {
		return nil, ErrMatchNameRequired
	}

	kickoff := input.KickoffAt
	if kickoff.IsZero() {
		kickoff = time.Now().UTC()
	}

	match := &models.Match{
		Competition: input.Competition,
		HomeTeam:    home,
		AwayTeam:    away,
		Status:      models.MatchStatusScheduled,
		// Матчи, заведённые здесь, всегда идут с часами; advisory-minute
		// без часов — только у записей внешнего происхождения.
		Clock:     &models.MatchClock{},
		KickoffAt: kickoff,
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchTeamInvalid) {
			return nil, ErrMatchTeamInvalid
		}
		return nil, fmt.Errorf("%w: %w", ErrMatchCreationFailed, err)
	}
	return match, nil
}

// resolveSide снимает снимок имени и эмблемы команды на момент создания матча.
// Сторона без team_id — внешняя, живёт только как текстовое имя.
func (s *matchService) resolveSide(ctx context.Context, teamID *int, name string) (models.MatchSide, error) {
	side := models.MatchSide{TeamID: teamID, Name: strings.TrimSpace(name)}
	if teamID == nil {
		return side, nil
	}

	team, err := s.teamRepo.GetByID(ctx, *teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return side, ErrMatchTeamInvalid
		}
		return side, fmt.Errorf("failed to resolve team %d: %w", *teamID, err)
	}
	if side.Name == "" {
		side.Name = team.Name
	}
	side.CrestURL = team.CrestURL
	return side, nil
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	events, err := s.eventRepo.ListByMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for match %d: %w", id, err)
	}
	match.Events = events
	score := live.DeriveScore(events)
	match.Score = &score
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, filter MatchListFilter) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx, filter.Status, filter.Competition)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	// Счёт нигде не хранится, поэтому для списка он выводится из логов
	// событий каждого матча параллельно.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listScoreConcurrency)
	for _, match := range matches {
		match := match
		g.Go(func() error {
			events, err := s.eventRepo.ListByMatch(gctx, match.ID)
			if err != nil {
				return fmt.Errorf("failed to list events for match %d: %w", match.ID, err)
			}
			score := live.DeriveScore(events)
			match.Score = &score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if matches == nil {
		matches = []*models.Match{}
	}
	return matches, nil
}

func (s *matchService) UpdateMatch(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	if input.Competition != nil {
		match.Competition = input.Competition
	}
	if input.KickoffAt != nil {
		match.KickoffAt = *input.KickoffAt
	}

	if err := s.matchRepo.UpdateDetails(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("%w (id: %d): %w", ErrMatchUpdateFailed, id, err)
	}
	return match, nil
}

func (s *matchService) DeleteMatch(ctx context.Context, id int) error {
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return nil
}
