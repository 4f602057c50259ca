package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goalline/matchday/models"
	"github.com/goalline/matchday/repositories"
	"github.com/goalline/matchday/storage"
)

type CreateTeamInput struct {
	Name      string  `json:"name"`
	ShortName *string `json:"short_name"`
}

type UpdateTeamInput struct {
	Name      string  `json:"name"`
	ShortName *string `json:"short_name"`
}

type CreatePlayerInput struct {
	Name     string  `json:"name"`
	Position *string `json:"position"`
	Number   *int    `json:"number"`
}

type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	GetTeamByID(ctx context.Context, id int) (*models.Team, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
	UpdateTeam(ctx context.Context, id int, input UpdateTeamInput) (*models.Team, error)
	DeleteTeam(ctx context.Context, id int) error
	UploadCrest(ctx context.Context, id int, contentType string, file io.Reader) (*models.Team, error)
	AddPlayer(ctx context.Context, teamID int, input CreatePlayerInput) (*models.Player, error)
	RemovePlayer(ctx context.Context, playerID int) error
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	team := &models.Team{
		Name:      name,
		ShortName: input.ShortName,
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) GetTeamByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}

	players, err := s.playerRepo.ListByTeam(ctx, id)
	if err != nil {
		// Состав — вторичная информация, карточка команды живёт и без него.
		s.logger.WarnContext(ctx, "Failed to load team roster",
			slog.Int("team_id", id), slog.Any("error", err))
		players = []models.Player{}
	}
	team.Players = players
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context) ([]*models.Team, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	return teams, nil
}

func (s *teamService) UpdateTeam(ctx context.Context, id int, input UpdateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	team := &models.Team{
		ID:        id,
		Name:      name,
		ShortName: input.ShortName,
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		default:
			return nil, fmt.Errorf("failed to update team %d: %w", id, err)
		}
	}
	return s.GetTeamByID(ctx, id)
}

func (s *teamService) DeleteTeam(ctx context.Context, id int) error {
	if err := s.teamRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to delete team %d: %w", id, err)
	}
	return nil
}

func (s *teamService) UploadCrest(ctx context.Context, id int, contentType string, file io.Reader) (*models.Team, error) {
	if _, err := s.teamRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, ErrCrestInvalidType
	}

	key := fmt.Sprintf("crests/team_%d%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrestUploadFailed, err)
	}

	if err := s.teamRepo.UpdateCrest(ctx, id, &result.Key, &result.URL); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to store crest reference for team %d: %w", id, err)
	}
	return s.GetTeamByID(ctx, id)
}

func (s *teamService) AddPlayer(ctx context.Context, teamID int, input CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrValidationFailed
	}
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	player := &models.Player{
		TeamID:   teamID,
		Name:     name,
		Position: input.Position,
		Number:   input.Number,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *teamService) RemovePlayer(ctx context.Context, playerID int) error {
	if err := s.playerRepo.Delete(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to delete player %d: %w", playerID, err)
	}
	return nil
}

func extensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	default:
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
