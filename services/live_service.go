package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/goalline/matchday/live"
	"github.com/goalline/matchday/models"
	"github.com/goalline/matchday/repositories"
)

// liveGateway реализует live.Gateway поверх postgres-репозиториев. Права на
// мутации проверяются здесь, а не в ядре: ядро лишь заранее отсекает заведомо
// не-админские попытки по AuthContext.
type liveGateway struct {
	matchRepo repositories.MatchRepository
	eventRepo repositories.EventRepository
}

func NewLiveGateway(matchRepo repositories.MatchRepository, eventRepo repositories.EventRepository) live.Gateway {
	return &liveGateway{
		matchRepo: matchRepo,
		eventRepo: eventRepo,
	}
}

func (g *liveGateway) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := g.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, live.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	events, err := g.eventRepo.ListByMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for match %d: %w", id, err)
	}

	match.Events = events
	score := live.DeriveScore(events)
	match.Score = &score
	return match, nil
}

func (g *liveGateway) UpdateMatch(ctx context.Context, id int, update live.MatchUpdate, auth live.AuthContext) error {
	if !auth.Admin {
		return live.ErrForbidden
	}
	if update.Status == nil && update.Minute == nil && update.Clock == nil {
		return live.ErrBadRequest
	}

	current, err := g.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return live.ErrMatchNotFound
		}
		return fmt.Errorf("failed to get match %d: %w", id, err)
	}
	// Финальный свисток терминален: после FINISHED никакие live-поля не меняются.
	if current.Status == models.MatchStatusFinished {
		return live.ErrMatchFinished
	}

	fields := repositories.MatchUpdateFields{
		Status: update.Status,
		Minute: update.Minute,
		Clock:  update.Clock,
	}
	if err := g.matchRepo.UpdateLiveFields(ctx, id, fields); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return live.ErrMatchNotFound
		}
		return fmt.Errorf("failed to update match %d: %w", id, err)
	}
	return nil
}

func (g *liveGateway) AppendEvent(ctx context.Context, id int, event models.MatchEvent, auth live.AuthContext) (*models.MatchEvent, error) {
	if !auth.Admin {
		return nil, live.ErrForbidden
	}
	if event.Type == "" || event.Minute < 0 {
		return nil, live.ErrBadRequest
	}

	current, err := g.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, live.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	if current.Status == models.MatchStatusFinished {
		return nil, live.ErrMatchFinished
	}

	// Локальный оптимистичный id не сохраняется: сервер выдаёт свой.
	stored := event
	stored.ID = ""
	stored.MatchID = id
	stored.Pending = false

	if err := g.eventRepo.Append(ctx, &stored); err != nil {
		if errors.Is(err, repositories.ErrEventMatchInvalid) {
			return nil, live.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to append event to match %d: %w", id, err)
	}
	return &stored, nil
}

func (g *liveGateway) DeleteEvent(ctx context.Context, id int, eventID string, auth live.AuthContext) error {
	if !auth.Admin {
		return live.ErrForbidden
	}
	if eventID == "" {
		return live.ErrBadRequest
	}

	if err := g.eventRepo.Delete(ctx, id, eventID); err != nil {
		// Событие уже удалено другой вкладкой — ближайшая сверка всё выровняет.
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete event %s from match %d: %w", eventID, id, err)
	}
	return nil
}

func (g *liveGateway) ListEvents(ctx context.Context, id int) ([]models.MatchEvent, error) {
	events, err := g.eventRepo.ListByMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for match %d: %w", id, err)
	}
	return events, nil
}
