package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/goalline/matchday/models"
)

var (
	ErrEventNotFound     = errors.New("match event not found")
	ErrEventMatchInvalid = errors.New("match event references unknown match")
)

// EventRepository — лог событий матча. Порядок выдачи — порядок вставки
// (seq), не минута: таймлайн показывает события так, как их вводили.
type EventRepository interface {
	Append(ctx context.Context, event *models.MatchEvent) error
	Delete(ctx context.Context, matchID int, eventID string) error
	ListByMatch(ctx context.Context, matchID int) ([]models.MatchEvent, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Append(ctx context.Context, event *models.MatchEvent) error {
	// Сервер назначает собственный id: клиентский был лишь оптимистичной меткой.
	event.ID = uuid.NewString()

	query := `
		INSERT INTO match_events
			(id, match_id, type, team, player, player_out, player_in, minute, display_time, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		event.ID,
		event.MatchID,
		event.Type,
		event.Team,
		event.Player,
		event.PlayerOut,
		event.PlayerIn,
		event.Minute,
		event.Time,
		event.Description,
	).Scan(&event.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			return ErrEventMatchInvalid
		}
		return err
	}
	return nil
}

func (r *postgresEventRepository) Delete(ctx context.Context, matchID int, eventID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM match_events WHERE id = $1 AND match_id = $2`, eventID, matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) ListByMatch(ctx context.Context, matchID int) ([]models.MatchEvent, error) {
	query := `
		SELECT id, match_id, type, team, player, player_out, player_in, minute, display_time, description, created_at
		FROM match_events
		WHERE match_id = $1
		ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.MatchEvent
	for rows.Next() {
		var ev models.MatchEvent
		err := rows.Scan(
			&ev.ID,
			&ev.MatchID,
			&ev.Type,
			&ev.Team,
			&ev.Player,
			&ev.PlayerOut,
			&ev.PlayerIn,
			&ev.Minute,
			&ev.Time,
			&ev.Description,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
