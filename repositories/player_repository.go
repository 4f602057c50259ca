package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/goalline/matchday/models"
)

var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrPlayerTeamInvalid = errors.New("player references unknown team")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	ListByTeam(ctx context.Context, teamID int) ([]models.Player, error)
	Delete(ctx context.Context, id int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (team_id, name, position, number)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		player.TeamID,
		player.Name,
		player.Position,
		player.Number,
	).Scan(&player.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrPlayerTeamInvalid
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) ListByTeam(ctx context.Context, teamID int) ([]models.Player, error) {
	query := `
		SELECT id, team_id, name, position, number
		FROM players
		WHERE team_id = $1
		ORDER BY number ASC NULLS LAST, name ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		var position sql.NullString
		var number sql.NullInt64
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &position, &number); err != nil {
			return nil, err
		}
		p.Position = nullStringPtr(position)
		p.Number = nullIntPtr(number)
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
