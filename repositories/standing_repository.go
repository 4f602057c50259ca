package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goalline/matchday/models"
)

type StandingRepository interface {
	List(ctx context.Context) ([]models.Standing, error)
	// ReplaceAll атомарно заменяет всю таблицу результатом пересчёта.
	ReplaceAll(ctx context.Context, standings []models.Standing) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) List(ctx context.Context) ([]models.Standing, error) {
	query := `
		SELECT team_id, team_name, played, won, drawn, lost, goals_for, goals_against, points
		FROM standings
		ORDER BY points DESC, (goals_for - goals_against) DESC, goals_for DESC, team_name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []models.Standing
	for rows.Next() {
		var s models.Standing
		err := rows.Scan(&s.TeamID, &s.TeamName, &s.Played, &s.Won, &s.Drawn, &s.Lost,
			&s.GoalsFor, &s.GoalsAgainst, &s.Points)
		if err != nil {
			return nil, err
		}
		s.GoalDiff = s.GoalsFor - s.GoalsAgainst
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (r *postgresStandingRepository) ReplaceAll(ctx context.Context, standings []models.Standing) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin standings replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM standings`); err != nil {
		return fmt.Errorf("clear standings: %w", err)
	}

	insert := `
		INSERT INTO standings
			(team_id, team_name, played, won, drawn, lost, goals_for, goals_against, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, s := range standings {
		_, err := tx.ExecContext(ctx, insert,
			s.TeamID, s.TeamName, s.Played, s.Won, s.Drawn, s.Lost,
			s.GoalsFor, s.GoalsAgainst, s.Points)
		if err != nil {
			return fmt.Errorf("insert standing for team %d: %w", s.TeamID, err)
		}
	}

	return tx.Commit()
}
