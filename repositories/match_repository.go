package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/goalline/matchday/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchTeamInvalid = errors.New("match team reference conflict or invalid")
)

// MatchUpdateFields — частичное обновление live-полей матча: nil-поле не
// трогается (merge-семантика на уровне документа матча).
type MatchUpdateFields struct {
	Status *models.MatchStatus
	Minute *int
	Clock  *models.MatchClock
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	List(ctx context.Context, statusFilter *models.MatchStatus, competitionFilter *string) ([]*models.Match, error)
	UpdateLiveFields(ctx context.Context, id int, fields MatchUpdateFields) error
	UpdateDetails(ctx context.Context, match *models.Match) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, competition,
	home_team_id, home_name, home_crest_url,
	away_team_id, away_name, away_crest_url,
	status, minute,
	clock_running, clock_elapsed, clock_started_at,
	kickoff_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches
			(competition, home_team_id, home_name, home_crest_url,
			 away_team_id, away_name, away_crest_url,
			 status, minute, clock_running, clock_elapsed, clock_started_at, kickoff_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	var clockRunning sql.NullBool
	var clockElapsed sql.NullInt64
	var clockStartedAt sql.NullTime
	if match.Clock != nil {
		clockRunning = sql.NullBool{Bool: match.Clock.Running, Valid: true}
		clockElapsed = sql.NullInt64{Int64: int64(match.Clock.Elapsed), Valid: true}
		if match.Clock.StartedAt != nil {
			clockStartedAt = sql.NullTime{Time: *match.Clock.StartedAt, Valid: true}
		}
	}

	err := r.db.QueryRowContext(ctx, query,
		match.Competition,
		match.HomeTeam.TeamID,
		match.HomeTeam.Name,
		match.HomeTeam.CrestURL,
		match.AwayTeam.TeamID,
		match.AwayTeam.Name,
		match.AwayTeam.CrestURL,
		match.Status,
		match.Minute,
		clockRunning,
		clockElapsed,
		clockStartedAt,
		match.KickoffAt,
	).Scan(&match.ID, &match.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" { // foreign_key_violation
			return ErrMatchTeamInvalid
		}
		return err
	}
	return nil
}

func scanMatch(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Match, error) {
	match := &models.Match{}
	var competition sql.NullString
	var homeTeamID, awayTeamID sql.NullInt64
	var homeCrest, awayCrest sql.NullString
	var clockRunning sql.NullBool
	var clockElapsed sql.NullInt64
	var clockStartedAt sql.NullTime

	err := scanner.Scan(
		&match.ID,
		&competition,
		&homeTeamID,
		&match.HomeTeam.Name,
		&homeCrest,
		&awayTeamID,
		&match.AwayTeam.Name,
		&awayCrest,
		&match.Status,
		&match.Minute,
		&clockRunning,
		&clockElapsed,
		&clockStartedAt,
		&match.KickoffAt,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	match.Competition = nullStringPtr(competition)
	match.HomeTeam.TeamID = nullIntPtr(homeTeamID)
	match.HomeTeam.CrestURL = nullStringPtr(homeCrest)
	match.AwayTeam.TeamID = nullIntPtr(awayTeamID)
	match.AwayTeam.CrestURL = nullStringPtr(awayCrest)

	// Часы есть только у матчей, заведённых админом напрямую.
	if clockRunning.Valid {
		match.Clock = &models.MatchClock{
			Running:   clockRunning.Bool,
			Elapsed:   int(clockElapsed.Int64),
			StartedAt: nullTimePtr(clockStartedAt),
		}
	}
	return match, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, statusFilter *models.MatchStatus, competitionFilter *string) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE 1=1`)

	args := []interface{}{}
	placeholderIndex := 1

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
		placeholderIndex++
	}
	if competitionFilter != nil {
		queryBuilder.WriteString(" AND competition = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *competitionFilter)
		placeholderIndex++
	}

	queryBuilder.WriteString(" ORDER BY kickoff_at DESC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// UpdateLiveFields обновляет только переданные live-поля. Остальные колонки
// не трогаются: матч — общий ресурс, и между чтением и записью его могли
// поменять другие вьюхи.
func (r *postgresMatchRepository) UpdateLiveFields(ctx context.Context, id int, fields MatchUpdateFields) error {
	var setClauses []string
	args := []interface{}{}
	placeholderIndex := 1

	addSet := func(column string, value interface{}) {
		setClauses = append(setClauses, column+" = $"+strconv.Itoa(placeholderIndex))
		args = append(args, value)
		placeholderIndex++
	}

	if fields.Status != nil {
		addSet("status", *fields.Status)
	}
	if fields.Minute != nil {
		addSet("minute", *fields.Minute)
	}
	if fields.Clock != nil {
		addSet("clock_running", fields.Clock.Running)
		addSet("clock_elapsed", fields.Clock.Elapsed)
		var startedAt sql.NullTime
		if fields.Clock.StartedAt != nil {
			startedAt = sql.NullTime{Time: *fields.Clock.StartedAt, Valid: true}
		}
		addSet("clock_started_at", startedAt)
	}

	if len(setClauses) == 0 {
		return nil
	}

	query := "UPDATE matches SET " + strings.Join(setClauses, ", ") +
		" WHERE id = $" + strconv.Itoa(placeholderIndex)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateDetails(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches
		SET competition = $1,
			home_team_id = $2, home_name = $3, home_crest_url = $4,
			away_team_id = $5, away_name = $6, away_crest_url = $7,
			kickoff_at = $8
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		match.Competition,
		match.HomeTeam.TeamID,
		match.HomeTeam.Name,
		match.HomeTeam.CrestURL,
		match.AwayTeam.TeamID,
		match.AwayTeam.Name,
		match.AwayTeam.CrestURL,
		match.KickoffAt,
		match.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrMatchTeamInvalid
		}
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
