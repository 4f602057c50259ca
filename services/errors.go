package services

import "errors"

// Общие ошибки сервисного слоя, на которые опирается маппинг в HTTP-статусы
// (см. handlers.mapServiceErrorToHTTP).
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// Аутентификация
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrEmailConflict      = errors.New("email address is already in use")

	// Матчи
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchNameRequired   = errors.New("both team names are required")
	ErrMatchTeamInvalid    = errors.New("match references unknown team")
	ErrMatchUpdateFailed   = errors.New("failed to update match")
	ErrMatchCreationFailed = errors.New("failed to create match")

	// Команды и игроки
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameRequired = errors.New("team name is required")
	ErrTeamNameConflict = errors.New("team name is already in use")
	ErrPlayerNotFound   = errors.New("player not found")

	// Загрузка эмблем
	ErrCrestInvalidType  = errors.New("unsupported crest content type")
	ErrCrestUploadFailed = errors.New("failed to upload crest")
)
