package live

import (
	"context"
	"errors"

	"github.com/goalline/matchday/models"
)

// Ошибки классификации ответов хранилища. Таймлайн по ним решает, как
// именно предупредить пользователя (см. Timeline.AddEvent).
var (
	// ErrBadRequest — хранилище отвергло мутацию как невалидную (аналог 400).
	ErrBadRequest = errors.New("match store rejected the request as invalid")
	// ErrForbidden — мутация без админских прав (аналог 403).
	ErrForbidden = errors.New("match store rejected the request: admin not recognized")
	// ErrMatchNotFound — матч не существует.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchFinished — управление часами и событиями после финального свистка.
	ErrMatchFinished = errors.New("match is already finished")
)

// AuthContext — непрозрачный для ядра контекст авторизации. Ядру важна
// только способность "admin": любая мутация проверяет её до похода в сеть.
type AuthContext struct {
	UserID int
	Admin  bool
}

// MatchUpdate — частичное обновление полей матча (merge-семантика:
// nil-поле не трогается).
type MatchUpdate struct {
	Status *models.MatchStatus
	Minute *int
	Clock  *models.MatchClock
}

// Gateway — граница персистентного хранилища матчей, единственный общий
// мутабельный ресурс. Ядро никогда не рассчитывает на эксклюзивный доступ:
// любое поле может измениться между чтением и записью.
type Gateway interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	UpdateMatch(ctx context.Context, id int, update MatchUpdate, auth AuthContext) error
	AppendEvent(ctx context.Context, id int, event models.MatchEvent, auth AuthContext) (*models.MatchEvent, error)
	DeleteEvent(ctx context.Context, id int, eventID string, auth AuthContext) error
	ListEvents(ctx context.Context, id int) ([]models.MatchEvent, error)
}
