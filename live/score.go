package live

import "github.com/goalline/matchday/models"

// DeriveScore сворачивает лог событий в счёт {home, away}. Счёт нигде не
// хранится — выводится на каждом чтении, так что инвариант "счёт == сумма
// голевых событий" держится всегда, а не только после записи.
//
// Правила: goal и penalty добавляют гол своей стороне, own_goal — чужой.
// Остальные виды игнорируются. Событие с пустой или неизвестной стороной
// не добавляет гол никому — это осознанный мягкий дефолт, а не ошибка
// (см. DESIGN.md про неатрибутированные голы).
//
// Свёртка коммутативна: перестановка списка событий не меняет результат.
func DeriveScore(events []models.MatchEvent) models.Score {
	var score models.Score
	for _, ev := range events {
		kind := CanonicalKind(ev.Type)
		switch kind {
		case KindGoal, KindPenalty:
			switch ev.Team {
			case models.SideHome:
				score.Home++
			case models.SideAway:
				score.Away++
			}
		case KindOwnGoal:
			switch ev.Team {
			case models.SideHome:
				score.Away++
			case models.SideAway:
				score.Home++
			}
		}
	}
	return score
}
