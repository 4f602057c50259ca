package live

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/goalline/matchday/models"
)

// Kind — канонический вид события таймлайна.
type Kind string

const (
	KindGoal         Kind = "goal"
	KindPenalty      Kind = "penalty"
	KindOwnGoal      Kind = "own_goal"
	KindYellowCard   Kind = "yellow_card"
	KindRedCard      Kind = "red_card"
	KindSecondYellow Kind = "second_yellow"
	KindSubstitution Kind = "substitution"
	KindInjury       Kind = "injury"
	KindFoul         Kind = "foul"
	KindCornerKick   Kind = "corner_kick"
	KindFreeKick     Kind = "free_kick"
	KindOffside      Kind = "offside"
	KindSave         Kind = "save"
	KindHalfTime     Kind = "half_time"
	KindMatchStart   Kind = "match_start"
	KindMatchEnd     Kind = "match_end"
	KindOther        Kind = "other"
)

// kindAliases покрывает все исторические схемы именования, встречавшиеся в
// хранилище. Ключи — в "сжатой" форме: нижний регистр, без пробелов,
// подчёркиваний и дефисов, так что "Yellow Card", "yellow_card" и
// "yellowcard" сходятся в одну запись.
var kindAliases = map[string]Kind{
	"goal":             KindGoal,
	"score":            KindGoal,
	"scored":           KindGoal,
	"penalty":          KindPenalty,
	"pen":              KindPenalty,
	"penaltygoal":      KindPenalty,
	"penaltyscored":    KindPenalty,
	"owngoal":          KindOwnGoal,
	"og":               KindOwnGoal,
	"yellow":           KindYellowCard,
	"yellowcard":       KindYellowCard,
	"booking":          KindYellowCard,
	"caution":          KindYellowCard,
	"red":              KindRedCard,
	"redcard":          KindRedCard,
	"sendingoff":       KindRedCard,
	"secondyellow":     KindSecondYellow,
	"secondyellowcard": KindSecondYellow,
	"yellowred":        KindSecondYellow,
	"sub":              KindSubstitution,
	"subst":            KindSubstitution,
	"substitute":       KindSubstitution,
	"substitution":     KindSubstitution,
	"injury":           KindInjury,
	"injured":          KindInjury,
	"foul":             KindFoul,
	"corner":           KindCornerKick,
	"cornerkick":       KindCornerKick,
	"freekick":         KindFreeKick,
	"offside":          KindOffside,
	"save":             KindSave,
	"halftime":         KindHalfTime,
	"ht":               KindHalfTime,
	"kickoff":          KindMatchStart,
	"matchstart":       KindMatchStart,
	"start":            KindMatchStart,
	"fulltime":         KindMatchEnd,
	"ft":               KindMatchEnd,
	"matchend":         KindMatchEnd,
	"end":              KindMatchEnd,
	"other":            KindOther,
}

var kindLabels = map[Kind]string{
	KindGoal:         "Goal",
	KindPenalty:      "Penalty Goal",
	KindOwnGoal:      "Own Goal",
	KindYellowCard:   "Yellow Card",
	KindRedCard:      "Red Card",
	KindSecondYellow: "Second Yellow Card",
	KindSubstitution: "Substitution",
	KindInjury:       "Injury",
	KindFoul:         "Foul",
	KindCornerKick:   "Corner Kick",
	KindFreeKick:     "Free Kick",
	KindOffside:      "Offside",
	KindSave:         "Save",
	KindHalfTime:     "Half Time",
	KindMatchStart:   "Kick Off",
	KindMatchEnd:     "Full Time",
	KindOther:        "Event",
}

// CanonicalKind сводит сырую строку типа события к каноническому виду.
// Неизвестная непустая строка возвращается как есть (считается собственным
// видом), пустая — KindOther. Тотальна: ошибок нет ни для какого входа.
func CanonicalKind(raw string) Kind {
	if strings.TrimSpace(raw) == "" {
		return KindOther
	}
	if k, ok := kindAliases[squash(raw)]; ok {
		return k
	}
	return Kind(raw)
}

func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// Label возвращает фиксированную подпись для канонического вида. Для
// неизвестного вида строим подпись из самой строки, чтобы таймлайн
// оставался читаемым.
func Label(k Kind) string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return humanize(string(k))
}

func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	words := strings.Fields(s)
	for i, w := range words {
		// Первая руна, не первый байт: типы приходят и не-ASCII.
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// IsNeutralMarker — события без стороны и без игрока (маркеры фаз матча).
func IsNeutralMarker(k Kind) bool {
	switch k {
	case KindHalfTime, KindMatchStart, KindMatchEnd:
		return true
	}
	return false
}

// IsScoring — виды, которые учитывает подсчёт счёта.
func IsScoring(k Kind) bool {
	switch k {
	case KindGoal, KindPenalty, KindOwnGoal:
		return true
	}
	return false
}

// SynthesizeDescription строит описание события, когда оно не задано формой:
// "{label} - {team} - {player}", для замены вместо игрока "{out} → {in}".
// Нейтральные маркеры описываются одной подписью.
func SynthesizeDescription(k Kind, teamName, player, playerOut, playerIn string) string {
	label := Label(k)

	var who string
	switch {
	case k == KindSubstitution && (playerOut != "" || playerIn != ""):
		who = fmt.Sprintf("%s → %s", playerOut, playerIn)
	case player != "":
		who = player
	}

	parts := []string{label}
	if teamName != "" {
		parts = append(parts, teamName)
	}
	if who != "" {
		parts = append(parts, who)
	}
	return strings.Join(parts, " - ")
}

// CanonicalizeEvent нормализует событие из хранилища: тип сводится к
// каноническому виду, отображаемое время и описание досчитываются, если
// источник их не хранит. Источник истины может содержать легаси-строки
// типов, поэтому вызывается на каждой сверке.
func CanonicalizeEvent(ev models.MatchEvent, homeName, awayName string) models.MatchEvent {
	k := CanonicalKind(ev.Type)
	ev.Type = string(k)
	if ev.Time == "" {
		ev.Time = FormatEventTime(ev.Minute * 60)
	}
	if ev.Description == "" {
		team := ""
		switch ev.Team {
		case models.SideHome:
			team = homeName
		case models.SideAway:
			team = awayName
		}
		ev.Description = SynthesizeDescription(k, team, ev.Player, ev.PlayerOut, ev.PlayerIn)
	}
	return ev
}

// FormatEventTime форматирует секунды в отображаемое "M:SS".
func FormatEventTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
