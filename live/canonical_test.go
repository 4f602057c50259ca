package live

import (
	"testing"

	"github.com/goalline/matchday/models"
)

func TestCanonicalKindAliases(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{"goal", KindGoal},
		{"Goal", KindGoal},
		{"scored", KindGoal},
		{"yellow", KindYellowCard},
		{"yellowcard", KindYellowCard},
		{"Yellow Card", KindYellowCard},
		{"YELLOW_CARD", KindYellowCard},
		{"booking", KindYellowCard},
		{"owngoal", KindOwnGoal},
		{"own goal", KindOwnGoal},
		{"og", KindOwnGoal},
		{"pen", KindPenalty},
		{"penalty goal", KindPenalty},
		{"cornerkick", KindCornerKick},
		{"corner", KindCornerKick},
		{"second yellow", KindSecondYellow},
		{"yellow-red", KindSecondYellow},
		{"sub", KindSubstitution},
		{"Substitution", KindSubstitution},
		{"halftime", KindHalfTime},
		{"HT", KindHalfTime},
		{"fulltime", KindMatchEnd},
		{"kick off", KindMatchStart},
		{"free kick", KindFreeKick},
		{"sending off", KindRedCard},
	}
	for _, tc := range cases {
		if got := CanonicalKind(tc.raw); got != tc.want {
			t.Errorf("CanonicalKind(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestCanonicalKindUnknownPassesThrough(t *testing.T) {
	// Неизвестная непустая строка — собственный вид, без изменений.
	if got := CanonicalKind("var_review"); got != Kind("var_review") {
		t.Errorf("unknown kind changed: got %q", got)
	}
	if got := CanonicalKind("Weather Delay"); got != Kind("Weather Delay") {
		t.Errorf("unknown kind changed: got %q", got)
	}
}

func TestCanonicalKindEmpty(t *testing.T) {
	if got := CanonicalKind(""); got != KindOther {
		t.Errorf("CanonicalKind(\"\") = %q, want %q", got, KindOther)
	}
	if got := CanonicalKind("   "); got != KindOther {
		t.Errorf("CanonicalKind(blank) = %q, want %q", got, KindOther)
	}
}

func TestLabel(t *testing.T) {
	if got := Label(KindPenalty); got != "Penalty Goal" {
		t.Errorf("Label(penalty) = %q", got)
	}
	if got := Label(KindMatchEnd); got != "Full Time" {
		t.Errorf("Label(match_end) = %q", got)
	}
	// Неизвестный вид получает читаемую подпись из самой строки.
	if got := Label(Kind("var_review")); got != "Var Review" {
		t.Errorf("Label(var_review) = %q", got)
	}
	// Не-ASCII первая буква капитализируется руной, а не байтом.
	if got := Label(Kind("übergriff_des_schiedsrichters")); got != "Übergriff Des Schiedsrichters" {
		t.Errorf("Label(übergriff...) = %q", got)
	}
}

func TestSynthesizeDescription(t *testing.T) {
	got := SynthesizeDescription(KindGoal, "Liverpool", "Salah", "", "")
	if got != "Goal - Liverpool - Salah" {
		t.Errorf("goal description = %q", got)
	}

	got = SynthesizeDescription(KindSubstitution, "Liverpool", "", "Firmino", "Jota")
	if got != "Substitution - Liverpool - Firmino → Jota" {
		t.Errorf("substitution description = %q", got)
	}

	// Нейтральный маркер: ни стороны, ни игрока.
	got = SynthesizeDescription(KindHalfTime, "", "", "", "")
	if got != "Half Time" {
		t.Errorf("half time description = %q", got)
	}
}

func TestCanonicalizeEventLegacyType(t *testing.T) {
	ev := models.MatchEvent{
		ID:     "e1",
		Type:   "yellowcard",
		Team:   models.SideAway,
		Player: "Casemiro",
		Minute: 33,
	}
	got := CanonicalizeEvent(ev, "Arsenal", "Manchester United")
	if got.Type != string(KindYellowCard) {
		t.Errorf("type = %q", got.Type)
	}
	if got.Time != "33:00" {
		t.Errorf("time = %q", got.Time)
	}
	if got.Description != "Yellow Card - Manchester United - Casemiro" {
		t.Errorf("description = %q", got.Description)
	}
}

func TestFormatEventTime(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{605, "10:05"},
		{-3, "0:00"},
		{2700, "45:00"},
	}
	for _, tc := range cases {
		if got := FormatEventTime(tc.seconds); got != tc.want {
			t.Errorf("FormatEventTime(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
