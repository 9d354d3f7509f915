package battle

import "strings"

// AllowedType is the only upstream battle type kept for statistics.
const AllowedType = "clanMate"

const (
	GameModeAll                  = "ALL"
	GameModeDraftCompetitive     = "Draft_Competitive"
	GameModePickMode             = "PickMode"
	GameModeClassicDecksFriendly = "ClassicDecks_Friendly"
	GameModeDraftMode            = "DraftMode"
	GameModeDuel1v1Friendly      = "Duel_1v1_Friendly"
)

// GameMode is a selectable mode with its display label.
type GameMode struct {
	Name  string
	Label string
}

var gameModes = []GameMode{
	{Name: GameModeAll, Label: "Alle Kampfmodi"},
	{Name: GameModeDraftCompetitive, Label: "Dreifach-Auswahlkampf"},
	{Name: GameModePickMode, Label: "Mega-Auswahlherausforderung"},
	{Name: GameModeClassicDecksFriendly, Label: "Klassikdeck-Kampf"},
	{Name: GameModeDraftMode, Label: "Auswahlkampf"},
	{Name: GameModeDuel1v1Friendly, Label: "Duell"},
}

var allowedModes = map[string]struct{}{
	GameModePickMode:             {},
	GameModeDraftMode:            {},
	GameModeDraftCompetitive:     {},
	GameModeClassicDecksFriendly: {},
	GameModeDuel1v1Friendly:      {},
}

// GameModes lists the "ALL" pseudo mode followed by the allowlisted 1v1 modes.
func GameModes() []GameMode {
	return append([]GameMode(nil), gameModes...)
}

// IsAllowed reports whether an upstream battle of this type and mode is tracked.
func IsAllowed(battleType, gameMode string) bool {
	if battleType != AllowedType {
		return false
	}
	_, ok := allowedModes[gameMode]
	return ok
}

// IsKnownGameMode accepts allowlisted modes and the "ALL" pseudo mode.
func IsKnownGameMode(mode string) bool {
	mode = strings.TrimSpace(mode)
	if mode == GameModeAll {
		return true
	}
	_, ok := allowedModes[mode]
	return ok
}
