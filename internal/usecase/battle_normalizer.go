package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
)

// BattleTimeLayout is the upstream battleTime format, e.g. 20240301T120000.000Z.
const BattleTimeLayout = "20060102T150405.000Z"

// NormalizeBattle maps one upstream record to a canonical battle. Records
// outside the type/mode allowlist return ok=false and no error. Malformed
// records return an error.
func NormalizeBattle(raw ExternalBattle) (battle.Canonical, bool, error) {
	battleType := strings.TrimSpace(raw.Type)
	gameMode := strings.TrimSpace(raw.GameMode)
	if !battle.IsAllowed(battleType, gameMode) {
		return battle.Canonical{}, false, nil
	}

	at, err := time.Parse(BattleTimeLayout, strings.TrimSpace(raw.BattleTime))
	if err != nil {
		return battle.Canonical{}, false, fmt.Errorf("%w: parse battle time %q: %v", ErrInvalidInput, raw.BattleTime, err)
	}
	if len(raw.Team) == 0 {
		return battle.Canonical{}, false, fmt.Errorf("%w: battle at %s has no team entry", ErrInvalidInput, raw.BattleTime)
	}
	if len(raw.Opponent) == 0 {
		return battle.Canonical{}, false, fmt.Errorf("%w: battle at %s has no opponent entry", ErrInvalidInput, raw.BattleTime)
	}

	return battle.Canonical{
		Time:     at.UTC().Truncate(time.Second),
		Type:     battleType,
		GameMode: gameMode,
		Sides: [2]battle.Participant{
			normalizeParticipant(raw.Team[0]),
			normalizeParticipant(raw.Opponent[0]),
		},
	}, true, nil
}

func normalizeParticipant(raw ExternalParticipant) battle.Participant {
	princess1, princess2 := princessTowers(raw.PrincessTowersHitPoints)
	deck := make([]string, 0, len(raw.Cards))
	for _, name := range raw.Cards {
		deck = append(deck, strings.TrimSpace(name))
	}

	return battle.Participant{
		Tag:              strings.TrimSpace(raw.Tag),
		Name:             strings.TrimSpace(raw.Name),
		Crowns:           raw.Crowns,
		ElixirLeaked:     raw.ElixirLeaked,
		KingTowerHP:      raw.KingTowerHitPoints,
		PrincessTower1HP: princess1,
		PrincessTower2HP: princess2,
		Deck:             deck,
	}
}

// princessTowers pads the upstream list to two towers. A missing entry is a destroyed tower.
func princessTowers(hp []int) (int, int) {
	switch len(hp) {
	case 0:
		return 0, 0
	case 1:
		return hp[0], 0
	default:
		return hp[0], hp[1]
	}
}
