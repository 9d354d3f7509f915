package battle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DuplicateWindow is the clock skew tolerated between two participants' logs of one match.
	DuplicateWindow = time.Second
	// DefaultPageSize bounds a battle listing when a page is requested.
	DefaultPageSize = 10
	// DeckSize is the number of cards in a 1v1 deck.
	DeckSize = 8
)

// ErrConflict means storage rejected a battle because a unique key already exists.
var ErrConflict = errors.New("battle conflicts with an existing record")

// Battle is one completed match between two clan members.
type Battle struct {
	ID       int64
	Time     time.Time
	Type     string
	GameMode string
}

// Participant is one side of a normalized upstream battle, before player ids are known.
type Participant struct {
	Tag              string
	Name             string
	Crowns           int
	ElixirLeaked     float64
	KingTowerHP      int
	PrincessTower1HP int
	PrincessTower2HP int
	Deck             []string
}

// Canonical is a normalized upstream battle that passed the type/mode allowlist.
type Canonical struct {
	Time     time.Time
	Type     string
	GameMode string
	Sides    [2]Participant
}

// Score is one side's persisted performance in a battle.
type Score struct {
	ID               int64
	BattleID         int64
	PlayerID         int64
	Crowns           int
	KingTowerHP      int
	PrincessTower1HP int
	PrincessTower2HP int
	ElixirLeaked     float64
	Deck             []string
}

// ScoreFor builds the score row of a participant once its player id is resolved.
func ScoreFor(p Participant, playerID int64) Score {
	return Score{
		PlayerID:         playerID,
		Crowns:           p.Crowns,
		KingTowerHP:      p.KingTowerHP,
		PrincessTower1HP: p.PrincessTower1HP,
		PrincessTower2HP: p.PrincessTower2HP,
		ElixirLeaked:     p.ElixirLeaked,
		Deck:             append([]string(nil), p.Deck...),
	}
}

func (b Battle) Validate() error {
	if b.Time.IsZero() {
		return fmt.Errorf("battle time is required")
	}
	if strings.TrimSpace(b.Type) == "" {
		return fmt.Errorf("battle type is required")
	}
	if strings.TrimSpace(b.GameMode) == "" {
		return fmt.Errorf("battle game mode is required")
	}
	return nil
}

// ValidateScores checks the two-sided shape every persisted battle must have.
func ValidateScores(scores [2]Score) error {
	for idx, s := range scores {
		if s.PlayerID <= 0 {
			return fmt.Errorf("score %d: player id is required", idx+1)
		}
		if s.Crowns < 0 || s.Crowns > 3 {
			return fmt.Errorf("score %d: crowns must be between 0 and 3, got %d", idx+1, s.Crowns)
		}
	}
	if scores[0].PlayerID == scores[1].PlayerID {
		return fmt.Errorf("scores must reference two distinct players, got %d twice", scores[0].PlayerID)
	}
	return nil
}

// Side is one player's half of a stored battle, joined with the player's identity.
type Side struct {
	PlayerID         int64
	PlayerTag        string
	PlayerName       string
	Crowns           int
	KingTowerHP      int
	PrincessTower1HP int
	PrincessTower2HP int
	ElixirLeaked     float64
	Deck             []string
}

// Record is a stored battle with both sides. When listed for a player tag,
// Sides[0] is that player.
type Record struct {
	ID       int64
	Time     time.Time
	Type     string
	GameMode string
	Sides    [2]Side
}

// Winner returns the index of the side with more crowns, or -1 on a draw.
func (r Record) Winner() int {
	switch {
	case r.Sides[0].Crowns > r.Sides[1].Crowns:
		return 0
	case r.Sides[1].Crowns > r.Sides[0].Crowns:
		return 1
	default:
		return -1
	}
}

// Filter selects stored battles. Every field is optional.
type Filter struct {
	Before      time.Time
	GameMode    string
	PlayerTag   string
	OpponentTag string
	Limit       int
}

// HasGameMode reports whether the filter restricts by mode; "ALL" and "" do not.
func (f Filter) HasGameMode() bool {
	mode := strings.TrimSpace(f.GameMode)
	return mode != "" && mode != GameModeAll
}
