package player

import (
	"fmt"
	"math"
	"strings"
)

// Player is a tracked clan member.
type Player struct {
	ID                 int64
	Tag                string
	Name               string
	BattleCount        int
	WinCount           int
	ThreeCrownWinCount int
}

// Member is a clan member as reported by the upstream clan roster.
type Member struct {
	Tag  string
	Name string
}

// Stats are the derived 1v1 counters stored on a player row.
type Stats struct {
	BattleCount        int
	WinCount           int
	ThreeCrownWinCount int
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Tag) == "" {
		return fmt.Errorf("member tag is required")
	}
	if !strings.HasPrefix(strings.TrimSpace(m.Tag), "#") {
		return fmt.Errorf("member tag must start with #: %s", m.Tag)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("member name is required")
	}
	return nil
}

func (s Stats) Validate() error {
	if s.BattleCount < 0 || s.WinCount < 0 || s.ThreeCrownWinCount < 0 {
		return fmt.Errorf("player stats cannot be negative")
	}
	if s.WinCount > s.BattleCount {
		return fmt.Errorf("win count %d exceeds battle count %d", s.WinCount, s.BattleCount)
	}
	if s.ThreeCrownWinCount > s.WinCount {
		return fmt.Errorf("three crown win count %d exceeds win count %d", s.ThreeCrownWinCount, s.WinCount)
	}
	return nil
}

// WinRate returns the stored win percentage rounded to two decimals.
func (p Player) WinRate() float64 {
	return WinRate(p.WinCount, p.BattleCount)
}

// WinRate is win/count*100 rounded to two decimals, and 0 when count is 0.
func WinRate(winCount, battleCount int) float64 {
	if battleCount <= 0 {
		return 0
	}
	return roundTwo(float64(winCount) / float64(battleCount) * 100)
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
