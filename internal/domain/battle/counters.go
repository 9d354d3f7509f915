package battle

import "github.com/riskibarqy/clan-battles/internal/domain/player"

// Counters are the 1v1 tallies derived from a player's battles.
type Counters struct {
	BattleCount        int
	WinCount           int
	ThreeCrownWinCount int
}

// CountFromPerspective tallies records from the point of view of Sides[0].
func CountFromPerspective(records []Record) Counters {
	out := Counters{BattleCount: len(records)}
	for _, r := range records {
		own, opponent := r.Sides[0].Crowns, r.Sides[1].Crowns
		if own <= opponent {
			continue
		}
		out.WinCount++
		if own >= 3 {
			out.ThreeCrownWinCount++
		}
	}
	return out
}

func (c Counters) WinRate() float64 {
	return player.WinRate(c.WinCount, c.BattleCount)
}

// Stats converts the tallies into the counters stored on a player row.
func (c Counters) Stats() player.Stats {
	return player.Stats{
		BattleCount:        c.BattleCount,
		WinCount:           c.WinCount,
		ThreeCrownWinCount: c.ThreeCrownWinCount,
	}
}
