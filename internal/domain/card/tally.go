package card

import (
	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
)

// Stat is the usage and win tally of one card.
type Stat struct {
	Name        string
	Image       string
	BattleCount int
	WinCount    int
}

func (s Stat) WinRate() float64 {
	return player.WinRate(s.WinCount, s.BattleCount)
}

// Tally counts, for every catalog card, the battles whose decks contain it and
// the battles its deck won. A card in both decks counts once per battle.
// Draws add no wins. Names outside the catalog are ignored.
func Tally(records []battle.Record, catalog Catalog) []Stat {
	stats := make([]Stat, len(catalog.cards))
	for idx, c := range catalog.cards {
		stats[idx] = Stat{Name: c.Name, Image: c.Image}
	}

	for _, record := range records {
		present := make(map[int]struct{}, battle.DeckSize*2)
		for _, side := range record.Sides {
			for _, name := range side.Deck {
				if idx, ok := catalog.index[name]; ok {
					present[idx] = struct{}{}
				}
			}
		}
		for idx := range present {
			stats[idx].BattleCount++
		}

		winner := record.Winner()
		if winner < 0 {
			continue
		}
		won := make(map[int]struct{}, battle.DeckSize)
		for _, name := range record.Sides[winner].Deck {
			if idx, ok := catalog.index[name]; ok {
				won[idx] = struct{}{}
			}
		}
		for idx := range won {
			stats[idx].WinCount++
		}
	}
	return stats
}
