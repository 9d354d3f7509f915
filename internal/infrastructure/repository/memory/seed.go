package memory

import "github.com/riskibarqy/clan-battles/internal/domain/player"

// SeedPlayers is a small roster for running the API without a database.
func SeedPlayers() []player.Player {
	return []player.Player{
		{ID: 1, Tag: "#2J200GLG8", Name: "Raue Hände"},
		{ID: 2, Tag: "#8QYQ0PU", Name: "Samca"},
		{ID: 3, Tag: "#PL9VY2R0", Name: "Kronenjäger"},
	}
}
