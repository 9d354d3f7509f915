package usecase

import "context"

// ExternalMember is one row of the upstream clan roster.
type ExternalMember struct {
	Tag  string
	Name string
}

// ExternalBattle is one upstream battle log entry, as decoded from the provider.
type ExternalBattle struct {
	BattleTime string
	Type       string
	GameMode   string
	Team       []ExternalParticipant
	Opponent   []ExternalParticipant
}

type ExternalParticipant struct {
	Tag                     string
	Name                    string
	Crowns                  int
	ElixirLeaked            float64
	KingTowerHitPoints      int
	PrincessTowersHitPoints []int
	Cards                   []string
}

type ClanRosterProvider interface {
	FetchClanMembers(ctx context.Context, clanTag string) ([]ExternalMember, error)
}

// BattleLogProvider returns a player's recent battles, newest first. The page
// size is whatever the provider returns; no pagination is done.
type BattleLogProvider interface {
	FetchBattleLog(ctx context.Context, playerTag string) ([]ExternalBattle, error)
}
