package clashroyale

type membersEnvelope struct {
	Items []memberItem `json:"items"`
}

type memberItem struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type battleLogEntry struct {
	Type       string              `json:"type"`
	BattleTime string              `json:"battleTime"`
	GameMode   gameMode            `json:"gameMode"`
	Team       []battleParticipant `json:"team"`
	Opponent   []battleParticipant `json:"opponent"`
}

type gameMode struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type battleParticipant struct {
	Tag                     string       `json:"tag"`
	Name                    string       `json:"name"`
	Crowns                  int          `json:"crowns"`
	KingTowerHitPoints      int          `json:"kingTowerHitPoints"`
	PrincessTowersHitPoints []int        `json:"princessTowersHitPoints"`
	ElixirLeaked            float64      `json:"elixirLeaked"`
	Cards                   []cardInDeck `json:"cards"`
}

type cardInDeck struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}
