package postgres

type playerTableModel struct {
	ID                 int64  `db:"id"`
	Tag                string `db:"tag"`
	Name               string `db:"name"`
	BattleCount        int    `db:"battle_count"`
	WinCount           int    `db:"win_count"`
	ThreeCrownWinCount int    `db:"three_crown_win_count"`
}

type playerInsertModel struct {
	Tag  string `db:"tag"`
	Name string `db:"name"`
}
