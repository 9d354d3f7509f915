package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
)

// InsertStep names one of the three writes of InsertWithScores.
type InsertStep string

const (
	StepBattle InsertStep = "battle"
	StepScore1 InsertStep = "score_1"
	StepScore2 InsertStep = "score_2"
)

type playerLookup interface {
	List(ctx context.Context) ([]player.Player, error)
}

// BattleRepository keeps battles and scores in process. Writes are staged and
// published together, so a failed step leaves nothing behind.
type BattleRepository struct {
	mu         sync.RWMutex
	players    playerLookup
	nextBattle int64
	nextScore  int64
	battles    map[int64]battle.Battle
	byTime     map[int64]int64
	scores     map[int64][2]battle.Score
	failAt     map[InsertStep]error
	findErr    error
}

func NewBattleRepository(players playerLookup) *BattleRepository {
	return &BattleRepository{
		players: players,
		battles: make(map[int64]battle.Battle),
		byTime:  make(map[int64]int64),
		scores:  make(map[int64][2]battle.Score),
		failAt:  make(map[InsertStep]error),
	}
}

// FailInsertAt makes every later InsertWithScores fail at step with err. A nil err clears it.
func (r *BattleRepository) FailInsertAt(step InsertStep, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failAt, step)
		return
	}
	r.failAt[step] = err
}

// FailFind makes FindDuplicate return err until cleared with nil.
func (r *BattleRepository) FailFind(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findErr = err
}

func (r *BattleRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.battles)
}

func (r *BattleRepository) FindDuplicate(_ context.Context, from, to time.Time, playerA, playerB int64) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.findErr != nil {
		return 0, false, r.findErr
	}
	for id, b := range r.battles {
		if b.Time.Before(from) || b.Time.After(to) {
			continue
		}
		scores := r.scores[id]
		pair := [2]int64{scores[0].PlayerID, scores[1].PlayerID}
		if pair == [2]int64{playerA, playerB} || pair == [2]int64{playerB, playerA} {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (r *BattleRepository) InsertWithScores(_ context.Context, b battle.Battle, scores [2]battle.Score) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("validate battle: %w", err)
	}
	if err := battle.ValidateScores(scores); err != nil {
		return 0, fmt.Errorf("validate scores: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b.Time = b.Time.UTC().Truncate(time.Second)
	if err := r.failAt[StepBattle]; err != nil {
		return 0, fmt.Errorf("insert battle: %w", err)
	}
	if _, exists := r.byTime[b.Time.Unix()]; exists {
		return 0, fmt.Errorf("insert battle at %s: %w", b.Time.Format(time.RFC3339), battle.ErrConflict)
	}
	b.ID = r.nextBattle + 1

	staged := scores
	for idx, step := range []InsertStep{StepScore1, StepScore2} {
		if err := r.failAt[step]; err != nil {
			return 0, fmt.Errorf("insert score %d: %w", idx+1, err)
		}
		staged[idx].ID = r.nextScore + int64(idx) + 1
		staged[idx].BattleID = b.ID
		staged[idx].Deck = append([]string(nil), scores[idx].Deck...)
	}

	r.nextBattle = b.ID
	r.nextScore += 2
	r.battles[b.ID] = b
	r.byTime[b.Time.Unix()] = b.ID
	r.scores[b.ID] = staged
	return b.ID, nil
}

func (r *BattleRepository) List(ctx context.Context, filter battle.Filter) ([]battle.Record, error) {
	players, err := r.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	byID := make(map[int64]player.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]battle.Record, 0)
	for id, b := range r.battles {
		if !filter.Before.IsZero() && !b.Time.Before(filter.Before) {
			continue
		}
		if filter.HasGameMode() && b.GameMode != filter.GameMode {
			continue
		}

		scores := r.scores[id]
		first, second := scores[0], scores[1]
		if filter.PlayerTag != "" {
			switch filter.PlayerTag {
			case byID[first.PlayerID].Tag:
			case byID[second.PlayerID].Tag:
				first, second = second, first
			default:
				continue
			}
			if filter.OpponentTag != "" && byID[second.PlayerID].Tag != filter.OpponentTag {
				continue
			}
		} else if first.PlayerID > second.PlayerID {
			first, second = second, first
		}

		out = append(out, battle.Record{
			ID:       b.ID,
			Time:     b.Time,
			Type:     b.Type,
			GameMode: b.GameMode,
			Sides:    [2]battle.Side{side(first, byID), side(second, byID)},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func side(score battle.Score, players map[int64]player.Player) battle.Side {
	p := players[score.PlayerID]
	return battle.Side{
		PlayerID:         score.PlayerID,
		PlayerTag:        p.Tag,
		PlayerName:       p.Name,
		Crowns:           score.Crowns,
		KingTowerHP:      score.KingTowerHP,
		PrincessTower1HP: score.PrincessTower1HP,
		PrincessTower2HP: score.PrincessTower2HP,
		ElixirLeaked:     score.ElixirLeaked,
		Deck:             append([]string(nil), score.Deck...),
	}
}
