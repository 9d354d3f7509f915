package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/clan-battles/internal/domain/player"
)

type PlayerRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]player.Player
	byTag  map[string]int64
	byName map[string]int64
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	r := &PlayerRepository{
		byID:   make(map[int64]player.Player, len(players)),
		byTag:  make(map[string]int64, len(players)),
		byName: make(map[string]int64, len(players)),
	}
	for _, p := range players {
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
	}
	for _, p := range players {
		if p.ID == 0 {
			r.nextID++
			p.ID = r.nextID
		}
		r.byID[p.ID] = p
		r.byTag[p.Tag] = p.ID
		r.byName[p.Name] = p.ID
	}
	return r
}

func (r *PlayerRepository) List(_ context.Context) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *PlayerRepository) ListTags(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, nil
}

func (r *PlayerRepository) GetByTag(_ context.Context, tag string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byTag[tag]
	if !ok {
		return player.Player{}, false, nil
	}
	return r.byID[id], true, nil
}

func (r *PlayerRepository) GetByName(_ context.Context, name string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return player.Player{}, false, nil
	}
	return r.byID[id], true, nil
}

func (r *PlayerRepository) UpsertMember(_ context.Context, member player.Member) (player.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ownerID, taken := r.byName[member.Name]; taken && r.byID[ownerID].Tag != member.Tag {
		return player.UpsertSkipped, nil
	}

	id, exists := r.byTag[member.Tag]
	if !exists {
		r.nextID++
		p := player.Player{ID: r.nextID, Tag: member.Tag, Name: member.Name}
		r.byID[p.ID] = p
		r.byTag[p.Tag] = p.ID
		r.byName[p.Name] = p.ID
		return player.UpsertInserted, nil
	}

	current := r.byID[id]
	if current.Name == member.Name {
		return player.UpsertUnchanged, nil
	}
	delete(r.byName, current.Name)
	current.Name = member.Name
	r.byID[id] = current
	r.byName[current.Name] = id
	return player.UpsertUpdated, nil
}

func (r *PlayerRepository) UpdateStats(_ context.Context, playerID int64, stats player.Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[playerID]
	if !ok {
		return fmt.Errorf("player id=%d not found", playerID)
	}
	current.BattleCount = stats.BattleCount
	current.WinCount = stats.WinCount
	current.ThreeCrownWinCount = stats.ThreeCrownWinCount
	r.byID[playerID] = current
	return nil
}
