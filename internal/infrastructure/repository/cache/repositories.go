package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
	basecache "github.com/riskibarqy/clan-battles/internal/platform/cache"
)

const (
	playerListKey    = "player:list"
	playerTagsKey    = "player:tags"
	playerByTagKey   = "player:tag:"
	playerByNameKey  = "player:name:"
	battleListPrefix = "battle:list:"
)

type cachedPlayer struct {
	value  player.Player
	exists bool
}

// PlayerRepository caches reads of next and drops every cached player view on
// a write.
type PlayerRepository struct {
	next   player.Repository
	lists  *basecache.Store[[]player.Player]
	tags   *basecache.Store[[]string]
	lookup *basecache.Store[cachedPlayer]
}

func NewPlayerRepository(next player.Repository, ttl time.Duration) *PlayerRepository {
	return &PlayerRepository{
		next:   next,
		lists:  basecache.NewStore[[]player.Player](ttl),
		tags:   basecache.NewStore[[]string](ttl),
		lookup: basecache.NewStore[cachedPlayer](ttl),
	}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	items, err := r.lists.GetOrLoad(ctx, playerListKey, func(ctx context.Context) ([]player.Player, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]player.Player(nil), items...), nil
}

func (r *PlayerRepository) ListTags(ctx context.Context) ([]string, error) {
	tags, err := r.tags.GetOrLoad(ctx, playerTagsKey, func(ctx context.Context) ([]string, error) {
		tags, err := r.next.ListTags(ctx)
		if err != nil {
			return nil, err
		}
		return append([]string(nil), tags...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), tags...), nil
}

func (r *PlayerRepository) GetByTag(ctx context.Context, tag string) (player.Player, bool, error) {
	cached, err := r.lookup.GetOrLoad(ctx, playerByTagKey+tag, func(ctx context.Context) (cachedPlayer, error) {
		item, exists, err := r.next.GetByTag(ctx, tag)
		if err != nil {
			return cachedPlayer{}, err
		}
		return cachedPlayer{value: item, exists: exists}, nil
	})
	if err != nil {
		return player.Player{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *PlayerRepository) GetByName(ctx context.Context, name string) (player.Player, bool, error) {
	cached, err := r.lookup.GetOrLoad(ctx, playerByNameKey+name, func(ctx context.Context) (cachedPlayer, error) {
		item, exists, err := r.next.GetByName(ctx, name)
		if err != nil {
			return cachedPlayer{}, err
		}
		return cachedPlayer{value: item, exists: exists}, nil
	})
	if err != nil {
		return player.Player{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *PlayerRepository) UpsertMember(ctx context.Context, member player.Member) (player.UpsertOutcome, error) {
	outcome, err := r.next.UpsertMember(ctx, member)
	if err != nil {
		return outcome, err
	}
	if outcome == player.UpsertInserted || outcome == player.UpsertUpdated {
		r.invalidate(ctx)
	}
	return outcome, nil
}

func (r *PlayerRepository) UpdateStats(ctx context.Context, playerID int64, stats player.Stats) error {
	if err := r.next.UpdateStats(ctx, playerID, stats); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *PlayerRepository) invalidate(ctx context.Context) {
	r.lists.Delete(ctx, playerListKey)
	r.tags.Delete(ctx, playerTagsKey)
	r.lookup.DeletePrefix(ctx, "player:")
}

// BattleRepository caches List results per filter. FindDuplicate always goes
// to next so the duplicate check never answers from a stale view.
type BattleRepository struct {
	next  battle.Repository
	lists *basecache.Store[[]battle.Record]
}

func NewBattleRepository(next battle.Repository, ttl time.Duration) *BattleRepository {
	return &BattleRepository{
		next:  next,
		lists: basecache.NewStore[[]battle.Record](ttl),
	}
}

func (r *BattleRepository) FindDuplicate(ctx context.Context, from, to time.Time, playerA, playerB int64) (int64, bool, error) {
	return r.next.FindDuplicate(ctx, from, to, playerA, playerB)
}

func (r *BattleRepository) InsertWithScores(ctx context.Context, b battle.Battle, scores [2]battle.Score) (int64, error) {
	id, err := r.next.InsertWithScores(ctx, b, scores)
	if err != nil {
		return 0, err
	}
	r.lists.DeletePrefix(ctx, battleListPrefix)
	return id, nil
}

func (r *BattleRepository) List(ctx context.Context, filter battle.Filter) ([]battle.Record, error) {
	items, err := r.lists.GetOrLoad(ctx, battleListKey(filter), func(ctx context.Context) ([]battle.Record, error) {
		items, err := r.next.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return append([]battle.Record(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]battle.Record(nil), items...), nil
}

func battleListKey(filter battle.Filter) string {
	before := ""
	if !filter.Before.IsZero() {
		before = strconv.FormatInt(filter.Before.UnixNano(), 10)
	}
	return battleListPrefix + filter.PlayerTag +
		"|" + filter.OpponentTag +
		"|" + filter.GameMode +
		"|" + before +
		"|" + strconv.Itoa(filter.Limit)
}
