package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/card"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
	battlemock "github.com/riskibarqy/clan-battles/internal/mocks/domain/battle"
	playermock "github.com/riskibarqy/clan-battles/internal/mocks/domain/player"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type staticCatalog struct {
	catalog card.Catalog
	err     error
}

func (s staticCatalog) Catalog(context.Context) (card.Catalog, error) {
	return s.catalog, s.err
}

func seedBattles(t *testing.T, store storeFixture, items ...ExternalBattle) {
	t.Helper()
	provider := &stubBattleLogProvider{logs: map[string][]ExternalBattle{tagRaue: items}}
	result, err := newIngestion(store, provider).Run(context.Background())
	if err != nil {
		t.Fatalf("seed battles: %v", err)
	}
	if result.Totals.Inserted != len(items) {
		t.Fatalf("seed battles: inserted=%d want=%d (%+v)", result.Totals.Inserted, len(items), result.Totals)
	}
}

func TestStatsService_RecomputePlayerStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)
	seedBattles(t, store,
		clanBattle(noon, battle.GameModePickMode, participant(tagRaue, "Raue Hände", 3), participant(tagSamca, "Samca", 0)),
		clanBattle(noon.Add(time.Minute), battle.GameModeDraftMode, participant(tagRaue, "Raue Hände", 1), participant(tagSamca, "Samca", 2)),
		clanBattle(noon.Add(2*time.Minute), battle.GameModeDraftMode, participant(tagRaue, "Raue Hände", 1), participant(tagKrone, "Kronenjäger", 1)),
	)

	service := NewStatsService(store.players, store.battles, nil, StatsConfig{Workers: 2}, logging.NewNop())
	result, err := service.RecomputePlayerStats(ctx)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if result.PlayerCount != 3 || result.UpdatedCount != 3 || result.FailedCount != 0 || result.WorkerCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	wants := map[string]player.Stats{
		tagRaue:  {BattleCount: 3, WinCount: 1, ThreeCrownWinCount: 1},
		tagSamca: {BattleCount: 2, WinCount: 1},
		tagKrone: {BattleCount: 1},
	}
	for tag, want := range wants {
		got, _, _ := store.players.GetByTag(ctx, tag)
		if got.BattleCount != want.BattleCount || got.WinCount != want.WinCount || got.ThreeCrownWinCount != want.ThreeCrownWinCount {
			t.Fatalf("%s: got=%+v want=%+v", tag, got, want)
		}
	}

	again, err := service.RecomputePlayerStats(ctx)
	if err != nil || again.UpdatedCount != 3 {
		t.Fatalf("recompute must be repeatable: %+v err=%v", again, err)
	}
	raue, _, _ := store.players.GetByTag(ctx, tagRaue)
	if raue.BattleCount != 3 {
		t.Fatalf("recompute must replace, not add: %+v", raue)
	}
}

func TestStatsService_RecomputePlayerStats_ReportsFailuresPerPlayer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	players := playermock.NewRepository(t)
	battles := battlemock.NewRepository(t)
	service := NewStatsService(players, battles, nil, StatsConfig{}, logging.NewNop())

	players.On("List", mock.Anything).Return([]player.Player{
		{ID: 1, Tag: tagRaue},
		{ID: 2, Tag: tagSamca},
	}, nil).Once()
	battles.On("List", mock.Anything, battle.Filter{PlayerTag: tagRaue}).Return([]battle.Record{
		{Sides: [2]battle.Side{{Crowns: 3}, {Crowns: 1}}},
	}, nil).Once()
	battles.On("List", mock.Anything, battle.Filter{PlayerTag: tagSamca}).Return(nil, errors.New("read timeout")).Once()
	players.On("UpdateStats", mock.Anything, int64(1), player.Stats{BattleCount: 1, WinCount: 1, ThreeCrownWinCount: 1}).Return(nil).Once()

	result, err := service.RecomputePlayerStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.UpdatedCount)
	require.Equal(t, 1, result.FailedCount)
	require.Equal(t, tagSamca, result.Failures[0].PlayerTag)
	require.Equal(t, 2, result.WorkerCount)
}

// limitedPool runs the first accept tasks on their own goroutines and
// rejects the rest.
type limitedPool struct {
	accept int
	calls  int
}

func (p *limitedPool) Submit(task func()) error {
	p.calls++
	if p.calls > p.accept {
		return ants.ErrPoolOverload
	}
	go task()
	return nil
}

func TestSubmitEach_WaitsForSubmittedTasksOnFailure(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var finished atomic.Int32
	pool := &limitedPool{accept: 2}

	done := make(chan error, 1)
	go func() {
		done <- submitEach(pool, []int{1, 2, 3, 4}, func(int) {
			<-release
			finished.Add(1)
		})
	}()

	select {
	case err := <-done:
		t.Fatalf("returned before submitted tasks finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	err := <-done
	require.ErrorIs(t, err, ants.ErrPoolOverload)
	require.Equal(t, int32(2), finished.Load())
	require.Equal(t, 3, pool.calls)
}

func TestStatsService_HeadToHead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)
	seedBattles(t, store,
		clanBattle(noon, battle.GameModePickMode, participant(tagRaue, "Raue Hände", 3), participant(tagSamca, "Samca", 0)),
		clanBattle(noon.Add(time.Minute), battle.GameModeDraftMode, participant(tagRaue, "Raue Hände", 0), participant(tagSamca, "Samca", 1)),
		clanBattle(noon.Add(2*time.Minute), battle.GameModePickMode, participant(tagRaue, "Raue Hände", 2), participant(tagSamca, "Samca", 1)),
	)
	service := NewStatsService(store.players, store.battles, nil, StatsConfig{}, logging.NewNop())

	all, err := service.HeadToHead(ctx, tagRaue, tagSamca, "")
	require.NoError(t, err)
	require.Equal(t, battle.GameModeAll, all.GameMode)
	require.Equal(t, 3, all.BattleCount)
	require.Equal(t, 2, all.WinCount)
	require.Equal(t, 1, all.ThreeCrownWinCount)
	require.Equal(t, 66.67, all.WinRate)

	mirror, err := service.HeadToHead(ctx, tagSamca, tagRaue, battle.GameModeDraftMode)
	require.NoError(t, err)
	require.Equal(t, 1, mirror.BattleCount)
	require.Equal(t, 100.0, mirror.WinRate)

	none, err := service.HeadToHead(ctx, tagRaue, tagKrone, battle.GameModeAll)
	require.NoError(t, err)
	require.Equal(t, 0, none.BattleCount)
	require.Equal(t, 0.0, none.WinRate)

	_, err = service.HeadToHead(ctx, tagRaue, "#NOBODY", "")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = service.HeadToHead(ctx, tagRaue, tagSamca, "2v2_Blitz")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = service.HeadToHead(ctx, "", tagSamca, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestStatsService_CardStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)

	winner := participant(tagRaue, "Raue Hände", 2)
	winner.Cards = []string{"Knight", "Zap"}
	loser := participant(tagSamca, "Samca", 1)
	loser.Cards = []string{"Archers", "Zap"}
	drawA := participant(tagRaue, "Raue Hände", 1)
	drawA.Cards = []string{"Knight", "Mystery Card"}
	drawB := participant(tagKrone, "Kronenjäger", 1)
	drawB.Cards = []string{"Archers"}

	seedBattles(t, store,
		clanBattle(noon, battle.GameModePickMode, winner, loser),
		clanBattle(noon.Add(time.Minute), battle.GameModeDraftMode, drawA, drawB),
	)

	catalog := staticCatalog{catalog: card.NewCatalog([]card.Card{{Name: "Knight"}, {Name: "Zap"}, {Name: "Archers"}})}
	service := NewStatsService(store.players, store.battles, catalog, StatsConfig{}, logging.NewNop())

	stats, err := service.CardStats(ctx, "")
	require.NoError(t, err)
	byName := make(map[string]card.Stat, len(stats))
	for _, s := range stats {
		byName[s.Name] = s
	}
	require.Len(t, byName, 3)
	require.Equal(t, card.Stat{Name: "Knight", Image: "/static/images/cards/knight.webp", BattleCount: 2, WinCount: 1}, byName["Knight"])
	require.Equal(t, 1, byName["Zap"].BattleCount)
	require.Equal(t, 1, byName["Zap"].WinCount)
	require.Equal(t, 2, byName["Archers"].BattleCount)
	require.Equal(t, 0, byName["Archers"].WinCount)

	drawOnly, err := service.CardStats(ctx, battle.GameModeDraftMode)
	require.NoError(t, err)
	for _, s := range drawOnly {
		require.Zero(t, s.WinCount, "draw must add no wins for %s", s.Name)
	}

	fallback := NewStatsService(store.players, store.battles, nil, StatsConfig{}, logging.NewNop())
	seen, err := fallback.CardStats(ctx, battle.GameModeAll)
	require.NoError(t, err)
	require.Len(t, seen, 4)
}
