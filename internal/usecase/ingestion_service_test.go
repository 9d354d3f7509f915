package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
)

func newIngestion(store storeFixture, provider BattleLogProvider) *IngestionService {
	return NewIngestionService(store.players, store.battles, provider, staticIDGenerator("run-1"), logging.NewNop())
}

func TestIngestionService_Run_DeduplicatesAcrossLogsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)

	match := clanBattle(noon, battle.GameModeDraftCompetitive, participant(tagRaue, "Raue Hände", 3), participant(tagSamca, "Samca", 0))
	ladder := match
	ladder.Type = "ladder"
	outsider := clanBattle(noon.Add(time.Hour), battle.GameModePickMode, participant(tagKrone, "Kronenjäger", 1), participant("#OUTSIDER", "Gast", 2))

	provider := &stubBattleLogProvider{logs: map[string][]ExternalBattle{
		tagRaue:  {match},
		tagSamca: {mirrored(match, time.Second)},
		tagKrone: {ladder, outsider},
	}}
	service := newIngestion(store, provider)

	first, err := service.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.RunID != "run-1" || first.PlayerCount != 3 {
		t.Fatalf("unexpected run header: %+v", first)
	}
	want := IngestionCounts{Fetched: 4, Inserted: 1, Duplicate: 1, Filtered: 1, Unknown: 1}
	if first.Totals != want {
		t.Fatalf("unexpected first run totals: got=%+v want=%+v", first.Totals, want)
	}
	if store.battles.Count() != 1 {
		t.Fatalf("unexpected stored battle count: got=%d want=1", store.battles.Count())
	}

	second, err := service.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Totals.Inserted != 0 || second.Totals.Duplicate != 2 {
		t.Fatalf("second run must insert nothing: %+v", second.Totals)
	}
	if store.battles.Count() != 1 {
		t.Fatalf("second run changed storage: got=%d want=1", store.battles.Count())
	}

	records, err := store.battles.List(ctx, battle.Filter{PlayerTag: tagRaue})
	if err != nil {
		t.Fatalf("list battles: %v", err)
	}
	if len(records) != 1 || records[0].Sides[0].Crowns != 3 || records[0].Sides[1].PlayerTag != tagSamca {
		t.Fatalf("unexpected stored battle: %+v", records)
	}
	if records[0].Sides[0].PrincessTower1HP != 2534 || records[0].Sides[0].PrincessTower2HP != 0 {
		t.Fatalf("unexpected stored towers: %+v", records[0].Sides[0])
	}
}

func TestIngestionService_Run_TwoSecondsApartAreDistinct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)

	match := clanBattle(noon, battle.GameModePickMode, participant(tagRaue, "Raue Hände", 1), participant(tagSamca, "Samca", 0))
	provider := &stubBattleLogProvider{logs: map[string][]ExternalBattle{
		tagRaue:  {match},
		tagSamca: {mirrored(match, 2*time.Second)},
	}}

	result, err := newIngestion(store, provider).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Totals.Inserted != 2 || result.Totals.Duplicate != 0 {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
}

func TestIngestionService_Run_FetchFailureSkipsOnlyThatPlayer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)
	errTimeout := errors.New("upstream timeout")

	provider := &stubBattleLogProvider{
		logs: map[string][]ExternalBattle{
			tagKrone: {clanBattle(noon, battle.GameModePickMode, participant(tagKrone, "Kronenjäger", 2), participant(tagSamca, "Samca", 1))},
		},
		errs: map[string]error{tagRaue: errTimeout},
	}

	result, err := newIngestion(store, provider).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.FailedCount != 1 {
		t.Fatalf("unexpected failed players: got=%d want=1", result.FailedCount)
	}
	if result.Players[0].PlayerTag != tagRaue || result.Players[0].Status != ingestStatusFailed {
		t.Fatalf("unexpected first player row: %+v", result.Players[0])
	}
	if result.Players[1].Status != ingestStatusSkipped {
		t.Fatalf("empty log should be skipped: %+v", result.Players[1])
	}
	if result.Players[2].Status != ingestStatusSuccess || result.Players[2].Counts.Inserted != 1 {
		t.Fatalf("later players must still be ingested: %+v", result.Players[2])
	}
	if len(provider.calls) != 3 {
		t.Fatalf("every player should be fetched: %v", provider.calls)
	}
}

func TestIngestionService_Run_IndeterminateCheckNeverInserts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)
	store.battles.FailFind(errors.New("statement timeout"))

	provider := &stubBattleLogProvider{logs: map[string][]ExternalBattle{
		tagRaue: {clanBattle(noon, battle.GameModePickMode, participant(tagRaue, "Raue Hände", 1), participant(tagSamca, "Samca", 0))},
	}}

	result, err := newIngestion(store, provider).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Totals.CheckFailed != 1 || result.Totals.Inserted != 0 {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
	if store.battles.Count() != 0 {
		t.Fatalf("indeterminate check must not insert")
	}
}

func TestIngestionService_Run_ScoreFailureRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)
	store.battles.FailInsertAt(memory.StepScore2, errors.New("score insert failed"))

	provider := &stubBattleLogProvider{logs: map[string][]ExternalBattle{
		tagRaue: {
			clanBattle(noon, battle.GameModePickMode, participant(tagRaue, "Raue Hände", 1), participant(tagSamca, "Samca", 0)),
			clanBattle(noon.Add(time.Minute), battle.GameModePickMode, participant(tagRaue, "Raue Hände", 0), participant(tagKrone, "Kronenjäger", 1)),
		},
	}}

	result, err := newIngestion(store, provider).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Totals.Failed != 2 || result.Totals.Inserted != 0 {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
	records, _ := store.battles.List(ctx, battle.Filter{})
	if len(records) != 0 {
		t.Fatalf("no battle may persist after a failed score insert: %+v", records)
	}
}

func TestIngestionService_Run_ConflictIsCountedAndSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)
	if _, err := store.battles.InsertWithScores(ctx,
		battle.Battle{Time: noon, Type: battle.AllowedType, GameMode: battle.GameModePickMode},
		[2]battle.Score{{PlayerID: 2}, {PlayerID: 3}},
	); err != nil {
		t.Fatalf("seed battle: %v", err)
	}

	provider := &stubBattleLogProvider{logs: map[string][]ExternalBattle{
		tagRaue: {clanBattle(noon, battle.GameModePickMode, participant(tagRaue, "Raue Hände", 1), participant(tagSamca, "Samca", 0))},
	}}

	result, err := newIngestion(store, provider).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Totals.Conflict != 1 || store.battles.Count() != 1 {
		t.Fatalf("unexpected outcome: totals=%+v stored=%d", result.Totals, store.battles.Count())
	}
}

func TestIngestionService_Run_ResolvesByNameWhenTagUnknown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStoreFixture(t)

	renamedTag := participant("#CHANGED", "Samca", 0)
	malformed := clanBattle(noon.Add(time.Hour), battle.GameModePickMode, participant(tagRaue, "Raue Hände", 1), participant(tagKrone, "Kronenjäger", 0))
	malformed.BattleTime = "not-a-time"

	provider := &stubBattleLogProvider{logs: map[string][]ExternalBattle{
		tagRaue: {
			clanBattle(noon, battle.GameModeDraftMode, participant(tagRaue, "Raue Hände", 1), renamedTag),
			malformed,
		},
	}}

	result, err := newIngestion(store, provider).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Totals.Inserted != 1 || result.Totals.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
	records, _ := store.battles.List(ctx, battle.Filter{PlayerTag: tagSamca})
	if len(records) != 1 {
		t.Fatalf("name fallback should attach the battle to %s: %+v", tagSamca, records)
	}
}

func TestIngestionService_Run_StopsOnCancel(t *testing.T) {
	t.Parallel()

	store := newStoreFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newIngestion(store, &stubBattleLogProvider{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !result.Interrupted || len(result.Players) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
