package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/mocks"
)

func newConflictService(store *mocks.ConflictStore) *ConflictService {
	return NewConflictService(store, nil, nil, 0)
}

func observation(value string, version int64, source entities.TranslationSource, at time.Time) entities.Observation {
	return entities.Observation{Value: value, Version: version, Source: source, Timestamp: at}
}

func TestConflictService_Detect_IdenticalValues(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictAutomatedVsAutomated,
		observation("Bonjour", 2, entities.SourceMachine, now.Add(-time.Minute)),
		observation("Bonjour", 1, entities.SourceMemory, now),
	)
	require.NoError(t, err)
	assert.Equal(t, 1.0, conflict.Similarity)
	assert.True(t, conflict.AutoResolvable)
	assert.Equal(t, entities.StrategyMerge, conflict.SuggestedStrategy)
	assert.NotEmpty(t, conflict.ID)
	assert.Contains(t, store.Conflicts, conflict.ID)
}

func TestConflictService_Detect_NearIdenticalAutomatedPair(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	// One trailing period apart: similarity just above 0.90 but below 0.95,
	// which auto-resolves only because both writers were automated.
	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictAutomatedVsAutomated,
		observation("Open the door", 2, entities.SourceMachine, now.Add(-time.Minute)),
		observation("Open the door.", 1, entities.SourceMachine, now),
	)
	require.NoError(t, err)
	assert.Greater(t, conflict.Similarity, 0.90)
	assert.Less(t, conflict.Similarity, 0.95)
	assert.True(t, conflict.AutoResolvable)
	assert.Equal(t, entities.StrategyMerge, conflict.SuggestedStrategy)
}

func TestConflictService_Detect_DissimilarManualVsAutomated(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictManualVsAutomated,
		observation("Bonjour tout le monde", 2, entities.SourceManual, now.Add(-time.Minute)),
		observation("Salut", 1, entities.SourceMachine, now),
	)
	require.NoError(t, err)
	assert.False(t, conflict.AutoResolvable)
	assert.Equal(t, entities.StrategyKeepManual, conflict.SuggestedStrategy)
}

func TestConflictService_Detect_RejectsUnknownType(t *testing.T) {
	svc := newConflictService(&mocks.ConflictStore{})

	_, err := svc.Detect(context.Background(), "tr-1", "bogus",
		entities.Observation{}, entities.Observation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown conflict type")
}

func TestConflictService_Resolve_VersionIsMaxPlusOne(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictManualVsAutomated,
		observation("Bonjour", 2, entities.SourceManual, now.Add(-time.Minute)),
		observation("Salut", 5, entities.SourceMachine, now),
	)
	require.NoError(t, err)

	resolution, err := svc.Resolve(context.Background(), conflict, entities.StrategyKeepManual, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(6), resolution.ResolvedVersion)
	assert.Equal(t, "Bonjour", resolution.ResolvedValue)
	assert.Equal(t, "alice", resolution.ResolvedBy)
	assert.False(t, resolution.Automatic)
}

func TestConflictService_Resolve_RejectsIllegalStrategy(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictLockTimeout,
		observation("Bonjour", 2, entities.SourceManual, now.Add(-time.Minute)),
		observation("Salut", 1, entities.SourceMachine, now),
	)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), conflict, entities.StrategyMerge, "alice")
	var resErr *entities.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "not legal")
	assert.Empty(t, store.Resolutions)
}

func TestConflictService_Resolve_RejectsManualReview(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictManualVsManual,
		observation("Bonjour", 2, entities.SourceManual, now.Add(-time.Minute)),
		observation("Salut", 1, entities.SourceManual, now),
	)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), conflict, entities.StrategyManualReview, "alice")
	var resErr *entities.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "human")
}

func TestConflictService_Resolve_IsOneShot(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictManualVsAutomated,
		observation("Bonjour", 2, entities.SourceManual, now.Add(-time.Minute)),
		observation("Salut", 1, entities.SourceMachine, now),
	)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), conflict, entities.StrategyKeepManual, "alice")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), conflict, entities.StrategyKeepAutomated, "bob")
	var resErr *entities.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "already resolved")
	assert.Len(t, store.Resolutions, 1)
}

func TestConflictService_AutoResolve(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictAutomatedVsAutomated,
		observation("Open the door", 2, entities.SourceMachine, now.Add(-time.Minute)),
		observation("Open the door.", 1, entities.SourceMemory, now),
	)
	require.NoError(t, err)
	require.True(t, conflict.AutoResolvable)

	resolution, err := svc.AutoResolve(context.Background(), conflict)
	require.NoError(t, err)
	assert.Equal(t, entities.SystemResolver, resolution.ResolvedBy)
	assert.True(t, resolution.Automatic)
	assert.Equal(t, entities.StrategyMerge, resolution.Strategy)
	// Merge defers to the newer side.
	assert.Equal(t, "Open the door.", resolution.ResolvedValue)
}

func TestConflictService_AutoResolve_RejectsNonAutoResolvable(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	conflict, err := svc.Detect(context.Background(), "tr-1", entities.ConflictManualVsAutomated,
		observation("Bonjour tout le monde", 2, entities.SourceManual, now.Add(-time.Minute)),
		observation("Salut", 1, entities.SourceMachine, now),
	)
	require.NoError(t, err)

	_, err = svc.AutoResolve(context.Background(), conflict)
	var resErr *entities.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "not auto-resolvable")
	assert.Empty(t, store.Resolutions)
}

func TestConflictService_ResolvedValue(t *testing.T) {
	svc := newConflictService(&mocks.ConflictStore{})
	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()

	conflict := &entities.ConflictRecord{
		ID:       "c1",
		Current:  observation("manual text", 3, entities.SourceManual, older),
		Incoming: observation("machine text", 2, entities.SourceMachine, newer),
	}

	tests := []struct {
		strategy entities.Strategy
		want     string
	}{
		{entities.StrategyKeepManual, "manual text"},
		{entities.StrategyKeepAutomated, "machine text"},
		{entities.StrategyKeepNewer, "machine text"},
		{entities.StrategyKeepOlder, "manual text"},
		{entities.StrategyMerge, "machine text"},
		{entities.StrategyKeepCurrent, "manual text"},
		{entities.StrategyDiscard, "manual text"},
	}

	for _, tt := range tests {
		got, err := svc.resolvedValue(conflict, tt.strategy)
		require.NoError(t, err, string(tt.strategy))
		assert.Equal(t, tt.want, got, string(tt.strategy))
	}
}

func TestConflictService_ResolvedValue_KeepManualWhenIncomingIsManual(t *testing.T) {
	svc := newConflictService(&mocks.ConflictStore{})
	now := time.Now().UTC()

	conflict := &entities.ConflictRecord{
		Current:  observation("machine text", 2, entities.SourceMachine, now.Add(-time.Minute)),
		Incoming: observation("manual text", 1, entities.SourceManual, now),
	}

	got, err := svc.resolvedValue(conflict, entities.StrategyKeepManual)
	require.NoError(t, err)
	assert.Equal(t, "manual text", got)
}

func TestConflictService_MergeValues(t *testing.T) {
	svc := newConflictService(&mocks.ConflictStore{})

	t.Run("identical values pass through", func(t *testing.T) {
		got, err := svc.MergeValues("Bonjour", "Bonjour")
		require.NoError(t, err)
		assert.Equal(t, "Bonjour", got)
	})

	t.Run("similar values pick incoming", func(t *testing.T) {
		got, err := svc.MergeValues("Open the door", "Open the door.")
		require.NoError(t, err)
		assert.Equal(t, "Open the door.", got)
	})

	t.Run("word counts too far apart", func(t *testing.T) {
		_, err := svc.MergeValues("one two three four five six seven eight nine ten", "one two")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "word counts differ")
	})

	t.Run("dissimilar values refuse", func(t *testing.T) {
		_, err := svc.MergeValues("open the door", "shut the gate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too dissimilar")
	})
}

func TestConflictService_Pending(t *testing.T) {
	store := &mocks.ConflictStore{}
	svc := newConflictService(store)
	now := time.Now().UTC()

	first, err := svc.Detect(context.Background(), "tr-1", entities.ConflictManualVsManual,
		observation("a", 1, entities.SourceManual, now.Add(-time.Minute)),
		observation("b", 1, entities.SourceManual, now))
	require.NoError(t, err)

	_, err = svc.Detect(context.Background(), "tr-2", entities.ConflictManualVsManual,
		observation("c", 1, entities.SourceManual, now.Add(-time.Minute)),
		observation("d", 1, entities.SourceManual, now))
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), first, entities.StrategyKeepNewer, "alice")
	require.NoError(t, err)

	pending, err := svc.Pending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "tr-2", pending[0].RecordID)
}
