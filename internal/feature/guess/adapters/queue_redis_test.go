package adapters

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"updown_backend/internal/feature/guess/domain/entity"
)

func testGuess(t *testing.T, id string, userID uint, submitted, resolve time.Time) (entity.PendingGuess, string) {
	t.Helper()
	g := entity.PendingGuess{
		ID:                id,
		UserID:            userID,
		Direction:         entity.DirectionUp,
		PriceAtSubmission: 50000.5,
		SubmittedAt:       submitted,
		ResolveAt:         resolve,
	}
	raw, err := json.Marshal(g)
	require.NoError(t, err)
	return g, string(raw)
}

func TestQueueRedis_Enqueue(t *testing.T) {
	t.Parallel()
	db, mock := redismock.NewClientMock()
	q := NewQueueRedis(db, "")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, member := testGuess(t, "g-1", 1, now, now.Add(time.Minute))

	mock.ExpectZAdd("guesses:pending", redis.Z{
		Score:  float64(g.ResolveAt.UnixMilli()),
		Member: member,
	}).SetVal(1)

	require.NoError(t, q.Enqueue(context.Background(), g))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRedis_EnqueueError(t *testing.T) {
	t.Parallel()
	db, mock := redismock.NewClientMock()
	q := NewQueueRedis(db, "")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, member := testGuess(t, "g-1", 1, now, now.Add(time.Minute))

	mock.ExpectZAdd("guesses:pending", redis.Z{
		Score:  float64(g.ResolveAt.UnixMilli()),
		Member: member,
	}).SetErr(assert.AnError)

	assert.Error(t, q.Enqueue(context.Background(), g))
}

func TestQueueRedis_DrainDue(t *testing.T) {
	t.Parallel()
	db, mock := redismock.NewClientMock()
	q := NewQueueRedis(db, "queue:test")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-time.Second)

	// Same deadline, different submission times. The script returns ties in
	// member order; DrainDue must re-order by submission time.
	first, firstRaw := testGuess(t, "z-first", 1, now.Add(-2*time.Minute), deadline)
	second, secondRaw := testGuess(t, "a-second", 2, now.Add(-time.Minute), deadline)

	mock.ExpectEvalSha(drainScript.Hash(), []string{"queue:test"}, now.UnixMilli()).
		SetVal([]interface{}{secondRaw, firstRaw})

	due, err := q.DrainDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first.ID, due[0].ID)
	assert.Equal(t, second.ID, due[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRedis_DrainDueSkipsCorrupt(t *testing.T) {
	t.Parallel()
	db, mock := redismock.NewClientMock()
	q := NewQueueRedis(db, "")

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g, raw := testGuess(t, "g-ok", 3, now.Add(-time.Minute), now.Add(-time.Second))

	mock.ExpectEvalSha(drainScript.Hash(), []string{"guesses:pending"}, now.UnixMilli()).
		SetVal([]interface{}{"not json", raw})

	due, err := q.DrainDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, g.ID, due[0].ID)
}

func TestSortByDeadline(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	guesses := []entity.PendingGuess{
		{ID: "late", ResolveAt: base.Add(2 * time.Second), SubmittedAt: base},
		{ID: "tie-b", ResolveAt: base, SubmittedAt: base.Add(time.Second)},
		{ID: "tie-a", ResolveAt: base, SubmittedAt: base},
	}

	SortByDeadline(guesses)

	assert.Equal(t, "tie-a", guesses[0].ID)
	assert.Equal(t, "tie-b", guesses[1].ID)
	assert.Equal(t, "late", guesses[2].ID)
}
