package matchmaking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/pongarena/internal/dependencies/mocks"
	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/testutil"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, skill int) model.QueueEntry {
	return model.QueueEntry{PlayerID: model.PlayerID(id), SkillScore: skill, EnqueuedAt: epoch}
}

func allLive(model.QueueEntry) bool { return true }

func TestRankedEnqueueReplacesExistingEntry(t *testing.T) {
	q := NewRankedQueue(DefaultSkillTolerance)

	q.Enqueue(entry("a", 1000))
	q.Enqueue(entry("a", 1200))

	require.Equal(t, 1, q.Len())
	assert.Equal(t, 1200, q.Entries()[0].SkillScore)
}

func TestRankedFindMatchQueuesWhenEmpty(t *testing.T) {
	q := NewRankedQueue(DefaultSkillTolerance)

	_, ok := q.FindMatch(entry("a", 1500), allLive)

	assert.False(t, ok)
	assert.True(t, q.Contains("a"))
}

func TestRankedFindMatchPairsWithinTolerance(t *testing.T) {
	q := NewRankedQueue(DefaultSkillTolerance)
	q.FindMatch(entry("a", 1500), allLive)

	opponent, ok := q.FindMatch(entry("b", 1600), allLive)

	require.True(t, ok)
	assert.Equal(t, model.PlayerID("a"), opponent.PlayerID)
	assert.Equal(t, 0, q.Len())
}

func TestRankedFindMatchRespectsTolerance(t *testing.T) {
	q := NewRankedQueue(100)
	q.Enqueue(entry("a", 1000))

	_, ok := q.FindMatch(entry("b", 1101), allLive)

	assert.False(t, ok)
	assert.Equal(t, []model.PlayerID{"a", "b"}, ids(q.Entries()))
}

func TestRankedFindMatchIsFIFOAmongEligible(t *testing.T) {
	q := NewRankedQueue(100)
	q.Enqueue(entry("far", 5000))
	q.Enqueue(entry("first", 1050))
	q.Enqueue(entry("second", 1000))

	opponent, ok := q.FindMatch(entry("me", 1000), allLive)

	require.True(t, ok)
	assert.Equal(t, model.PlayerID("first"), opponent.PlayerID)
	assert.Equal(t, []model.PlayerID{"far", "second"}, ids(q.Entries()))
}

func TestRankedFindMatchDiscardsStaleEntries(t *testing.T) {
	q := NewRankedQueue(DefaultSkillTolerance)
	q.Enqueue(entry("ghost", 1000))
	q.Enqueue(entry("live", 1000))

	opponent, ok := q.FindMatch(entry("me", 1000), func(e model.QueueEntry) bool {
		return e.PlayerID != "ghost"
	})

	require.True(t, ok)
	assert.Equal(t, model.PlayerID("live"), opponent.PlayerID)
	assert.False(t, q.Contains("ghost"))
	assert.Equal(t, 0, q.Len())
}

func TestRankedFindMatchOnlyStaleEntriesQueuesRequester(t *testing.T) {
	q := NewRankedQueue(DefaultSkillTolerance)
	q.Enqueue(entry("ghost", 1000))

	_, ok := q.FindMatch(entry("me", 1000), func(model.QueueEntry) bool { return false })

	assert.False(t, ok)
	assert.Equal(t, []model.PlayerID{"me"}, ids(q.Entries()))
}

func TestRankedFindMatchNeverPairsWithSelf(t *testing.T) {
	q := NewRankedQueue(DefaultSkillTolerance)
	q.Enqueue(entry("me", 1000))

	_, ok := q.FindMatch(entry("me", 1000), allLive)

	assert.False(t, ok)
	assert.Equal(t, 1, q.Len())
}

func TestRankedLeaveIsIdempotent(t *testing.T) {
	q := NewRankedQueue(DefaultSkillTolerance)
	q.Enqueue(entry("a", 1000))

	assert.True(t, q.Leave("a"))
	assert.False(t, q.Leave("a"))
	assert.False(t, q.Leave("never-queued"))
}

func TestInviteSendRejectsSelfInvite(t *testing.T) {
	r := NewInviteRegistry(mocks.NewMockClock(epoch), 0)

	_, err := r.Send("a", "a")

	assert.ErrorIs(t, err, model.ErrSelfInvite)
	assert.Equal(t, 0, r.Len())
}

func TestInviteSendOverwritesSamePair(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	r := NewInviteRegistry(clk, 0)

	_, _ = r.Send("a", "b")
	clk.Advance(time.Minute)
	_, _ = r.Send("a", "b")

	incoming := r.Incoming("b")
	require.Len(t, incoming, 1)
	assert.Equal(t, epoch.Add(time.Minute), incoming[0].CreatedAt)
}

func TestInviteReversePairIsSeparate(t *testing.T) {
	r := NewInviteRegistry(mocks.NewMockClock(epoch), 0)
	_, _ = r.Send("a", "b")
	_, _ = r.Send("b", "a")

	assert.Equal(t, 2, r.Len())
	_, err := r.Take("a", "b")
	require.NoError(t, err)
	assert.Len(t, r.Incoming("a"), 1)
}

func TestInviteTakeTwiceFails(t *testing.T) {
	r := NewInviteRegistry(mocks.NewMockClock(epoch), 0)
	_, _ = r.Send("a", "b")

	_, err := r.Take("a", "b")
	require.NoError(t, err)

	_, err = r.Take("a", "b")
	assert.ErrorIs(t, err, model.ErrInviteNotFound)
}

func TestInviteRemoveInvolving(t *testing.T) {
	r := NewInviteRegistry(mocks.NewMockClock(epoch), 0)
	_, _ = r.Send("a", "b")
	_, _ = r.Send("c", "a")
	_, _ = r.Send("c", "b")

	removed := r.RemoveInvolving("a")

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, r.Len())
}

func TestInviteTTLExpiresLazily(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	r := NewInviteRegistry(clk, time.Minute)
	_, _ = r.Send("a", "b")

	clk.Advance(59 * time.Second)
	assert.Len(t, r.Incoming("b"), 1)

	clk.Advance(time.Second)
	assert.Empty(t, r.Incoming("b"))
	assert.Equal(t, 0, r.Len())

	_, _ = r.Send("a", "b")
	clk.Advance(2 * time.Minute)
	_, err := r.Take("a", "b")
	assert.ErrorIs(t, err, model.ErrInviteNotFound)
}

func TestInviteIncomingIsOldestFirst(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	r := NewInviteRegistry(clk, 0)
	_, _ = r.Send("late", "me")
	clk.Set(epoch.Add(-time.Hour))
	_, _ = r.Send("early", "me")

	incoming := r.Incoming("me")

	require.Len(t, incoming, 2)
	assert.Equal(t, model.PlayerID("early"), incoming[0].SenderID)
	assert.Equal(t, model.PlayerID("late"), incoming[1].SenderID)
}

func TestCasualFirstJoinerWaits(t *testing.T) {
	q := NewCasualQueue()

	_, paired := q.JoinOrMatch(testutil.NewFakeConn("c1"), "a")

	assert.False(t, paired)
	w, ok := q.Waiting()
	require.True(t, ok)
	assert.Equal(t, model.PlayerID("a"), w.PlayerID)
}

func TestCasualSecondJoinerPairs(t *testing.T) {
	q := NewCasualQueue()
	q.JoinOrMatch(testutil.NewFakeConn("c1"), "a")

	w, paired := q.JoinOrMatch(testutil.NewFakeConn("c2"), "b")

	require.True(t, paired)
	assert.Equal(t, model.PlayerID("a"), w.PlayerID)
	_, ok := q.Waiting()
	assert.False(t, ok)
}

func TestCasualSamePlayerReplacesSlot(t *testing.T) {
	q := NewCasualQueue()
	q.JoinOrMatch(testutil.NewFakeConn("c1"), "a")

	_, paired := q.JoinOrMatch(testutil.NewFakeConn("c2"), "a")

	assert.False(t, paired)
	w, _ := q.Waiting()
	assert.Equal(t, model.ConnID("c2"), w.Conn.ID())
}

func TestCasualClearIfWaiting(t *testing.T) {
	q := NewCasualQueue()
	q.JoinOrMatch(testutil.NewFakeConn("c1"), "a")

	assert.False(t, q.ClearIfWaiting("other"))
	assert.True(t, q.ClearIfWaiting("c1"))
	assert.False(t, q.ClearIfWaiting("c1"))
}

func ids(entries []model.QueueEntry) []model.PlayerID {
	out := make([]model.PlayerID, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.PlayerID)
	}
	return out
}
