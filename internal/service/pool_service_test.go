package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"pugpool/internal/domain"
	apperrors "pugpool/pkg/errors"
	"pugpool/pkg/logger"
	"pugpool/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type poolFixture struct {
	svc       PoolService
	players   *fakePlayerRepo
	matches   *fakeMatchRepo
	cooldowns *fakeCooldownRepo
	skills    *fakeSkillProvider
	redis     *redis.Client
	mr        *miniredis.Miniredis
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	players := newFakePlayerRepo()
	matches := newFakeMatchRepo(players)
	cooldowns := newFakeCooldownRepo()
	skills := newFakeSkillProvider()
	log := &logger.Logger{Logger: zap.NewNop()}

	return &poolFixture{
		svc:       NewPoolService(players, matches, cooldowns, skills, client, log, time.Minute),
		players:   players,
		matches:   matches,
		cooldowns: cooldowns,
		skills:    skills,
		redis:     client,
		mr:        mr,
	}
}

// joinReq builds a distinct valid join request. The fake player repository
// assigns ids in creation order, so player i gets id i when requests are
// first seen in order.
func joinReq(i int) *domain.JoinRequest {
	return &domain.JoinRequest{
		ExternalID:  fmt.Sprintf("tg:%d", 100+i),
		Handle:      fmt.Sprintf("player_%d", i),
		DisplayName: fmt.Sprintf("Player %d", i),
	}
}

func TestOpenSession_SecondOpenRejected(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	first, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, first.Status)

	_, err = f.svc.OpenSession(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyOpen))

	// the existing session is unaffected
	view, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, view.Match.ID)
	assert.Equal(t, 0, view.Count)
}

func TestCloseSession(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.CloseSession(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotOpen))

	opened, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	closed, err := f.svc.CloseSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, opened.ID, closed.ID)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = f.svc.CloseSession(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotOpen))
}

func TestJoin_RequiresOpenSession(t *testing.T) {
	f := newPoolFixture(t)

	_, err := f.svc.Join(context.Background(), joinReq(1))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNoActiveSession))
}

func TestJoin_FillScenario(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	// ladder skills 100, 90, ... 10: the best split misses parity by 10
	for i := 1; i <= 10; i++ {
		f.skills.set(int64(i), float64(110-10*i))
	}

	for i := 1; i <= 9; i++ {
		result, err := f.svc.Join(ctx, joinReq(i))
		require.NoError(t, err)
		assert.Equal(t, i, result.Count)
		assert.Nil(t, result.Assignment)
	}

	tenth, err := f.svc.Join(ctx, joinReq(10))
	require.NoError(t, err)
	assert.Equal(t, domain.PoolCapacity, tenth.Count)
	require.NotNil(t, tenth.Assignment)

	a := tenth.Assignment
	assert.Len(t, a.TeamA, domain.TeamSize)
	assert.Len(t, a.TeamB, domain.TeamSize)
	assert.InDelta(t, 10.0, a.Diff, 1e-9)
	assert.InDelta(t, a.Diff, math.Abs(a.SumA-a.SumB), 1e-9)

	// the two teams partition the pool exactly
	seen := make(map[int64]bool)
	for _, slot := range append(append([]domain.TeamSlot{}, a.TeamA...), a.TeamB...) {
		assert.False(t, seen[slot.PlayerID], "player on both teams")
		seen[slot.PlayerID] = true
	}
	assert.Len(t, seen, domain.PoolCapacity)

	// balancing fired exactly once and was persisted
	assert.Len(t, f.matches.savedAssignments(), 1)

	_, err = f.svc.Join(ctx, joinReq(11))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePoolFull))
}

func TestJoin_DuplicateRejected(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, joinReq(1))
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, joinReq(1))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyJoined))

	// still rejected through the membership check once the short join
	// guard has expired
	f.mr.FastForward(redis.TTLJoinLock + time.Second)
	_, err = f.svc.Join(ctx, joinReq(1))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyJoined))
}

func TestLeave_CooldownGatesRejoin(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, joinReq(1))
	require.NoError(t, err)

	left, err := f.svc.Leave(ctx, joinReq(1).ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 0, left.Count)
	assert.WithinDuration(t, time.Now().Add(time.Minute), left.CooldownUntil, 2*time.Second)

	// blocked while the cooldown runs
	_, err = f.svc.Join(ctx, joinReq(1))
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeOnCooldown))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	retry, ok := appErr.Details["retry_after_seconds"].(int64)
	require.True(t, ok)
	assert.Greater(t, retry, int64(0))
	assert.LessOrEqual(t, retry, int64(60))

	// admitted again the moment the cooldown has elapsed
	f.cooldowns.expire(1, time.Now())
	result, err := f.svc.Join(ctx, joinReq(1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestLeave_SecondLeaveReportsNotInPool(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.Leave(ctx, "tg:101")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNoActiveSession))

	_, err = f.svc.OpenSession(ctx)
	require.NoError(t, err)

	// a player who never joined
	_, err = f.svc.Leave(ctx, "tg:900")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotInPool))

	_, err = f.svc.Join(ctx, joinReq(1))
	require.NoError(t, err)

	_, err = f.svc.Leave(ctx, joinReq(1).ExternalID)
	require.NoError(t, err)

	_, err = f.svc.Leave(ctx, joinReq(1).ExternalID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotInPool))
}

func TestJoin_ConcurrentAdmissionHoldsCapacity(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	const contenders = 30
	results := make(chan error, contenders)
	var wg sync.WaitGroup
	for i := 1; i <= contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Join(ctx, joinReq(i))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	admitted, rejected := 0, 0
	for err := range results {
		if err == nil {
			admitted++
			continue
		}
		require.True(t, apperrors.IsType(err, apperrors.ErrorTypePoolFull), err.Error())
		rejected++
	}
	assert.Equal(t, domain.PoolCapacity, admitted)
	assert.Equal(t, contenders-domain.PoolCapacity, rejected)

	view, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PoolCapacity, view.Count)

	ids := make(map[int64]bool)
	for _, m := range view.Members {
		assert.False(t, ids[m.PlayerID], "player admitted twice")
		ids[m.PlayerID] = true
	}

	// the 9-to-10 transition balanced exactly once
	assert.Len(t, f.matches.savedAssignments(), 1)
}

func TestJoin_RefillTriggersBalancingAgain(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		_, err := f.svc.Join(ctx, joinReq(i))
		require.NoError(t, err)
	}
	require.Len(t, f.matches.savedAssignments(), 1)

	_, err = f.svc.Leave(ctx, joinReq(10).ExternalID)
	require.NoError(t, err)

	result, err := f.svc.Join(ctx, joinReq(11))
	require.NoError(t, err)
	require.NotNil(t, result.Assignment)
	assert.Len(t, f.matches.savedAssignments(), 2)
}

func TestJoin_ProviderFailureBalancesWholePoolOnDefault(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	f.skills.failWith(errors.New("stats store down"))

	var last *domain.JoinResult
	for i := 1; i <= 10; i++ {
		last, err = f.svc.Join(ctx, joinReq(i))
		require.NoError(t, err)
	}

	a := last.Assignment
	require.NotNil(t, a)
	assert.InDelta(t, float64(domain.TeamSize)*domain.DefaultSkill, a.SumA, 1e-9)
	assert.InDelta(t, float64(domain.TeamSize)*domain.DefaultSkill, a.SumB, 1e-9)
	assert.Zero(t, a.Diff)
}

func TestJoin_MissingHistoryWeighsDefaultSkill(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	// nine members with history at 100, the tenth falls back to 75, so
	// every split comes out 25 apart
	for i := 1; i <= 9; i++ {
		f.skills.set(int64(i), 100)
	}

	var last *domain.JoinResult
	for i := 1; i <= 10; i++ {
		last, err = f.svc.Join(ctx, joinReq(i))
		require.NoError(t, err)
	}

	require.NotNil(t, last.Assignment)
	assert.InDelta(t, 25.0, last.Assignment.Diff, 1e-9)
}

func TestCurrent_CachesSnapshotUntilMutation(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.Current(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNoActiveSession))

	_, err = f.svc.OpenSession(ctx)
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, joinReq(1))
	require.NoError(t, err)

	viewKey := f.redis.KeyBuilder.KeySessionView()

	view, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)
	assert.True(t, f.mr.Exists(viewKey))

	// a mutation drops the snapshot; the next read rebuilds it
	_, err = f.svc.Join(ctx, joinReq(2))
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(viewKey))

	view, err = f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Count)
	require.Len(t, view.Members, 2)
	assert.Equal(t, joinReq(1).ExternalID, view.Members[0].ExternalID)
	assert.Equal(t, joinReq(2).ExternalID, view.Members[1].ExternalID)
}

func TestSetAnnouncement(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAnnouncement(ctx, "msg:42")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNoActiveSession))

	_, err = f.svc.OpenSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.SetAnnouncement(ctx, "   ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInput))

	match, err := f.svc.SetAnnouncement(ctx, "msg:42")
	require.NoError(t, err)
	assert.Equal(t, "msg:42", match.AnnouncementRef)

	view, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "msg:42", view.Match.AnnouncementRef)
}

func TestJoin_InvalidInput(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *domain.JoinRequest
	}{
		{
			name: "missing external id",
			req:  &domain.JoinRequest{Handle: "someone"},
		},
		{
			name: "external id with illegal characters",
			req:  &domain.JoinRequest{ExternalID: "has space", Handle: "someone"},
		},
		{
			name: "handle too short",
			req:  &domain.JoinRequest{ExternalID: "tg:1", Handle: "x"},
		},
		{
			name: "neither display name nor handle",
			req:  &domain.JoinRequest{ExternalID: "tg:1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Join(ctx, tt.req)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInput))
		})
	}
}

func TestJoin_StorageFailureSurfaces(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenSession(ctx)
	require.NoError(t, err)

	f.matches.listErr = errors.New("connection refused")

	_, err = f.svc.Join(ctx, joinReq(1))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStorageUnavailable))

	// the failed attempt must not leave a guard behind
	f.matches.listErr = nil
	result, err := f.svc.Join(ctx, joinReq(1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}
