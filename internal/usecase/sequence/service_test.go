package sequence

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/persistence"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/ctxutil"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

var key = domain.SequenceKey{Year: "26", Office: "24", License: "3420"}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := persistence.Open("sqlite", filepath.Join(t.TempDir(), "sequence.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewService(db, persistence.NewSequenceRepo(db, logger.Nop()), logger.Nop()), db
}

func TestService_AllocateConcurrently(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxutil.WithActor(context.Background(), "operator-1")

	const n = 25
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued []int
		errs   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := svc.Allocate(ctx, key, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			issued = append(issued, alloc.Consecutive)
		}()
	}
	wg.Wait()
	require.Empty(t, errs)

	sort.Ints(issued)
	for i, v := range issued {
		assert.Equal(t, i+1, v)
	}

	current, err := svc.Current(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, n, current)

	counter, err := svc.counters.GetCounter(dbctx.Background(context.Background()), key)
	require.NoError(t, err)
	entries, err := svc.counters.ListLog(dbctx.Background(context.Background()), counter.ID)
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, e := range entries {
		assert.Equal(t, i, e.OldValue)
		assert.Equal(t, i+1, e.NewValue)
		assert.Equal(t, "operator-1", e.Actor)
	}
}

func TestService_KeysAreIndependent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	other := domain.SequenceKey{Year: "26", Office: "43", License: "3420"}
	for i := 0; i < 3; i++ {
		_, err := svc.Allocate(ctx, key, "")
		require.NoError(t, err)
	}
	alloc, err := svc.Allocate(ctx, other, "first of office 43")
	require.NoError(t, err)
	assert.Equal(t, 1, alloc.Consecutive)
	assert.Equal(t, "000001", alloc.Number)
	assert.Equal(t, "6000001", alloc.Display)
}

func TestService_Capacity(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.SequenceCounter{
		Year: key.Year, Office: key.Office, License: key.License, LastIssued: domain.MaxConsecutive - 1,
	}).Error)

	alloc, err := svc.Allocate(ctx, key, "")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxConsecutive, alloc.Consecutive)
	assert.Equal(t, "999999", alloc.Number)

	_, err = svc.Allocate(ctx, key, "")
	var capErr *domain.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, key, capErr.Key)

	current, err := svc.Current(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxConsecutive, current)

	var logs int64
	require.NoError(t, db.Model(&domain.SequenceLog{}).Count(&logs).Error)
	assert.EqualValues(t, 1, logs)
}

func TestService_RejectsMalformedKeys(t *testing.T) {
	svc, _ := newTestService(t)
	for _, k := range []domain.SequenceKey{
		{Year: "2026", Office: "24", License: "3420"},
		{Year: "26", Office: "4", License: "3420"},
		{Year: "26", Office: "24", License: "34A0"},
	} {
		_, err := svc.Allocate(context.Background(), k, "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, k.String())
	}

	current, err := svc.Current(context.Background(), key)
	require.NoError(t, err)
	assert.Zero(t, current)
}
