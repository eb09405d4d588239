package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edudao/gatekeeper/internal/authz"
	"github.com/edudao/gatekeeper/internal/cache"
	"github.com/edudao/gatekeeper/internal/database/testutil"
	"github.com/edudao/gatekeeper/internal/models"
)

func TestGormDirectoryDemoUsers(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithDemoUsers())
	dir, err := NewGormDirectory(db)
	require.NoError(t, err)
	ctx := context.Background()

	assignments, err := dir.QueryRoleAssignments(ctx, "u3")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	for _, a := range assignments {
		require.NotNil(t, a.Role)
		require.Equal(t, a.RoleID, a.Role.ID)
	}

	ids, err := dir.QueryRoleIDs(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, ids)

	ids, err = dir.QueryRoleIDs(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, ids)

	grants, err := dir.QueryPermissionGrants(ctx, []string{"reviewer", "member"})
	require.NoError(t, err)
	require.Len(t, grants, 4)
	names := map[string]int{}
	for _, g := range grants {
		require.NotNil(t, g.Permission)
		names[g.Permission.Name]++
	}
	require.Equal(t, map[string]int{"review_proposal": 1, "vote": 2, "create_proposal": 1}, names)
}

func TestGormDirectoryKeepsDuplicateRows(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	require.NoError(t, db.Create(&models.UserRole{UserID: "dup", RoleID: "member"}).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: "dup", RoleID: "member"}).Error)

	dir, err := NewGormDirectory(db)
	require.NoError(t, err)

	ids, err := dir.QueryRoleIDs(context.Background(), "dup")
	require.NoError(t, err)
	require.Equal(t, []string{"member", "member"}, ids)
}

func TestGormDirectoryEmptyRoleList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	dir, err := NewGormDirectory(db)
	require.NoError(t, err)

	grants, err := dir.QueryPermissionGrants(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestGormDirectoryReportsClosedDatabase(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	dir, err := NewGormDirectory(db)
	require.NoError(t, err)

	_, err = dir.QueryRoleIDs(context.Background(), "u1")
	require.Error(t, err)
}

func TestNewGormDirectoryRequiresDB(t *testing.T) {
	_, err := NewGormDirectory(nil)
	require.Error(t, err)
}

func TestStaticDirectory(t *testing.T) {
	dir := NewStatic().
		AddRole(authz.Role{ID: "r1", Name: "admin"}).
		AddPermission(authz.Permission{ID: "p1", Name: "manage_users"}).
		Assign("u1", "r1", "r1", "ghost").
		Grant("r1", "p1")
	ctx := context.Background()

	assignments, err := dir.QueryRoleAssignments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	require.Nil(t, assignments[2].Role)

	ids, err := dir.QueryRoleIDs(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"r1", "r1", "ghost"}, ids)

	grants, err := dir.QueryPermissionGrants(ctx, []string{"r1", "ghost"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "manage_users", grants[0].Permission.Name)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = dir.QueryRoleIDs(cancelled, "u1")
	require.ErrorIs(t, err, context.Canceled)
}

type countingDirectory struct {
	authz.Directory
	roleIDCalls atomic.Int32
	release     chan struct{}
	err         error
}

func (c *countingDirectory) QueryRoleIDs(ctx context.Context, userID string) ([]string, error) {
	c.roleIDCalls.Add(1)
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.Directory.QueryRoleIDs(ctx, userID)
}

type brokenStore struct{}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store down")
}

func (brokenStore) Delete(context.Context, ...string) error {
	return errors.New("store down")
}

func fixture() *Static {
	return NewStatic().
		AddRole(authz.Role{ID: "admin", Name: "admin"}).
		AddPermission(authz.Permission{ID: "manage_users", Name: "manage_users"}).
		Assign("u1", "admin").
		Grant("admin", "manage_users")
}

func TestCachedDirectoryServesRepeatReadsFromStore(t *testing.T) {
	upstream := &countingDirectory{Directory: fixture()}
	dir, err := NewCachedDirectory(upstream, cache.NewMemoryStore(16, time.Minute), time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ids, err := dir.QueryRoleIDs(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, []string{"admin"}, ids)
	}
	require.EqualValues(t, 1, upstream.roleIDCalls.Load())

	require.NoError(t, dir.Invalidate(ctx, "u1"))
	_, err = dir.QueryRoleIDs(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, upstream.roleIDCalls.Load())
}

func TestCachedDirectoryCoalescesConcurrentReads(t *testing.T) {
	upstream := &countingDirectory{Directory: fixture(), release: make(chan struct{})}
	dir, err := NewCachedDirectory(upstream, cache.NewMemoryStore(16, time.Minute), time.Minute)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]string, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids, err := dir.QueryRoleIDs(context.Background(), "u1")
			require.NoError(t, err)
			results[i] = ids
		}(i)
	}

	require.Eventually(t, func() bool { return upstream.roleIDCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(upstream.release)
	wg.Wait()

	require.EqualValues(t, 1, upstream.roleIDCalls.Load())
	require.Equal(t, []string{"admin"}, results[0])
	require.Equal(t, []string{"admin"}, results[1])
}

func TestCachedDirectoryFallsThroughOnStoreFailure(t *testing.T) {
	upstream := &countingDirectory{Directory: fixture()}
	dir, err := NewCachedDirectory(upstream, brokenStore{}, time.Minute)
	require.NoError(t, err)

	ids, err := dir.QueryRoleIDs(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, ids)

	grants, err := dir.QueryPermissionGrants(context.Background(), []string{"admin"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
}

func TestCachedDirectoryDoesNotCacheErrors(t *testing.T) {
	upstream := &countingDirectory{Directory: fixture(), err: errors.New("boom")}
	dir, err := NewCachedDirectory(upstream, cache.NewMemoryStore(16, time.Minute), time.Minute)
	require.NoError(t, err)

	_, err = dir.QueryRoleIDs(context.Background(), "u1")
	require.Error(t, err)

	upstream.err = nil
	ids, err := dir.QueryRoleIDs(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, ids)
	require.EqualValues(t, 2, upstream.roleIDCalls.Load())
}

func TestGrantsKeyIgnoresOrder(t *testing.T) {
	require.Equal(t, grantsKey([]string{"b", "a"}), grantsKey([]string{"a", "b"}))
}

func TestGrantsKeyDistinguishesSeparatorsInIDs(t *testing.T) {
	require.NotEqual(t, grantsKey([]string{"a,b"}), grantsKey([]string{"a", "b"}))
	require.NotEqual(t, grantsKey([]string{"1:a"}), grantsKey([]string{"1", "a"}))
	require.NotEqual(t, grantsKey(nil), grantsKey([]string{""}))
}

func TestCachedDirectoryGrantsDoNotCollide(t *testing.T) {
	upstream := NewStatic().
		AddRole(authz.Role{ID: "a,b", Name: "combined"}).
		AddRole(authz.Role{ID: "a", Name: "a"}).
		AddRole(authz.Role{ID: "b", Name: "b"}).
		AddPermission(authz.Permission{ID: "p1", Name: "vote"}).
		AddPermission(authz.Permission{ID: "p2", Name: "manage_users"}).
		Grant("a,b", "p2").
		Grant("a", "p1")
	dir, err := NewCachedDirectory(upstream, cache.NewMemoryStore(16, time.Minute), time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	combined, err := dir.QueryPermissionGrants(ctx, []string{"a,b"})
	require.NoError(t, err)
	split, err := dir.QueryPermissionGrants(ctx, []string{"a", "b"})
	require.NoError(t, err)

	require.Len(t, combined, 1)
	require.Equal(t, "manage_users", combined[0].Permission.Name)
	require.Len(t, split, 1)
	require.Equal(t, "vote", split[0].Permission.Name)
}

func TestCachedDirectoryCloseWaitsForDetachedLoads(t *testing.T) {
	upstream := &countingDirectory{Directory: fixture(), release: make(chan struct{})}
	dir, err := NewCachedDirectory(upstream, cache.NewMemoryStore(16, time.Minute), time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := dir.QueryRoleIDs(ctx, "u1")
		errs <- err
	}()
	require.Eventually(t, func() bool { return upstream.roleIDCalls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)

	closed := make(chan error, 1)
	go func() {
		closed <- dir.Close()
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while an upstream load was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(upstream.release)
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the load finished")
	}
}

func TestCachedDirectoryRejectsLoadsAfterClose(t *testing.T) {
	upstream := &countingDirectory{Directory: fixture()}
	dir, err := NewCachedDirectory(upstream, cache.NewMemoryStore(16, time.Minute), time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = dir.QueryRoleIDs(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, dir.Close())

	ids, err := dir.QueryRoleIDs(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"admin"}, ids)

	_, err = dir.QueryRoleAssignments(ctx, "u1")
	require.ErrorIs(t, err, ErrClosed)
	require.EqualValues(t, 1, upstream.roleIDCalls.Load())
}

func TestInstrumentedPassesThrough(t *testing.T) {
	failing := &countingDirectory{Directory: fixture(), err: errors.New("boom")}
	dir := NewInstrumented(failing)

	_, err := dir.QueryRoleIDs(context.Background(), "u1")
	require.EqualError(t, err, "boom")

	ok := NewInstrumented(fixture())
	assignments, err := ok.QueryRoleAssignments(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
}
