package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amirphl/avax-blinks/models"
	testingutil "github.com/amirphl/avax-blinks/testing"
)

// exerciseKeyValueStore runs the behaviour every backend must share
func exerciseKeyValueStore(t *testing.T, store KeyValueStore) {
	ctx := context.Background()

	t.Run("MissingKey", func(t *testing.T) {
		v, ok, err := store.Get(ctx, "blinks_missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "blinks_a", `[]`))
		v, ok, err := store.Get(ctx, "blinks_a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[]`, v)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "blinks_b", "first"))
		require.NoError(t, store.Set(ctx, "blinks_b", "second"))
		v, ok, err := store.Get(ctx, "blinks_b")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", v)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "blinks_c", "x"))
		require.NoError(t, store.Delete(ctx, "blinks_c"))
		_, ok, err := store.Get(ctx, "blinks_c")
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, store.Delete(ctx, "blinks_c"))
	})
}

func TestMemoryKeyValueStore(t *testing.T) {
	store := NewMemoryKeyValueStore()
	exerciseKeyValueStore(t, store)
	assert.Equal(t, 2, storedKeyCount(t, store))

	keys, err := store.Keys(context.Background(), models.LinkRecordKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"blinks_a", "blinks_b"}, keys)
}

func TestRedisKeyValueStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	store := NewRedisKeyValueStore(rc, "avax:")
	exerciseKeyValueStore(t, store)

	raw, err := mr.Get("avax:blinks_a")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)

	keys, err := store.Keys(context.Background(), models.LinkRecordKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"blinks_a", "blinks_b"}, keys)

	t.Run("Unavailable", func(t *testing.T) {
		mr.Close()
		_, _, err := store.Get(context.Background(), "blinks_a")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPersistenceUnavailable))
	})
}

// repeatScanHook doubles every SCAN page, as Redis may do while rehashing
type repeatScanHook struct{}

func (repeatScanHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (repeatScanHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if scan, ok := cmd.(*redis.ScanCmd); ok && err == nil {
			page, cursor := scan.Val()
			scan.SetVal(append(page, page...), cursor)
		}
		return err
	}
}

func (repeatScanHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisKeyValueStore_KeysDeduplicated(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	rc.AddHook(repeatScanHook{})

	store := NewRedisKeyValueStore(rc, "avax:")
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "blinks_0x2", "[]"))
	require.NoError(t, store.Set(ctx, "blinks_0x1", "[]"))

	keys, err := store.Keys(ctx, models.LinkRecordKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"blinks_0x1", "blinks_0x2"}, keys)

	repo := NewLinkRecordRepository(store, nil, nil)
	addresses, err := repo.Addresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x1", "0x2"}, addresses)
}

func TestSQLKeyValueStoreSQLite(t *testing.T) {
	db, err := testingutil.SetupSQLiteDB()
	require.NoError(t, err)

	store := NewSQLKeyValueStore(db)
	exerciseKeyValueStore(t, store)

	keys, err := store.Keys(context.Background(), models.LinkRecordKeyPrefix)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blinks_a", "blinks_b"}, keys)

	key := "blinks_b"
	rows, err := NewKVEntryRepository(db).ByFilter(context.Background(), models.KVEntryFilter{Key: &key}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "blinks_b", rows[0].Key)
}

func TestSQLKeyValueStorePostgres(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		exerciseKeyValueStore(t, NewSQLKeyValueStore(testDB.DB))
		return nil
	})
	if errors.Is(err, testingutil.ErrTestDBNotConfigured) {
		t.Skip(err.Error())
	}
	require.NoError(t, err)
}

func TestSQLKeyValueStoreTransaction(t *testing.T) {
	db, err := testingutil.SetupSQLiteDB()
	require.NoError(t, err)
	store := NewSQLKeyValueStore(db)

	boom := errors.New("boom")
	err = WithTransaction(context.Background(), db, func(ctx context.Context) error {
		require.NoError(t, store.Set(ctx, "blinks_tx", "value"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok, err := store.Get(context.Background(), "blinks_tx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVEntryRepository_ByFilterPrefix(t *testing.T) {
	db, err := testingutil.SetupSQLiteDB()
	require.NoError(t, err)
	repo := NewKVEntryRepository(db)
	ctx := context.Background()

	for _, key := range []string{"blinks_0x2", "blinks_0x1", "other", "blinksX", "blinks_0x3"} {
		require.NoError(t, repo.Upsert(ctx, &models.KVEntry{Key: key, Value: "[]"}))
	}

	prefix := models.LinkRecordKeyPrefix
	rows, err := repo.ByFilter(ctx, models.KVEntryFilter{KeyPrefix: &prefix}, "key ASC", 2, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "blinks_0x1", rows[0].Key)
	assert.Equal(t, "blinks_0x2", rows[1].Key)

	all, err := repo.ByFilter(ctx, models.KVEntryFilter{KeyPrefix: &prefix}, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLKeyValueStore_RunInTx(t *testing.T) {
	db, err := testingutil.SetupSQLiteDB()
	require.NoError(t, err)
	store := NewSQLKeyValueStore(db)
	ctx := context.Background()

	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Set(ctx, "blinks_a", "1"))
		// a nested transaction joins the outer one
		return store.RunInTx(ctx, func(ctx context.Context) error {
			return store.Set(ctx, "blinks_b", "2")
		})
	}))
	keys, err := store.Keys(ctx, models.LinkRecordKeyPrefix)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"blinks_a", "blinks_b"}, keys)

	err = store.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Set(ctx, "blinks_c", "3"))
		panic("write path exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write path exploded")
	_, ok, err := store.Get(ctx, "blinks_c")
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingWriteSQLStore lets the SQL write happen, then reports a failure
type failingWriteSQLStore struct {
	*SQLKeyValueStore
	inTx bool
}

func (s *failingWriteSQLStore) Set(ctx context.Context, key, value string) error {
	_, s.inTx = ctx.Value(TxContextKey).(*gorm.DB)
	if err := s.SQLKeyValueStore.Set(ctx, key, value); err != nil {
		return err
	}
	return fmt.Errorf("%w: connection reset after write", ErrPersistenceUnavailable)
}

func TestLinkRecordRepository_AppendRollsBackOnSQLStores(t *testing.T) {
	db, err := testingutil.SetupSQLiteDB()
	require.NoError(t, err)
	ctx := context.Background()
	sqlStore := NewSQLKeyValueStore(db)

	first := testingutil.NewTestRecord(models.PlatformDEX, time.Now())
	NewLinkRecordRepository(sqlStore, nil, nil).Append(ctx, testingutil.TestAddress, first)

	var ops []string
	store := &failingWriteSQLStore{SQLKeyValueStore: sqlStore}
	repo := NewLinkRecordRepository(store, nil, func(op string, _ error) { ops = append(ops, op) })

	second := testingutil.NewTestRecord(models.PlatformTrade, time.Now())
	got := repo.Append(ctx, testingutil.TestAddress, second)
	assert.True(t, store.inTx)
	assert.Equal(t, []string{"append_write"}, ops)
	require.Len(t, got, 2)

	stored := repo.Load(ctx, testingutil.TestAddress)
	require.Len(t, stored, 1)
	assert.Equal(t, models.PlatformDEX, stored[0].Platform)
}

// fakeDynamo keeps items in memory keyed by the "key" attribute
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	fail  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) keyOf(m map[string]types.AttributeValue) string {
	var k dynamoKey
	_ = attributevalue.UnmarshalMap(m, &k)
	return k.Key
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[f.keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[f.keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, f.keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestDynamoKeyValueStore(t *testing.T) {
	client := newFakeDynamo()
	store := NewDynamoKeyValueStore(client, "blinks")
	require.NoError(t, store.CheckTable(context.Background()))
	exerciseKeyValueStore(t, store)

	t.Run("Unavailable", func(t *testing.T) {
		client.fail = errors.New("throttled")
		_, _, err := store.Get(context.Background(), "blinks_a")
		assert.ErrorIs(t, err, ErrPersistenceUnavailable)
		assert.ErrorIs(t, store.CheckTable(context.Background()), ErrPersistenceUnavailable)
	})
}

func storedKeyCount(t *testing.T, store KeyLister) int {
	t.Helper()
	keys, err := store.Keys(context.Background(), "")
	require.NoError(t, err)
	return len(keys)
}
