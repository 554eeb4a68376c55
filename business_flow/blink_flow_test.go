package businessflow

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/amirphl/avax-blinks/app/services"
	"github.com/amirphl/avax-blinks/config"
	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/repository"
	testutil "github.com/amirphl/avax-blinks/testing"
)

type blinkFlowFixture struct {
	flow      BlinkFlow
	store     *repository.MemoryKeyValueStore
	records   repository.LinkRecordRepository
	publisher *services.MockEventPublisher
	generated []string
	now       time.Time
}

func newBlinkFlowFixture(t *testing.T, delay time.Duration) *blinkFlowFixture {
	t.Helper()
	fx := &blinkFlowFixture{
		store:     repository.NewMemoryKeyValueStore(),
		publisher: services.NewMockEventPublisher(),
		now:       time.UnixMilli(1700000000000).UTC(),
	}
	table := dashboardTable(t)
	clock := testutil.FixedClock(fx.now)
	fx.records = repository.NewLinkRecordRepository(fx.store, zap.NewNop(), nil)
	fx.flow = NewBlinkFlow(
		NewLinkComposer(config.DefaultRedirectBase, table, clock),
		table,
		fx.records,
		fx.publisher,
		zap.NewNop(),
		delay,
		clock,
		func(platform string) { fx.generated = append(fx.generated, platform) },
	)
	return fx
}

func TestBlinkFlow_GenerateBlink(t *testing.T) {
	fx := newBlinkFlowFixture(t, 0)
	ctx := context.Background()

	first, err := fx.flow.GenerateBlink(ctx, testutil.TestAddress, models.PlatformStaking, NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)
	assert.Equal(t, "Yield Yak", first.Blink.PlatformTitle)
	assert.Equal(t, 1, first.Summary.TotalCount)
	assert.Equal(t, 1, first.Summary.Last24hCount)
	assert.Equal(t, "0xABC0...1234", first.Wallet.DisplayAddress)

	second, err := fx.flow.GenerateBlink(ctx, testutil.TestAddress, models.PlatformTrade, nil)
	require.NoError(t, err)
	require.Len(t, second.Blinks, 2)
	assert.Equal(t, models.PlatformTrade, second.Blinks[0].Platform)
	assert.Equal(t, models.PlatformStaking, second.Blinks[1].Platform)
	assert.Equal(t, 2, second.Summary.TotalCount)

	assert.Equal(t, []string{models.PlatformStaking, models.PlatformTrade}, fx.generated)

	events := fx.publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, testutil.TestAddress, events[0].Address)
	assert.Equal(t, first.Blink.Actual, events[0].Actual)
	assert.NotEmpty(t, events[0].ID)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestBlinkFlow_GenerateBlinkRejectsInput(t *testing.T) {
	fx := newBlinkFlowFixture(t, 0)
	ctx := context.Background()

	_, err := fx.flow.GenerateBlink(ctx, "not-an-address", models.PlatformDEX, nil)
	assert.True(t, IsInvalidAddress(err))

	_, err = fx.flow.GenerateBlink(ctx, testutil.TestAddress, "lending", nil)
	assert.True(t, IsUnknownPlatform(err))

	assert.Zero(t, storedKeyCount(t, fx.store))
	assert.Empty(t, fx.publisher.Events())
	assert.Empty(t, fx.generated)
}

func TestBlinkFlow_GenerationDelayHonoursContext(t *testing.T) {
	fx := newBlinkFlowFixture(t, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fx.flow.GenerateBlink(ctx, testutil.TestAddress, models.PlatformDEX, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Zero(t, storedKeyCount(t, fx.store))
}

func TestBlinkFlow_GenerationDelay(t *testing.T) {
	fx := newBlinkFlowFixture(t, 10*time.Millisecond)
	start := time.Now()
	_, err := fx.flow.GenerateBlink(context.Background(), testutil.TestAddress, models.PlatformDEX, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestBlinkFlow_PublishFailureIsNotReturned(t *testing.T) {
	fx := newBlinkFlowFixture(t, 0)
	fx.publisher.Err = errors.New("broker down")

	resp, err := fx.flow.GenerateBlink(context.Background(), testutil.TestAddress, models.PlatformDEX, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Blinks, 1)
}

func TestBlinkFlow_ListAndSummary(t *testing.T) {
	fx := newBlinkFlowFixture(t, 0)
	ctx := context.Background()

	empty, err := fx.flow.ListBlinks(ctx, testutil.TestAddress)
	require.NoError(t, err)
	assert.NotNil(t, empty.Blinks)
	assert.Empty(t, empty.Blinks)
	assert.Equal(t, 0, empty.Summary.TotalCount)

	old := testutil.NewTestRecord("retired", fx.now.Add(-48*time.Hour))
	fx.records.Append(ctx, testutil.TestAddress, old)
	_, err = fx.flow.GenerateBlink(ctx, testutil.TestAddress, models.PlatformDEX, nil)
	require.NoError(t, err)

	list, err := fx.flow.ListBlinks(ctx, testutil.TestAddress)
	require.NoError(t, err)
	require.Len(t, list.Blinks, 2)
	assert.Equal(t, models.DefaultPlatformTitle, list.Blinks[1].PlatformTitle)

	summary, err := fx.flow.Summary(ctx, testutil.TestAddress)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Summary.TotalCount)
	assert.Equal(t, 1, summary.Summary.Last24hCount)

	_, err = fx.flow.Summary(ctx, "")
	assert.True(t, IsInvalidAddress(err))
}

func TestBlinkFlow_ExportBlinks(t *testing.T) {
	fx := newBlinkFlowFixture(t, 0)
	ctx := context.Background()
	_, err := fx.flow.GenerateBlink(ctx, testutil.TestAddress, models.PlatformStaking, nil)
	require.NoError(t, err)

	filename, data, err := fx.flow.ExportBlinks(ctx, testutil.TestAddress)
	require.NoError(t, err)
	assert.Equal(t, "blinks_"+testutil.TestAddress+".xlsx", filename)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows("Blinks")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"platform", "title", "timestamp", "display", "actual"}, rows[0])
	assert.Equal(t, models.PlatformStaking, rows[1][0])
	assert.Equal(t, "Yield Yak", rows[1][1])

	summary, err := xl.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"total_count", "1"}, summary[1])
}

func TestBlinkFlow_ClearBlinks(t *testing.T) {
	fx := newBlinkFlowFixture(t, 0)
	ctx := context.Background()
	_, err := fx.flow.GenerateBlink(ctx, testutil.TestAddress, models.PlatformDEX, nil)
	require.NoError(t, err)

	require.NoError(t, fx.flow.ClearBlinks(ctx, testutil.TestAddress))
	assert.Empty(t, fx.records.Load(ctx, testutil.TestAddress))
}

func TestCopyToClipboard(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	ctx := context.Background()

	clip := services.NewMockClipboard()
	assert.True(t, CopyToClipboard(ctx, clip, "https://example.com/a", logger))
	assert.Equal(t, []string{"https://example.com/a"}, clip.Written())

	clip.Err = errors.New("no display")
	assert.False(t, CopyToClipboard(ctx, clip, "https://example.com/b", logger))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], ErrClipboardWriteFailed.Error())

	assert.False(t, CopyToClipboard(ctx, nil, "x", logger))
}

func TestBlinkFlow_ListWallets(t *testing.T) {
	fx := newBlinkFlowFixture(t, 0)
	ctx := context.Background()
	_, err := fx.flow.GenerateBlink(ctx, testutil.TestAddress, models.PlatformDEX, nil)
	require.NoError(t, err)

	wallets, err := fx.flow.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, testutil.TestAddress, wallets[0].Address)

	failing := NewBlinkFlow(nil, dashboardTable(t), repository.NewLinkRecordRepository(testutil.NewFailingKeyValueStore(false, false), nil, nil), nil, nil, 0, nil, nil)
	_, err = failing.ListWallets(ctx)
	assert.True(t, IsListingUnsupported(err))
}

func storedKeyCount(t *testing.T, store repository.KeyLister) int {
	t.Helper()
	keys, err := store.Keys(context.Background(), "")
	require.NoError(t, err)
	return len(keys)
}
