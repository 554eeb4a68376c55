package businessflow

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/avax-blinks/config"
	"github.com/amirphl/avax-blinks/models"
	testutil "github.com/amirphl/avax-blinks/testing"
	"github.com/amirphl/avax-blinks/utils"
)

func dashboardTable(t *testing.T) *models.PlatformTable {
	t.Helper()
	table, err := models.BuiltinPlatformTable(models.PlatformTableDashboard)
	require.NoError(t, err)
	return table
}

func TestLinkComposer_ComposeForStaking(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	composer := NewLinkComposer(config.DefaultRedirectBase, dashboardTable(t), testutil.FixedClock(at))

	record, err := composer.ComposeFor(models.PlatformStaking)
	require.NoError(t, err)

	base := "https://unfold2024mlinks.vercel.app/dapp/nav1"
	assert.Equal(t, models.PlatformStaking, record.Platform)
	assert.Equal(t, "2023-11-14T22:13:20.000Z", record.Timestamp)
	assert.Equal(t, base+"?url=https%3A%2F%2Fyieldyak.com%2Favalanche%2Fstaking%2F&t=1700000000000", record.Actual)
	assert.Equal(t, base+"?url=https://yieldyak.com/avalanche/staking/&t=1700000000000", record.Display)
}

func TestLinkComposer_AllRegisteredPlatforms(t *testing.T) {
	for _, name := range []string{models.PlatformTableDashboard, models.PlatformTableGenerator} {
		table, err := models.BuiltinPlatformTable(name)
		require.NoError(t, err)

		before := time.Now().UnixMilli()
		composer := NewLinkComposer(config.DefaultRedirectBase, table, nil)
		for _, entry := range table.Entries() {
			record, err := composer.Compose(entry.ID, entry.DestinationURL)
			require.NoError(t, err)
			after := time.Now().UnixMilli()

			encoded, err := utils.EncodeURIComponent(entry.DestinationURL)
			require.NoError(t, err)
			assert.Contains(t, record.Actual, "?url="+encoded+"&t=")
			idx := strings.LastIndex(record.Actual, "&t=")
			require.Positive(t, idx)
			millis, err := strconv.ParseInt(record.Actual[idx+3:], 10, 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, millis, before)
			assert.LessOrEqual(t, millis, after)
			assert.True(t, strings.HasSuffix(record.Display, "&t="+record.Actual[idx+3:]))
		}
	}
}

func TestLinkComposer_Errors(t *testing.T) {
	composer := NewLinkComposer(config.DefaultRedirectBase, dashboardTable(t), nil)

	_, err := composer.ComposeFor("lending")
	assert.True(t, IsUnknownPlatform(err))

	_, err = composer.Compose("lending", "https://example.com")
	assert.True(t, IsUnknownPlatform(err))

	for _, dest := range []string{"", "/relative/path", "example.com/swap", "https://example.com/\xff"} {
		_, err = composer.Compose(models.PlatformDEX, dest)
		assert.True(t, IsInvalidDestination(err), dest)
	}

	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "INVALID_DESTINATION", be.Code)
}
