package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPlatformTables(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		titles []string
	}{
		{"", PlatformTableDashboard, []string{"Yield Yak", "Steakhut Finance", "Aave"}},
		{PlatformTableDashboard, PlatformTableDashboard, []string{"Yield Yak", "Steakhut Finance", "Aave"}},
		{PlatformTableGenerator, PlatformTableGenerator, []string{"BENQI Staking", "Wombat Exchange", "LFG Trading"}},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			table, err := BuiltinPlatformTable(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.Name())
			assert.Equal(t, []string{PlatformDEX, PlatformStaking, PlatformTrade}, table.IDs())

			var titles []string
			for _, e := range table.Entries() {
				titles = append(titles, e.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}

	_, err := BuiltinPlatformTable("legacy")
	assert.Error(t, err)
}

func TestNewPlatformTable_Validation(t *testing.T) {
	ok := PlatformEntry{ID: "a", DestinationURL: "https://a.example"}

	_, err := NewPlatformTable("t", []PlatformEntry{ok, {ID: "a", DestinationURL: "https://b.example"}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewPlatformTable("t", []PlatformEntry{{ID: "", DestinationURL: "https://a.example"}})
	assert.ErrorContains(t, err, "empty platform id")

	for _, dest := range []string{"", "/swap", "app.example/swap", "https://"} {
		_, err = NewPlatformTable("t", []PlatformEntry{{ID: "x", DestinationURL: dest}})
		assert.Error(t, err, dest)
	}

	table, err := NewPlatformTable("t", []PlatformEntry{ok})
	require.NoError(t, err)
	_, found := table.Lookup("b")
	assert.False(t, found)
}

func TestPlatformTable_TitleFallback(t *testing.T) {
	table, err := BuiltinPlatformTable(PlatformTableDashboard)
	require.NoError(t, err)
	assert.Equal(t, "Aave", table.Title(PlatformTrade))
	assert.Equal(t, DefaultPlatformTitle, table.Title("retired"))
}

func TestTruncateAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0xABC0000000000000000000000000000000001234", "0xABC0...1234"},
		{"0x12345678", "0x12345678"},
		{"0x123456789", "0x1234...6789"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateAddress(tt.in), tt.in)
	}

	assert.False(t, AccountSession{}.Connected())
	s := AccountSession{Address: "0xABC0000000000000000000000000000000001234"}
	assert.True(t, s.Connected())
	assert.Equal(t, "0xABC0...1234", s.DisplayAddress())
}

func TestLinkRecordKey(t *testing.T) {
	assert.Equal(t, "blinks_0xAbC", LinkRecordKey("0xAbC"))
	assert.NotEqual(t, LinkRecordKey("0xabc"), LinkRecordKey("0xABC"))
}
