// Package models contains domain entities for blink generation and per-wallet bookkeeping
package models

import (
	"fmt"
	"net/url"
	"sort"
)

// Platform identifiers shared by every platform table
const (
	PlatformStaking = "staking"
	PlatformDEX     = "dex"
	PlatformTrade   = "trade"
)

// Platform table names
const (
	PlatformTableDashboard = "dashboard"
	PlatformTableGenerator = "generator"
)

// DefaultPlatformTitle is shown for records whose platform is no longer registered
const DefaultPlatformTitle = "Avax Blink"

// PlatformEntry is a static destination a blink can point at
type PlatformEntry struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	DestinationURL string `json:"destination_url"`
}

// PlatformTable is an immutable lookup of platform entries keyed by id
type PlatformTable struct {
	name    string
	order   []string
	entries map[string]PlatformEntry
}

// NewPlatformTable builds a table and checks that ids are unique and destinations absolute
func NewPlatformTable(name string, entries []PlatformEntry) (*PlatformTable, error) {
	t := &PlatformTable{
		name:    name,
		order:   make([]string, 0, len(entries)),
		entries: make(map[string]PlatformEntry, len(entries)),
	}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("platform table %s: empty platform id", name)
		}
		if _, dup := t.entries[e.ID]; dup {
			return nil, fmt.Errorf("platform table %s: duplicate platform id %q", name, e.ID)
		}
		u, err := url.Parse(e.DestinationURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("platform table %s: destination for %q is not an absolute URL", name, e.ID)
		}
		t.entries[e.ID] = e
		t.order = append(t.order, e.ID)
	}
	return t, nil
}

// Name returns the table name
func (t *PlatformTable) Name() string { return t.name }

// Lookup resolves a platform id
func (t *PlatformTable) Lookup(id string) (PlatformEntry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// Entries returns the entries in declaration order
func (t *PlatformTable) Entries() []PlatformEntry {
	out := make([]PlatformEntry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id])
	}
	return out
}

// IDs returns the registered ids sorted alphabetically
func (t *PlatformTable) IDs() []string {
	ids := append([]string(nil), t.order...)
	sort.Strings(ids)
	return ids
}

// Title returns the display title for a platform id, falling back to DefaultPlatformTitle
func (t *PlatformTable) Title(id string) string {
	if e, ok := t.entries[id]; ok {
		return e.Title
	}
	return DefaultPlatformTitle
}

// dashboardPlatforms are the destinations listed on the wallet dashboard
var dashboardPlatforms = []PlatformEntry{
	{
		ID:             PlatformStaking,
		Title:          "Yield Yak",
		Description:    "Auto-compounding AVAX staking",
		DestinationURL: "https://yieldyak.com/avalanche/staking/",
	},
	{
		ID:             PlatformDEX,
		Title:          "Steakhut Finance",
		Description:    "Swap tokens on Avalanche",
		DestinationURL: "https://www.steakhut.finance/swap",
	},
	{
		ID:             PlatformTrade,
		Title:          "Aave",
		Description:    "Lend and borrow on the Avalanche v3 market",
		DestinationURL: "https://app.aave.com/?marketName=proto_avalanche_v3",
	},
}

// generatorPlatforms are the destinations offered by the standalone link generator
var generatorPlatforms = []PlatformEntry{
	{
		ID:             PlatformStaking,
		Title:          "BENQI Staking",
		Description:    "Liquid staking for AVAX",
		DestinationURL: "https://staking.benqi.fi/stake",
	},
	{
		ID:             PlatformDEX,
		Title:          "Wombat Exchange",
		Description:    "Swap WAVAX to USDC on Avalanche",
		DestinationURL: "https://app.wombat.exchange/swap?from=WAVAX%2Cavalanche&to=USDC%2Cavalanche&chain=avalanche",
	},
	{
		ID:             PlatformTrade,
		Title:          "LFG Trading",
		Description:    "Trade on LFJ",
		DestinationURL: "https://lfj.gg/avalanche/trade",
	},
}

// BuiltinPlatformTable returns one of the compiled-in tables by name
func BuiltinPlatformTable(name string) (*PlatformTable, error) {
	switch name {
	case "", PlatformTableDashboard:
		return NewPlatformTable(PlatformTableDashboard, dashboardPlatforms)
	case PlatformTableGenerator:
		return NewPlatformTable(PlatformTableGenerator, generatorPlatforms)
	default:
		return nil, fmt.Errorf("unknown platform table %q", name)
	}
}
