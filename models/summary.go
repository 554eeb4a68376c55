package models

// Summary is derived from a wallet's records at read time and never persisted
type Summary struct {
	TotalCount   int `json:"total_count"`
	Last24hCount int `json:"last_24h_count"`
}
