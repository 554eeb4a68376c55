package models

// LinkRecord is one generated blink as persisted under a wallet's partition.
// Records are immutable once created.
type LinkRecord struct {
	Platform  string `json:"platform"`
	Timestamp string `json:"timestamp"`
	Display   string `json:"display"`
	Actual    string `json:"actual"`
}

// LinkRecordKeyPrefix prefixes every wallet partition key in the key-value store
const LinkRecordKeyPrefix = "blinks_"

// LinkRecordKey returns the storage key for a wallet address
func LinkRecordKey(address string) string {
	return LinkRecordKeyPrefix + address
}
