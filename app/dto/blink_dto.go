package dto

// PlatformDTO is a destination a blink can point at
type PlatformDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	DestinationURL string `json:"destination_url"`
}

type ListPlatformsResponse struct {
	Table     string        `json:"table"`
	Platforms []PlatformDTO `json:"platforms"`
}

// LinkRecordDTO is a generated blink as returned by the API
type LinkRecordDTO struct {
	Platform      string `json:"platform"`
	PlatformTitle string `json:"platform_title"`
	Timestamp     string `json:"timestamp"`
	Display       string `json:"display"`
	Actual        string `json:"actual"`
}

type SummaryDTO struct {
	TotalCount   int `json:"total_count"`
	Last24hCount int `json:"last_24h_count"`
}

type WalletDTO struct {
	Address        string `json:"address"`
	DisplayAddress string `json:"display_address"`
}

// WalletAddressParams binds the :address path segment
type WalletAddressParams struct {
	Address string `uri:"address" validate:"required,eth_addr"`
}

// GenerateBlinkRequest represents the body of a blink generation request
type GenerateBlinkRequest struct {
	Platform string `json:"platform" validate:"required,max=64"`
}

type GenerateBlinkResponse struct {
	Wallet  WalletDTO       `json:"wallet"`
	Blink   LinkRecordDTO   `json:"blink"`
	Blinks  []LinkRecordDTO `json:"blinks"`
	Summary SummaryDTO      `json:"summary"`
}

type ListBlinksResponse struct {
	Wallet  WalletDTO       `json:"wallet"`
	Blinks  []LinkRecordDTO `json:"blinks"`
	Summary SummaryDTO      `json:"summary"`
}

type SummaryResponse struct {
	Wallet  WalletDTO  `json:"wallet"`
	Summary SummaryDTO `json:"summary"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Storage   string `json:"storage"`
}
