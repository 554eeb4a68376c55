package businessflow

import (
	"github.com/amirphl/avax-blinks/app/dto"
	"github.com/amirphl/avax-blinks/models"
)

const RequestIDKey = "X-Request-ID"

const tracerName = "github.com/amirphl/avax-blinks/business_flow"

// ClientMetadata holds request information attached to generation logs
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	Source    string `json:"source,omitempty"` // http, cli
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func ToPlatformDTO(entry models.PlatformEntry) dto.PlatformDTO {
	return dto.PlatformDTO{
		ID:             entry.ID,
		Title:          entry.Title,
		Description:    entry.Description,
		DestinationURL: entry.DestinationURL,
	}
}

// ToLinkRecordDTO converts a stored record, resolving its title against the active table
func ToLinkRecordDTO(record models.LinkRecord, platforms *models.PlatformTable) dto.LinkRecordDTO {
	return dto.LinkRecordDTO{
		Platform:      record.Platform,
		PlatformTitle: platforms.Title(record.Platform),
		Timestamp:     record.Timestamp,
		Display:       record.Display,
		Actual:        record.Actual,
	}
}

func ToLinkRecordDTOs(records []models.LinkRecord, platforms *models.PlatformTable) []dto.LinkRecordDTO {
	out := make([]dto.LinkRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, ToLinkRecordDTO(r, platforms))
	}
	return out
}

func ToSummaryDTO(summary models.Summary) dto.SummaryDTO {
	return dto.SummaryDTO{
		TotalCount:   summary.TotalCount,
		Last24hCount: summary.Last24hCount,
	}
}

func ToWalletDTO(address string) dto.WalletDTO {
	session := models.AccountSession{Address: address}
	return dto.WalletDTO{
		Address:        session.Address,
		DisplayAddress: session.DisplayAddress(),
	}
}
