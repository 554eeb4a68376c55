package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/app/dto"
	"github.com/amirphl/avax-blinks/app/services"
	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/repository"
	"github.com/amirphl/avax-blinks/utils"
)

// BlinkFlow handles blink generation and the per-wallet dashboard
type BlinkFlow interface {
	ListPlatforms(ctx context.Context) *dto.ListPlatformsResponse
	GenerateBlink(ctx context.Context, address, platformID string, metadata *ClientMetadata) (*dto.GenerateBlinkResponse, error)
	ListBlinks(ctx context.Context, address string) (*dto.ListBlinksResponse, error)
	Summary(ctx context.Context, address string) (*dto.SummaryResponse, error)
	ExportBlinks(ctx context.Context, address string) (string, []byte, error)
	ClearBlinks(ctx context.Context, address string) error
	ListWallets(ctx context.Context) ([]dto.WalletDTO, error)
}

// GenerationObserver is notified once per stored blink
type GenerationObserver func(platform string)

// BlinkFlowImpl implements the blink business logic
type BlinkFlowImpl struct {
	composer   LinkComposer
	platforms  *models.PlatformTable
	records    repository.LinkRecordRepository
	publisher  services.EventPublisher
	logger     *zap.Logger
	delay      time.Duration
	now        func() time.Time
	onGenerate GenerationObserver
	validate   *validator.Validate
}

// NewBlinkFlow creates a new blink flow instance
func NewBlinkFlow(
	composer LinkComposer,
	platforms *models.PlatformTable,
	records repository.LinkRecordRepository,
	publisher services.EventPublisher,
	logger *zap.Logger,
	delay time.Duration,
	now func() time.Time,
	onGenerate GenerationObserver,
) BlinkFlow {
	if publisher == nil {
		publisher = services.NoopEventPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = utils.UTCNow
	}
	return &BlinkFlowImpl{
		composer:   composer,
		platforms:  platforms,
		records:    records,
		publisher:  publisher,
		logger:     logger.Named("blink_flow"),
		delay:      delay,
		now:        now,
		onGenerate: onGenerate,
		validate:   validator.New(),
	}
}

func (f *BlinkFlowImpl) ListPlatforms(ctx context.Context) *dto.ListPlatformsResponse {
	entries := f.platforms.Entries()
	out := make([]dto.PlatformDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToPlatformDTO(e))
	}
	return &dto.ListPlatformsResponse{
		Table:     f.platforms.Name(),
		Platforms: out,
	}
}

// GenerateBlink composes a link for the platform, stores it first in the wallet's
// list and publishes a BlinkGenerated event.
func (f *BlinkFlowImpl) GenerateBlink(ctx context.Context, address, platformID string, metadata *ClientMetadata) (*dto.GenerateBlinkResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "BlinkFlow.GenerateBlink")
	defer span.End()
	span.SetAttributes(attribute.String("blink.platform", platformID))

	if err := f.validateAddress(address); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := f.simulateLatency(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, NewBusinessError("GENERATION_CANCELLED", "Blink generation was cancelled", err)
	}

	record, err := f.composer.ComposeFor(platformID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records := f.records.Append(ctx, address, record)
	summary := Summarize(records, f.now())

	if f.onGenerate != nil {
		f.onGenerate(record.Platform)
	}
	f.publish(ctx, address, record)

	fields := []zap.Field{
		zap.String("address", address),
		zap.String("platform", record.Platform),
		zap.String("timestamp", record.Timestamp),
		zap.Int("total_count", summary.TotalCount),
	}
	if metadata != nil {
		fields = append(fields,
			zap.String("ip", metadata.IPAddress),
			zap.String("user_agent", metadata.UserAgent),
			zap.String("request_id", metadata.RequestID),
			zap.String("source", metadata.Source),
		)
	}
	f.logger.Info("blink generated", fields...)

	return &dto.GenerateBlinkResponse{
		Wallet:  ToWalletDTO(address),
		Blink:   ToLinkRecordDTO(record, f.platforms),
		Blinks:  ToLinkRecordDTOs(records, f.platforms),
		Summary: ToSummaryDTO(summary),
	}, nil
}

func (f *BlinkFlowImpl) ListBlinks(ctx context.Context, address string) (*dto.ListBlinksResponse, error) {
	if err := f.validateAddress(address); err != nil {
		return nil, err
	}
	records := f.records.Load(ctx, address)
	return &dto.ListBlinksResponse{
		Wallet:  ToWalletDTO(address),
		Blinks:  ToLinkRecordDTOs(records, f.platforms),
		Summary: ToSummaryDTO(Summarize(records, f.now())),
	}, nil
}

func (f *BlinkFlowImpl) Summary(ctx context.Context, address string) (*dto.SummaryResponse, error) {
	if err := f.validateAddress(address); err != nil {
		return nil, err
	}
	records := f.records.Load(ctx, address)
	return &dto.SummaryResponse{
		Wallet:  ToWalletDTO(address),
		Summary: ToSummaryDTO(Summarize(records, f.now())),
	}, nil
}

// ExportBlinks renders the wallet's records and summary as an XLSX workbook
func (f *BlinkFlowImpl) ExportBlinks(ctx context.Context, address string) (string, []byte, error) {
	if err := f.validateAddress(address); err != nil {
		return "", nil, err
	}
	records := f.records.Load(ctx, address)
	summary := Summarize(records, f.now())

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const blinksSheet, summarySheet = "Blinks", "Summary"
	if err := xl.SetSheetName(xl.GetSheetName(0), blinksSheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", fmt.Errorf("%w: %v", ErrExportFailed, err))
	}

	header := []string{"platform", "title", "timestamp", "display", "actual"}
	_ = xl.SetSheetRow(blinksSheet, "A1", &header)
	for i, r := range records {
		row := []string{r.Platform, f.platforms.Title(r.Platform), r.Timestamp, r.Display, r.Actual}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(blinksSheet, cellRef, &row)
	}

	if _, err := xl.NewSheet(summarySheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare Excel sheet", fmt.Errorf("%w: %v", ErrExportFailed, err))
	}
	summaryRows := [][]string{
		{"address", address},
		{"total_count", strconv.Itoa(summary.TotalCount)},
		{"last_24h_count", strconv.Itoa(summary.Last24hCount)},
		{"exported_at", utils.FormatISOMillis(f.now())},
	}
	for i, row := range summaryRows {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = xl.SetSheetRow(summarySheet, cellRef, &row)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", fmt.Errorf("%w: %v", ErrExportFailed, err))
	}
	return fmt.Sprintf("blinks_%s.xlsx", address), buf.Bytes(), nil
}

func (f *BlinkFlowImpl) ClearBlinks(ctx context.Context, address string) error {
	if err := f.validateAddress(address); err != nil {
		return err
	}
	if err := f.records.Clear(ctx, address); err != nil {
		return NewBusinessError("CLEAR_BLINKS_FAILED", "Failed to clear blinks", err)
	}
	f.logger.Info("blinks cleared", zap.String("address", address))
	return nil
}

// ListWallets returns every wallet with stored blinks, when the store can enumerate them
func (f *BlinkFlowImpl) ListWallets(ctx context.Context) ([]dto.WalletDTO, error) {
	addresses, err := f.records.Addresses(ctx)
	if err != nil {
		return nil, NewBusinessError("LIST_WALLETS_FAILED", "Failed to list wallets", err)
	}
	out := make([]dto.WalletDTO, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, ToWalletDTO(a))
	}
	return out, nil
}

func (f *BlinkFlowImpl) validateAddress(address string) error {
	if err := f.validate.Var(address, "required,eth_addr"); err != nil {
		return NewBusinessErrorf("INVALID_ADDRESS", "Wallet address %q is not valid", ErrInvalidAddress, address)
	}
	return nil
}

func (f *BlinkFlowImpl) simulateLatency(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(f.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *BlinkFlowImpl) publish(ctx context.Context, address string, record models.LinkRecord) {
	evt := services.BlinkGeneratedEvent{
		ID:        uuid.NewString(),
		Address:   address,
		Platform:  record.Platform,
		Actual:    record.Actual,
		Timestamp: record.Timestamp,
	}
	if err := f.publisher.PublishBlinkGenerated(ctx, evt); err != nil {
		f.logger.Warn("failed to publish blink event", zap.String("address", address), zap.Error(err))
	}
}

// CopyToClipboard writes the actual link to the clipboard. Failures are logged and reported as false.
func CopyToClipboard(ctx context.Context, clipboard services.ClipboardService, link string, logger *zap.Logger) bool {
	if clipboard == nil {
		return false
	}
	if err := clipboard.WriteText(ctx, link); err != nil {
		if logger != nil {
			logger.Warn("clipboard write failed", zap.Error(fmt.Errorf("%w: %v", ErrClipboardWriteFailed, err)))
		}
		return false
	}
	return true
}
