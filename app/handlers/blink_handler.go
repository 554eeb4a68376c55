package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/app/dto"
	businessflow "github.com/amirphl/avax-blinks/business_flow"
)

// BlinkHandlerInterface defines the wallet dashboard endpoints
type BlinkHandlerInterface interface {
	ListPlatforms(c fiber.Ctx) error
	ListBlinks(c fiber.Ctx) error
	GenerateBlink(c fiber.Ctx) error
	GetSummary(c fiber.Ctx) error
	ExportBlinks(c fiber.Ctx) error
}

// BlinkHandler serves blink generation and listing
type BlinkHandler struct {
	flow      businessflow.BlinkFlow
	logger    *zap.Logger
	timeout   time.Duration
	validator *validator.Validate
}

func NewBlinkHandler(flow businessflow.BlinkFlow, logger *zap.Logger, timeout time.Duration) BlinkHandlerInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BlinkHandler{
		flow:      flow,
		logger:    logger.Named("blink_handler"),
		timeout:   timeout,
		validator: validator.New(),
	}
}

func (h *BlinkHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, code string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

// ListPlatforms returns the active platform table
// @Summary List Platforms
// @Tags Blinks
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListPlatformsResponse}
// @Router /api/v1/platforms [get]
func (h *BlinkHandler) ListPlatforms(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/platforms", h.timeout)
	defer cancel()
	return c.JSON(dto.APIResponse{Success: true, Message: "Platforms retrieved successfully", Data: h.flow.ListPlatforms(ctx)})
}

// ListBlinks returns a wallet's blinks, most recent first, with its summary
// @Summary List Wallet Blinks
// @Tags Blinks
// @Produce json
// @Param address path string true "Wallet address"
// @Success 200 {object} dto.APIResponse{data=dto.ListBlinksResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/wallets/{address}/blinks [get]
func (h *BlinkHandler) ListBlinks(c fiber.Ctx) error {
	address, err := h.bindAddress(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid wallet address", "INVALID_ADDRESS", validationMessages(err))
	}
	ctx, cancel := createRequestContext(c, "/api/v1/wallets/:address/blinks", h.timeout)
	defer cancel()

	res, err := h.flow.ListBlinks(ctx, address)
	if err != nil {
		return h.flowError(c, err, "Failed to list blinks")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Blinks retrieved successfully", Data: res})
}

// GenerateBlink creates a blink for the selected platform
// @Summary Generate Blink
// @Tags Blinks
// @Accept json
// @Produce json
// @Param address path string true "Wallet address"
// @Param request body dto.GenerateBlinkRequest true "Platform selection"
// @Success 201 {object} dto.APIResponse{data=dto.GenerateBlinkResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/wallets/{address}/blinks [post]
func (h *BlinkHandler) GenerateBlink(c fiber.Ctx) error {
	address, err := h.bindAddress(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid wallet address", "INVALID_ADDRESS", validationMessages(err))
	}

	var req dto.GenerateBlinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.Platform = strings.TrimSpace(req.Platform)
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/wallets/:address/blinks", h.timeout)
	defer cancel()

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))
	metadata.Source = "http"

	res, err := h.flow.GenerateBlink(ctx, address, req.Platform, metadata)
	if err != nil {
		return h.flowError(c, err, "Failed to generate blink")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.APIResponse{Success: true, Message: "Blink generated successfully", Data: res})
}

// GetSummary returns the total and last-24h counts for a wallet
// @Summary Wallet Blink Summary
// @Tags Blinks
// @Produce json
// @Param address path string true "Wallet address"
// @Success 200 {object} dto.APIResponse{data=dto.SummaryResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/wallets/{address}/summary [get]
func (h *BlinkHandler) GetSummary(c fiber.Ctx) error {
	address, err := h.bindAddress(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid wallet address", "INVALID_ADDRESS", validationMessages(err))
	}
	ctx, cancel := createRequestContext(c, "/api/v1/wallets/:address/summary", h.timeout)
	defer cancel()

	res, err := h.flow.Summary(ctx, address)
	if err != nil {
		return h.flowError(c, err, "Failed to compute summary")
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Summary retrieved successfully", Data: res})
}

// ExportBlinks downloads a wallet's blinks as an Excel workbook
// @Summary Export Wallet Blinks
// @Tags Blinks
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param address path string true "Wallet address"
// @Success 200 {string} string "XLSX file"
// @Failure 400 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/wallets/{address}/blinks/export [get]
func (h *BlinkHandler) ExportBlinks(c fiber.Ctx) error {
	address, err := h.bindAddress(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid wallet address", "INVALID_ADDRESS", validationMessages(err))
	}
	ctx, cancel := createRequestContext(c, "/api/v1/wallets/:address/blinks/export", h.timeout)
	defer cancel()

	filename, data, err := h.flow.ExportBlinks(ctx, address)
	if err != nil {
		return h.flowError(c, err, "Failed to export blinks")
	}
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// bindAddress reads and validates the :address path segment
func (h *BlinkHandler) bindAddress(c fiber.Ctx) (string, error) {
	params := dto.WalletAddressParams{Address: strings.TrimSpace(c.Params("address"))}
	if err := h.validator.Struct(&params); err != nil {
		return "", err
	}
	return params.Address, nil
}

func (h *BlinkHandler) flowError(c fiber.Ctx, err error, message string) error {
	switch {
	case businessflow.IsInvalidAddress(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid wallet address", "INVALID_ADDRESS", nil)
	case businessflow.IsUnknownPlatform(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown platform", "UNKNOWN_PLATFORM", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Request timed out", "REQUEST_TIMEOUT", nil)
	}

	code := "INTERNAL_ERROR"
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code = be.Code
	}
	h.logger.Error(message, zap.String("code", code), zap.Error(err))
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
