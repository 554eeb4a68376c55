// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/app/dto"
	"github.com/amirphl/avax-blinks/app/handlers"
	"github.com/amirphl/avax-blinks/app/middleware"
	"github.com/amirphl/avax-blinks/config"
	_ "github.com/amirphl/avax-blinks/docs"
	"github.com/amirphl/avax-blinks/utils"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app          *fiber.App
	blinkHandler handlers.BlinkHandlerInterface
	cfg          *config.ProductionConfig
	logger       *zap.Logger
	storage      string
}

// NewFiberRouter creates a new Fiber router. storage names the active record store backend for health reports.
func NewFiberRouter(blinkHandler handlers.BlinkHandlerInterface, cfg *config.ProductionConfig, log *zap.Logger, storage string) Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &FiberRouter{
		blinkHandler: blinkHandler,
		cfg:          cfg,
		logger:       log.Named("router"),
		storage:      storage,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Avax Blinks API",
		ServerHeader: "Avax-Blinks",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// API documentation route (development only)
	if r.cfg.Deployment.IsDevelopment() {
		api.Get("/docs", r.getAPIDocumentation)
		api.Get("/swagger.json", r.serveSwaggerJSON)
		r.app.Get("/swagger", r.serveSwaggerUI)
		r.logger.Info("API documentation enabled for development")
	}

	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == healthPath
	}))

	api.Get("/platforms", r.blinkHandler.ListPlatforms)

	wallets := api.Group("/wallets/:address")
	wallets.Get("/blinks", r.blinkHandler.ListBlinks)
	wallets.Post("/blinks", r.rateLimiter(r.cfg.Security.GenerateRateLimit, nil), r.blinkHandler.GenerateBlink)
	wallets.Get("/blinks/export", r.blinkHandler.ExportBlinks)
	wallets.Get("/summary", r.blinkHandler.GetSummary)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

func (r *FiberRouter) rateLimiter(limit int, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https:; connect-src 'self' https:; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-Response-Time", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// xlsx is already zipped
			return strings.HasSuffix(c.Path(), "/export")
		},
	}))

	// Only static documentation is cached; blink listings must reflect the latest write
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || !strings.Contains(c.Path(), "/docs")
		},
		Expiration: 30 * time.Minute,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
		},
	}))

	r.app.Use(r.securityMiddleware)

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.Any("error", e),
				zap.Any("request_id", c.Locals("requestid")),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))
}

func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "Avax-Blinks")

	if slices.Contains(r.cfg.Security.IPBlacklist, c.IP()) {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Access denied from this IP address",
			Error: dto.ErrorDetail{
				Code: "ACCESS_DENIED",
			},
		})
	}

	return c.Next()
}

func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck reports liveness
// @Summary Health Check
// @Tags System
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse}
// @Router /api/v1/health [get]
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: dto.HealthResponse{
			Status:    "ok",
			Timestamp: utils.UTCNowUnix(),
			Service:   "avax-blinks-api",
			Version:   r.cfg.Deployment.Version,
			Storage:   r.storage,
		},
	})
}

func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       "Avax Blinks API Documentation",
			"version":     r.cfg.Deployment.Version,
			"description": "Generate Avalanche DeFi redirect links and track them per wallet",
			"endpoints":   GetRouteDocumentation(),
		},
	})
}

func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	htmlContent := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Avax Blinks API - Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/v1/swagger.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                validatorUrl: null
            });
        };
    </script>
</body>
</html>`

	c.Set("Content-Type", "text/html")
	return c.SendString(htmlContent)
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set("Content-Type", "application/json")
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// Global error handler
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	r.logger.Error("request failed", zap.Int("status", code), zap.Error(err))

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNowUnix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// GetRouteDocumentation returns API documentation
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{
			"method":      "GET",
			"path":        "/api/v1/health",
			"description": "Health check endpoint",
			"parameters":  map[string]any{},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/platforms",
			"description": "List the platforms a blink can point at",
			"parameters":  map[string]any{},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/wallets/:address/blinks",
			"description": "List a wallet's blinks, most recent first, with its summary",
			"parameters": map[string]any{
				"address": "string (required) - 0x-prefixed wallet address",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/wallets/:address/blinks",
			"description": "Generate a blink for a platform and store it for the wallet",
			"parameters": map[string]any{
				"address":  "string (required) - 0x-prefixed wallet address",
				"platform": "string (required) - platform id from /api/v1/platforms",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/wallets/:address/summary",
			"description": "Total and last 24h blink counts for a wallet",
			"parameters": map[string]any{
				"address": "string (required) - 0x-prefixed wallet address",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/wallets/:address/blinks/export",
			"description": "Download a wallet's blinks as an Excel workbook",
			"parameters": map[string]any{
				"address": "string (required) - 0x-prefixed wallet address",
			},
		},
	}
}
