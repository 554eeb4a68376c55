package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/app/dto"
	"github.com/amirphl/avax-blinks/app/services"
	businessflow "github.com/amirphl/avax-blinks/business_flow"
	"github.com/amirphl/avax-blinks/config"
	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/repository"
	testutil "github.com/amirphl/avax-blinks/testing"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	table, err := models.BuiltinPlatformTable(models.PlatformTableDashboard)
	require.NoError(t, err)

	clock := testutil.FixedClock(time.UnixMilli(1700000000000))
	records := repository.NewLinkRecordRepository(repository.NewMemoryKeyValueStore(), zap.NewNop(), nil)
	flow := businessflow.NewBlinkFlow(
		businessflow.NewLinkComposer(config.DefaultRedirectBase, table, clock),
		table, records, services.NewMockEventPublisher(), zap.NewNop(), 0, clock, nil,
	)
	h := NewBlinkHandler(flow, zap.NewNop(), time.Second)

	app := fiber.New()
	app.Get("/platforms", h.ListPlatforms)
	app.Get("/wallets/:address/blinks", h.ListBlinks)
	app.Post("/wallets/:address/blinks", h.GenerateBlink)
	app.Get("/wallets/:address/summary", h.GetSummary)
	app.Get("/wallets/:address/blinks/export", h.ExportBlinks)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func TestBlinkHandler_ListPlatforms(t *testing.T) {
	app := newTestApp(t)
	resp, env := doRequest(t, app, http.MethodGet, "/platforms", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	var data dto.ListPlatformsResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.PlatformTableDashboard, data.Table)
	require.Len(t, data.Platforms, 3)
	assert.Equal(t, models.PlatformStaking, data.Platforms[0].ID)
}

func TestBlinkHandler_GenerateAndList(t *testing.T) {
	app := newTestApp(t)
	path := "/wallets/" + testutil.TestAddress + "/blinks"

	resp, env := doRequest(t, app, http.MethodPost, path, `{"platform":"staking"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var generated dto.GenerateBlinkResponse
	require.NoError(t, json.Unmarshal(env.Data, &generated))
	assert.Equal(t, config.DefaultRedirectBase+"?url=https%3A%2F%2Fyieldyak.com%2Favalanche%2Fstaking%2F&t=1700000000000", generated.Blink.Actual)
	assert.Equal(t, "2023-11-14T22:13:20.000Z", generated.Blink.Timestamp)

	_, _ = doRequest(t, app, http.MethodPost, path, `{"platform":"dex"}`)

	resp, env = doRequest(t, app, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.ListBlinksResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Blinks, 2)
	assert.Equal(t, models.PlatformDEX, list.Blinks[0].Platform)
	assert.Equal(t, 2, list.Summary.TotalCount)

	resp, env = doRequest(t, app, http.MethodGet, "/wallets/"+testutil.TestAddress+"/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary dto.SummaryResponse
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, dto.SummaryDTO{TotalCount: 2, Last24hCount: 2}, summary.Summary)
}

func TestBlinkHandler_Errors(t *testing.T) {
	app := newTestApp(t)
	valid := "/wallets/" + testutil.TestAddress + "/blinks"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad address on list", http.MethodGet, "/wallets/0xnothex/blinks", "", http.StatusBadRequest, "INVALID_ADDRESS"},
		{"bad address on summary", http.MethodGet, "/wallets/abc/summary", "", http.StatusBadRequest, "INVALID_ADDRESS"},
		{"unknown platform", http.MethodPost, valid, `{"platform":"lending"}`, http.StatusBadRequest, "UNKNOWN_PLATFORM"},
		{"missing platform", http.MethodPost, valid, `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed body", http.MethodPost, valid, `{"platform":`, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := doRequest(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestBlinkHandler_ExportBlinks(t *testing.T) {
	app := newTestApp(t)
	_, _ = doRequest(t, app, http.MethodPost, "/wallets/"+testutil.TestAddress+"/blinks", `{"platform":"trade"}`)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/wallets/"+testutil.TestAddress+"/blinks/export", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "blinks_"+testutil.TestAddress+".xlsx")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))
}
