package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5"

	"github.com/ancient666-pro/askit-dark-feed/internal/ledger"
	"github.com/ancient666-pro/askit-dark-feed/internal/model"
	"github.com/ancient666-pro/askit-dark-feed/internal/service"
)

func TestMain(m *testing.M) {
	InitMetrics(nil)
	os.Exit(m.Run())
}

// stubPollStore answers just enough of the store contract for handler tests.
type stubPollStore struct {
	created []model.Poll
}

func (s *stubPollStore) List(ctx context.Context) ([]model.Poll, error) {
	return append([]model.Poll(nil), s.created...), nil
}

func (s *stubPollStore) FindByID(ctx context.Context, pollID string) (*model.Poll, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubPollStore) Create(ctx context.Context, question, pollType string, options []model.PollOption) (*model.Poll, error) {
	p := model.Poll{
		ID:        fmt.Sprintf("poll-%d", len(s.created)+1),
		Question:  question,
		Type:      pollType,
		Options:   append([]model.PollOption(nil), options...),
		CreatedAt: time.Now(),
	}
	s.created = append(s.created, p)
	return &p, nil
}

func (s *stubPollStore) CastVote(ctx context.Context, pollID, optionID, deviceID string) (*model.Poll, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubPollStore) ClearExpiredPins(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *stubPollStore) SeedSamples(ctx context.Context, samples []model.Poll) error {
	return nil
}

func newTestApp() (*fiber.App, *stubPollStore) {
	store := &stubPollStore{}
	cache := service.NewCacheService("")
	svc := service.NewPollService(store, ledger.New(ledger.NewMemoryKV()), cache)

	app := fiber.New()
	poll := NewPollHandler(svc, cache)
	device := NewDeviceHandler()
	app.Post("/api/polls", poll.Create)
	app.Post("/api/devices", device.Mint)
	return app, store
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func postJSON(t *testing.T, app *fiber.App, path, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

func TestCreatePoll_RejectsOverlongOptionText(t *testing.T) {
	app, store := newTestApp()

	long := strings.Repeat("x", 200)
	body := fmt.Sprintf(`{"question":"Pick one","type":"customOptions","options":["short",%q]}`, long)
	status, raw := postJSON(t, app, "/api/polls", body, nil)

	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if eb.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", eb.Error.Code)
	}
	if len(store.created) != 0 {
		t.Errorf("store has %d polls, want 0 (rejected request must not persist)", len(store.created))
	}
}

func TestCreatePoll_RejectsBlankQuestion(t *testing.T) {
	app, _ := newTestApp()

	status, raw := postJSON(t, app, "/api/polls", `{"question":"   ","type":"yesNo"}`, nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if eb.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", eb.Error.Code)
	}
}

func TestCreatePoll_BinaryWithoutOptions(t *testing.T) {
	app, _ := newTestApp()

	status, raw := postJSON(t, app, "/api/polls", `{"question":"Dark mode?","type":"yesNo"}`, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", status, raw)
	}
	var poll model.Poll
	if err := json.Unmarshal(raw, &poll); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(poll.Options) != 2 || poll.Options[0].ID != "yes" || poll.Options[1].ID != "no" {
		t.Errorf("options = %+v, want the fixed yes/no pair", poll.Options)
	}
}

func TestMintDevice_EchoesPresentedID(t *testing.T) {
	app, _ := newTestApp()

	const existing = "k2j4h5g6f7d8s9a0q1w2e3r4t5"
	status, raw := postJSON(t, app, "/api/devices", "", map[string]string{"X-Device-ID": existing})
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	var dev model.DeviceResponse
	if err := json.Unmarshal(raw, &dev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dev.DeviceID != existing {
		t.Errorf("deviceId = %q, want the presented id %q", dev.DeviceID, existing)
	}
}

func TestMintDevice_FreshWhenAbsent(t *testing.T) {
	app, _ := newTestApp()

	status, raw := postJSON(t, app, "/api/devices", "", nil)
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	var dev model.DeviceResponse
	if err := json.Unmarshal(raw, &dev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(dev.DeviceID) != 26 {
		t.Errorf("len(deviceId) = %d, want 26", len(dev.DeviceID))
	}
	for _, r := range dev.DeviceID {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			t.Fatalf("deviceId %q contains non-alphanumeric rune %q", dev.DeviceID, r)
		}
	}
}

func TestMintDevice_RejectsInvalidHeaderByMintingFresh(t *testing.T) {
	app, _ := newTestApp()

	status, raw := postJSON(t, app, "/api/devices", "", map[string]string{"X-Device-ID": "not a valid id!"})
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	var dev model.DeviceResponse
	if err := json.Unmarshal(raw, &dev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dev.DeviceID == "not a valid id!" || len(dev.DeviceID) != 26 {
		t.Errorf("deviceId = %q, want a fresh 26-char id", dev.DeviceID)
	}
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	app := fiber.New()
	app.Get("/health/live", h.Live)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestProbeCache_DisabledWithoutClient(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	got := h.probeCache(context.Background())
	if got.Status != "disabled" {
		t.Errorf("status = %q, want disabled", got.Status)
	}
}
