package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"barberbot/internal/booking"
	"barberbot/internal/config"
	"barberbot/internal/database"
	"barberbot/internal/events"
	"barberbot/internal/models"
	"barberbot/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.New(io.Discard)

type testEnv struct {
	db      *database.DB
	booking *service.BookingService
	barber  *models.Barber
	ts      *httptest.Server
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewDB(":memory:", &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	haircut := &models.Service{Name: "Haircut", Price: 50000, Duration: "40 daqiqa"}
	require.NoError(t, db.CreateService(ctx, haircut))
	aliyev := &models.Barber{Name: "Aliyev", Phone: "+998901112233", TelegramID: 500}
	require.NoError(t, db.CreateBarber(ctx, aliyev))

	universe, err := booking.NewUniverse("10:00", "13:00", time.Hour)
	require.NoError(t, err)
	bookingSvc := service.NewBookingService(db, events.NewEventBus(), universe, 3, time.UTC, &testLogger)
	bookingSvc.SetClock(func() time.Time { return time.Date(2025, 1, 9, 11, 30, 0, 0, time.UTC) })

	_, err = bookingSvc.Commit(ctx, service.CommitRequest{
		UserID: 1, ServiceID: haircut.ID, BarberID: aliyev.ID,
		Date: "2025-01-10", Time: "12:00", FullName: "Vali Aliyev", Phone: "+998901234567",
	})
	require.NoError(t, err)

	if cfg.Auth.HeaderAPIKey == "" {
		cfg.Auth.HeaderAPIKey = "x-api-key"
		cfg.Auth.HeaderExtra = "x-api-extra"
	}
	srv := NewServer(cfg, bookingSvc, service.NewCatalogService(db, bookingSvc.Today, &testLogger), &testLogger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{db: db, booking: bookingSvc, barber: aliyev, ts: ts}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}
	return resp.StatusCode
}

func TestAvailabilityListsFreeSlots(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	var body slotsResult
	status := getJSON(t, fmt.Sprintf("%s/api/v1/availability/%d?date=2025-01-10", env.ts.URL, env.barber.ID), &body)
	if status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	assert.Equal(t, []string{"10:00", "11:00", "13:00"}, body.Free)
	assert.False(t, body.Paused)
}

func TestAvailabilityHidesPastTimesToday(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	var body slotsResult
	getJSON(t, fmt.Sprintf("%s/api/v1/availability/%d?date=2025-01-09", env.ts.URL, env.barber.ID), &body)
	assert.Equal(t, []string{"12:00", "13:00"}, body.Free)
}

func TestAvailabilityPausedBarber(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})
	require.NoError(t, env.booking.Pause(context.Background(), env.barber.ID))

	var body slotsResult
	getJSON(t, fmt.Sprintf("%s/api/v1/availability/%d?date=2025-01-10", env.ts.URL, env.barber.ID), &body)
	assert.True(t, body.Paused)
	assert.Empty(t, body.Free)
}

func TestAvailabilityBadRequests(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing date", fmt.Sprintf("/api/v1/availability/%d", env.barber.ID), http.StatusBadRequest},
		{"bad date", fmt.Sprintf("/api/v1/availability/%d?date=10.01.2025", env.barber.ID), http.StatusBadRequest},
		{"bad id", "/api/v1/availability/abc?date=2025-01-10", http.StatusBadRequest},
		{"unknown barber", "/api/v1/availability/999?date=2025-01-10", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getJSON(t, env.ts.URL+tt.path, nil))
		})
	}
}

func TestAvailabilityBulk(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	var body struct {
		Results []slotsResult `json:"results"`
	}
	url := fmt.Sprintf("%s/api/v1/availability/bulk?barbers=%d,999&dates=2025-01-10,2025-01-11", env.ts.URL, env.barber.ID)
	if status := getJSON(t, url, &body); status != http.StatusOK {
		t.Fatalf("unexpected status: %d", status)
	}
	require.Len(t, body.Results, 2, "unknown barber is skipped")
	assert.NotContains(t, body.Results[0].Free, "12:00")
	assert.Contains(t, body.Results[1].Free, "12:00")

	resp, err := http.Post(env.ts.URL+"/api/v1/availability/bulk", "application/json",
		strings.NewReader(fmt.Sprintf(`{"barbers":["%d"]}`, env.barber.ID)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Results, 3, "dates default to the booking window")
}

func TestAvailabilityBulkLimits(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	ids := make([]string, maxBulkBarbers+1)
	for i := range ids {
		ids[i] = fmt.Sprint(i + 1)
	}
	url := env.ts.URL + "/api/v1/availability/bulk?barbers=" + strings.Join(ids, ",")
	assert.Equal(t, http.StatusBadRequest, getJSON(t, url, nil))

	url = fmt.Sprintf("%s/api/v1/availability/bulk?barbers=%d&dates=2025-01-09,2025-01-10,2025-01-11,2025-01-12",
		env.ts.URL, env.barber.ID)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, url, nil), "more dates than the booking window")

	big := `{"barbers":["1"],"dates":["` + strings.Repeat("x", maxBodyBytes) + `"]}`
	resp, err := http.Post(env.ts.URL+"/api/v1/availability/bulk", "application/json", strings.NewReader(big))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	var services struct {
		Services []models.Service `json:"services"`
	}
	getJSON(t, env.ts.URL+"/api/v1/services", &services)
	require.Len(t, services.Services, 1)
	assert.Equal(t, "Haircut", services.Services[0].Name)

	var barbers struct {
		Barbers []map[string]any `json:"barbers"`
	}
	getJSON(t, env.ts.URL+"/api/v1/barbers", &barbers)
	require.Len(t, barbers.Barbers, 1)
	assert.NotContains(t, barbers.Barbers[0], "phone")
	assert.NotContains(t, barbers.Barbers[0], "telegram_id")

	var dates struct {
		Dates []string `json:"dates"`
	}
	getJSON(t, env.ts.URL+"/api/v1/dates", &dates)
	assert.Equal(t, []string{"2025-01-09", "2025-01-10", "2025-01-11"}, dates.Dates)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})

	resp, err := http.Post(env.ts.URL+"/api/v1/services", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
