package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"staysync/internal/app/policies"
	"staysync/internal/app/wiring"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	"staysync/internal/domain/shared/fault"
	"staysync/internal/infra/obs"
	"staysync/internal/infra/security"
	"staysync/internal/infra/storage/memory"
)

type nopGateway struct{}

func (nopGateway) BlockDates(context.Context, policies.BlockDatesRequest) error { return nil }

type testServer struct {
	router     *gin.Engine
	tokens     *security.Tokens
	channelKey string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	dispatcher := &memory.Dispatcher{Synchronous: true}
	app, err := wiring.Build(wiring.Deps{
		UoW:         memory.NewFactory(),
		Locker:      memory.NewKeyedLocker(time.Second),
		Outbox:      memory.NewOutbox(dispatcher),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Gateway:     nopGateway{},
		Clock:       func() time.Time { return now },
	})
	require.NoError(t, err)
	dispatcher.Router = app.Router

	tokens, err := security.NewTokens("test-secret-0123456789")
	require.NoError(t, err)
	key, hash, err := security.NewChannelKey(bcrypt.MinCost)
	require.NoError(t, err)
	keys, err := security.NewChannelKeys(map[string]string{"airbnb": hash})
	require.NoError(t, err)

	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: app.Commands, Queries: app.Queries},
		HostBooking:    HostBookingHandler{Commands: app.Commands, Queries: app.Queries},
		Availability:   AvailabilityHandler{Commands: app.Commands, Queries: app.Queries},
		Property:       PropertyHandler{Commands: app.Commands, Queries: app.Queries},
		Channel:        ChannelHandler{Commands: app.Commands, Keys: keys},
		AuthMiddleware: AuthMiddleware{Tokens: tokens}.Handle,
	})
	return &testServer{router: router, tokens: tokens, channelKey: key}
}

func (s *testServer) token(t *testing.T, user string, roles ...string) string {
	t.Helper()
	raw, err := s.tokens.Issue(user, roles...)
	require.NoError(t, err)
	return raw
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) seedProperty(t *testing.T, host string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/host/properties", s.token(t, host, security.RoleHost), gin.H{
		"title":   "Lake house",
		"pricing": gin.H{"base_price": 5000, "cleaning_fee": 500, "service_fee": 300, "currency": "USD"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		ID string `json:"id"`
	}](t, rec).ID
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	propertyID := s.seedProperty(t, "host-1")
	guest := s.token(t, "guest-1", security.RoleGuest)

	rec := s.do(t, http.MethodGet, "/api/v1/properties/"+propertyID+"/availability?check_in=2024-06-01&check_out=2024-06-04", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[struct {
		Available bool `json:"available"`
	}](t, rec).Available)

	request := gin.H{
		"property_id":  propertyID,
		"check_in":     "2024-06-01",
		"check_out":    "2024-06-04",
		"guests":       gin.H{"adults": 2},
		"payment_type": "full",
	}
	rec = s.do(t, http.MethodPost, "/api/v1/bookings", "", request)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/bookings", guest, request, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		BookingID   string `json:"booking_id"`
		AmountToPay struct {
			Amount int64 `json:"amount"`
		} `json:"amount_to_pay"`
	}](t, rec)
	assert.Equal(t, int64(15800), created.AmountToPay.Amount)

	rec = s.do(t, http.MethodPost, "/api/v1/bookings", s.token(t, "guest-2"), request)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/bookings/"+created.BookingID, s.token(t, "stranger"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	payment := gin.H{"booking_id": created.BookingID, "transaction_id": "tx-1", "amount_paid": 15800}
	rec = s.do(t, http.MethodPost, "/api/v1/payments/confirmations", guest, payment)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/payments/confirmations", s.token(t, "payments", security.RoleOperator), payment)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[struct {
		Status string `json:"status"`
	}](t, rec).Status)

	host := s.token(t, "host-1", security.RoleHost)
	rec = s.do(t, http.MethodGet, "/api/v1/host/properties/"+propertyID+"/calendar", host, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	calendar := decode[struct {
		Blocks []struct {
			ID     string `json:"id"`
			Reason string `json:"reason"`
		} `json:"blocks"`
	}](t, rec)
	require.Len(t, calendar.Blocks, 1)
	assert.Equal(t, "booked", calendar.Blocks[0].Reason)

	rec = s.do(t, http.MethodDelete, "/api/v1/host/blocks/"+calendar.Blocks[0].ID, host, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/host/properties/"+propertyID, host, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHostRoutesRequireHostRole(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/host/properties", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/host/properties", s.token(t, "guest-1", security.RoleGuest), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/host/properties", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChannelWebhook(t *testing.T) {
	s := newTestServer(t)
	propertyID := s.seedProperty(t, "host-1")
	host := s.token(t, "host-1", security.RoleHost)
	rec := s.do(t, http.MethodPut, "/api/v1/host/properties/"+propertyID+"/connections/airbnb", host, gin.H{"external_id": "air-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	booking := gin.H{
		"platform_booking_id":  "AIR-1",
		"platform_property_id": "air-1",
		"check_in":             "2024-07-01",
		"check_out":            "2024-07-05",
		"guest_details":        gin.H{"name": "Ana"},
	}
	rec = s.do(t, http.MethodPost, "/api/v1/channels/airbnb/bookings", "", booking, channelKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/channels/direct/bookings", "", booking, channelKeyHeader, s.channelKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/channels/airbnb/bookings", "", booking, channelKeyHeader, s.channelKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/v1/channels/airbnb/bookings", "", booking, channelKeyHeader, s.channelKey)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "duplicate", decode[struct {
		Outcome string `json:"outcome"`
	}](t, rec).Outcome)

	rec = s.do(t, http.MethodGet, "/api/v1/host/properties/"+propertyID+"/sync-log", host, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "calendar_update")
	assert.Contains(t, rec.Body.String(), "booking_sync")
}

func TestPropertyManagementOverHTTP(t *testing.T) {
	s := newTestServer(t)
	propertyID := s.seedProperty(t, "host-1")
	host := s.token(t, "host-1", security.RoleHost)
	base := "/api/v1/host/properties/" + propertyID
	rec := s.do(t, http.MethodPut, base+"/connections/agoda", host, gin.H{"external_id": "ago-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, base+"/status", s.token(t, "host-2", security.RoleHost), gin.H{"status": "maintenance"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPut, base+"/status", host, gin.H{"status": "closed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPut, base+"/status", host, gin.H{"status": "maintenance"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "maintenance", decode[struct {
		Status string `json:"status"`
	}](t, rec).Status)

	rec = s.do(t, http.MethodPut, base+"/pricing", host, gin.H{"base_price": 7000, "cleaning_fee": 600, "service_fee": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(7000), decode[struct {
		Pricing struct {
			BasePrice int64 `json:"base_price"`
		} `json:"pricing"`
	}](t, rec).Pricing.BasePrice)

	rec = s.do(t, http.MethodPost, base+"/sync", host, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[struct {
		Outcomes []struct {
			Platform string `json:"platform"`
			Status   string `json:"status"`
		} `json:"outcomes"`
	}](t, rec)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "agoda", report.Outcomes[0].Platform)
	assert.Equal(t, "success", report.Outcomes[0].Status)

	rec = s.do(t, http.MethodGet, base+"/sync-log", host, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "price_update")
	assert.Contains(t, rec.Body.String(), "pending")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domainbooking.ErrGuestRequired, http.StatusUnauthorized},
		{domainbooking.ErrNotFound, http.StatusNotFound},
		{domainavailability.ErrDatesUnavailable, http.StatusConflict},
		{policies.ErrLockTimeout, http.StatusConflict},
		{domainavailability.ErrBookedBlock, http.StatusUnprocessableEntity},
		{domainbooking.ErrInvalidGuests, http.StatusBadRequest},
		{fault.Wrap(fault.ErrExternalSync, "airbnb"), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
