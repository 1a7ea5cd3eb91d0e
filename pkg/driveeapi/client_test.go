package driveeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChargePointPayload = `{
	"data": [{
		"id": "cp-1",
		"name": "Home Charger",
		"status": "active",
		"allowed_max_power_kw": "11",
		"connector_lock": false,
		"evses": [{
			"id": "evse-1",
			"identifier": "DK-DRV-E1001",
			"status": "Available",
			"connectors": [{
				"name": "Type 2",
				"type": "type_2",
				"format": "cable",
				"status": "Available",
				"maxPowerKw": 11
			}]
		}]
	}]
}`

const testSessionPayload = `{
	"id": "session-1",
	"evseId": "evse-1",
	"startedAt": "2026-08-30T18:00:00Z",
	"stoppedAt": "2026-08-30T18:45:00Z",
	"duration": 2700,
	"totalDuration": 2700,
	"energy": 8450,
	"power": 10800,
	"amount": 18.17,
	"totalAmount": 18.17,
	"amountDue": 0,
	"status": "Completed",
	"chargingState": "idle",
	"paymentStatus": "completed",
	"paymentMethodType": "card",
	"currency": {"code": "DKK", "symbol": "kr", "minorUnitDecimal": 2}
}`

type testBackend struct {
	tokenCalls int32
	dataCalls  int32

	tokenStatus  func(call int32) int
	tokenBody    func(call int32) string
	dataStatus   func(call int32) int
	dataBody     string
	lastDataPath string
	lastQuery    map[string]string
	lastAuth     string
	lastMethod   string

	server *httptest.Server
}

func newTestBackend(dataBody string) *testBackend {
	b := &testBackend{
		dataBody:    dataBody,
		tokenStatus: func(int32) int { return 200 },
		tokenBody: func(int32) string {
			return `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`
		},
		dataStatus: func(int32) int { return 200 },
	}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/"+tokenPath {
			call := atomic.AddInt32(&b.tokenCalls, 1)
			status := b.tokenStatus(call)
			w.WriteHeader(status)
			if status == 200 {
				_, _ = w.Write([]byte(b.tokenBody(call)))
			}
			return
		}
		call := atomic.AddInt32(&b.dataCalls, 1)
		b.lastDataPath = r.URL.Path
		b.lastMethod = r.Method
		b.lastAuth = r.Header.Get("Authorization")
		b.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			b.lastQuery[k] = r.URL.Query().Get(k)
		}
		status := b.dataStatus(call)
		w.WriteHeader(status)
		if status == 200 || status == 202 {
			_, _ = w.Write([]byte(b.dataBody))
		}
	}))
	return b
}

func (b *testBackend) client() *Client {
	return NewClient(Config{
		BaseURL:      b.server.URL,
		Username:     "user",
		Password:     "pass",
		Timeout:      5 * time.Second,
		RetryWaitMin: 5 * time.Millisecond,
		RetryWaitMax: 20 * time.Millisecond,
	})
}

func (b *testBackend) close() {
	b.server.Close()
}

func TestGetChargePointAuthenticatesOnce(t *testing.T) {
	backend := newTestBackend(testChargePointPayload)
	defer backend.close()
	client := backend.client()
	defer client.Close()

	cp, err := client.GetChargePoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cp-1", cp.ID)
	assert.Equal(t, "Home Charger", cp.Name)
	assert.Equal(t, 11.0, cp.AllowedMaxPowerKW)
	assert.Equal(t, "Bearer tok", backend.lastAuth)

	// token is cached across calls
	_, err = client.GetChargePoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.tokenCalls)
	assert.Equal(t, int32(2), backend.dataCalls)
}

func TestExpiredTokenIsReauthenticatedOnce(t *testing.T) {
	backend := newTestBackend(testChargePointPayload)
	defer backend.close()
	// short lifetimes are used as-is, the safety margin only applies above it
	backend.tokenBody = func(int32) string {
		return `{"access_token":"tok","token_type":"Bearer","expires_in":1}`
	}
	client := backend.client()
	defer client.Close()

	_, err := client.GetChargePoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.tokenCalls)

	time.Sleep(1100 * time.Millisecond)

	// the held token is past its expiry, so exactly one re-authentication
	// happens before the data call goes out
	_, err = client.GetChargePoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.tokenCalls)
	assert.Equal(t, int32(2), backend.dataCalls)
}

func TestRejectedTokenTriggersOneReauth(t *testing.T) {
	backend := newTestBackend(testChargePointPayload)
	defer backend.close()
	backend.dataStatus = func(call int32) int {
		if call == 1 {
			return 401
		}
		return 200
	}
	client := backend.client()
	defer client.Close()

	cp, err := client.GetChargePoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cp-1", cp.ID)
	assert.Equal(t, int32(2), backend.dataCalls)
	assert.Equal(t, int32(2), backend.tokenCalls)
}

func TestPersistent401ExhaustsRetries(t *testing.T) {
	backend := newTestBackend(testChargePointPayload)
	defer backend.close()
	backend.dataStatus = func(int32) int { return 401 }
	client := backend.client()
	defer client.Close()

	_, err := client.GetChargePoint(context.Background())
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(3), backend.dataCalls)
}

func TestServerErrorIsNotRetried(t *testing.T) {
	backend := newTestBackend(testChargePointPayload)
	defer backend.close()
	backend.dataStatus = func(int32) int { return 500 }
	client := backend.client()
	defer client.Close()

	_, err := client.GetChargePoint(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, int32(1), backend.dataCalls)
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	backend := newTestBackend(testChargePointPayload)
	backend.close()
	client := backend.client()
	defer client.Close()

	_, err := client.GetChargePoint(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.NotNil(t, errors.Unwrap(netErr))
}

func TestFailedAuthenticationSurfacesWithoutDataCall(t *testing.T) {
	backend := newTestBackend(testChargePointPayload)
	defer backend.close()
	backend.tokenStatus = func(int32) int { return 401 }
	client := backend.client()
	defer client.Close()

	_, err := client.GetChargePoint(context.Background())
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(0), backend.dataCalls)
}

func TestHistoryRequestCarriesDateWindow(t *testing.T) {
	backend := newTestBackend(`{"session_history":[{"session":` + testSessionPayload + `}]}`)
	defer backend.close()
	client := backend.client()
	defer client.Close()

	history, err := client.GetChargingHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history.Sessions, 1)
	assert.Equal(t, "session-1", history.LastSession().ID)

	assert.Equal(t, "/"+historyPath, backend.lastDataPath)
	start, err := time.Parse(historyDateLayout, backend.lastQuery["start_date"])
	require.NoError(t, err)
	end, err := time.Parse(historyDateLayout, backend.lastQuery["end_date"])
	require.NoError(t, err)
	assert.Equal(t, defaultHistoryDays, int(end.Sub(start).Hours()/24))
}

func TestStartCharging(t *testing.T) {
	backend := newTestBackend(`{"session":` + testSessionPayload + `}`)
	defer backend.close()
	client := backend.client()
	defer client.Close()

	session, err := client.StartCharging(context.Background(), "evse-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, http.MethodPost, backend.lastMethod)
	assert.Equal(t, "/app/evse/evse-1/start", backend.lastDataPath)
}

func TestEndCharging(t *testing.T) {
	backend := newTestBackend(`{"session":` + testSessionPayload + `}`)
	defer backend.close()
	client := backend.client()
	defer client.Close()

	session, err := client.EndCharging(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, SessionStatusCompleted, session.Status)
	assert.Equal(t, "/app/session/session-1/end", backend.lastDataPath)
}

func TestGetPricePeriods(t *testing.T) {
	backend := newTestBackend(`{
		"granularity": 30,
		"periods": [
			{"atDay": "2026-08-30", "atTime": "00:00", "pricePerKwh": 2.15},
			{"atDay": "2026-08-30", "atTime": "00:30", "pricePerKwh": 2.35}
		]
	}`)
	defer backend.close()
	client := backend.client()
	defer client.Close()

	prices, err := client.GetPricePeriods(context.Background(), "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "/app/personal/charge-points/cp-1/price-periods", backend.lastDataPath)
	require.Len(t, prices.Periods, 2)
	assert.Equal(t, 30*time.Minute, prices.Periods[0].End.Sub(prices.Periods[0].Start))
	assert.Equal(t, 2.35, prices.Periods[1].PricePerKWh)
}

func TestPricePeriodsParseInConfiguredLocation(t *testing.T) {
	backend := newTestBackend(`{
		"granularity": 30,
		"periods": [{"atDay": "2026-08-30", "atTime": "00:00", "pricePerKwh": 2.15}]
	}`)
	defer backend.close()

	loc := time.FixedZone("UTC+2", 2*3600)
	client := NewClient(Config{
		BaseURL:  backend.server.URL,
		Username: "user",
		Password: "pass",
		Location: loc,
	})
	defer client.Close()

	prices, err := client.GetPricePeriods(context.Background(), "cp-1")
	require.NoError(t, err)
	require.Len(t, prices.Periods, 1)
	assert.True(t, prices.Periods[0].Start.Equal(time.Date(2026, 8, 30, 0, 0, 0, 0, loc)))
}
