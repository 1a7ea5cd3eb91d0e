package driveeapi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChargePointsRejectsEmptyAndMultiple(t *testing.T) {
	_, err := parseChargePoints([]byte(`{"data":[]}`))
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)

	two := strings.Replace(testChargePointPayload, `"data": [{`, `"data": [{"id":"cp-2","name":"Other","evses":[{"id":"e","status":"Available","connectors":[{"name":"c","status":"Available"}]}]},{`, 1)
	_, err = parseChargePoints([]byte(two))
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "multiple charge points")
}

func TestParseChargePointsRejectsUnknownEVSEStatus(t *testing.T) {
	payload := strings.Replace(testChargePointPayload, `"status": "Available",
			"connectors"`, `"status": "Exploded",
			"connectors"`, 1)
	_, err := parseChargePoints([]byte(payload))
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestParseChargePointsRejectsEVSEWithoutConnectors(t *testing.T) {
	payload := strings.Replace(testChargePointPayload, `"connectors": [{
				"name": "Type 2",
				"type": "type_2",
				"format": "cable",
				"status": "Available",
				"maxPowerKw": 11
			}]`, `"connectors": []`, 1)
	_, err := parseChargePoints([]byte(payload))
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "no connectors")
}

func TestParseSessionRejectsStopBeforeStart(t *testing.T) {
	payload := strings.Replace(testSessionPayload, `"stoppedAt": "2026-08-30T18:45:00Z"`, `"stoppedAt": "2026-08-30T17:00:00Z"`, 1)
	_, err := parseChargingResponse([]byte(`{"session":` + payload + `}`))
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "stopped at or before")
}

func TestParseSessionToleratesSmallDurationDrift(t *testing.T) {
	payload := strings.Replace(testSessionPayload, `"duration": 2700`, `"duration": 2704`, 1)
	session, err := parseChargingResponse([]byte(`{"session":` + payload + `}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2704), session.DurationSeconds)

	payload = strings.Replace(testSessionPayload, `"duration": 2700`, `"duration": 2710`, 1)
	_, err = parseChargingResponse([]byte(`{"session":` + payload + `}`))
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "disagrees")
}

func TestParseSessionRejectsNegativeValues(t *testing.T) {
	for _, replace := range []string{
		`"energy": -1`,
		`"power": -1`,
		`"amount": -0.5`,
	} {
		var old string
		switch {
		case strings.HasPrefix(replace, `"energy"`):
			old = `"energy": 8450`
		case strings.HasPrefix(replace, `"power"`):
			old = `"power": 10800`
		default:
			old = `"amount": 18.17`
		}
		payload := strings.Replace(testSessionPayload, old, replace, 1)
		_, err := parseChargingResponse([]byte(`{"session":` + payload + `}`))
		var ruleErr *BusinessRuleError
		require.ErrorAs(t, err, &ruleErr, replace)
	}
}

func TestParseSessionRejectsUnknownEnums(t *testing.T) {
	payload := strings.Replace(testSessionPayload, `"chargingState": "idle"`, `"chargingState": "warp"`, 1)
	_, err := parseChargingResponse([]byte(`{"session":` + payload + `}`))
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)

	payload = strings.Replace(testSessionPayload, `"paymentStatus": "completed"`, `"paymentStatus": "maybe"`, 1)
	_, err = parseChargingResponse([]byte(`{"session":` + payload + `}`))
	require.ErrorAs(t, err, &ruleErr)
}

func TestParseSessionAmountRoundTrip(t *testing.T) {
	session, err := parseChargingResponse([]byte(`{"session":` + testSessionPayload + `}`))
	require.NoError(t, err)
	assert.Equal(t, 18.17, session.Amount)
	assert.Equal(t, 8.45, session.EnergyKWh())
}

func TestParseHistorySkipsSessionlessEntries(t *testing.T) {
	payload := `{"session_history":[
		{"note":"top-up","type":"payment"},
		{"session":` + testSessionPayload + `}
	]}`
	history, err := parseChargingHistory([]byte(payload))
	require.NoError(t, err)
	require.Len(t, history.Sessions, 1)
	assert.Equal(t, "session-1", history.LastSession().ID)
}

func TestParseHistoryRejectsAllSessionless(t *testing.T) {
	_, err := parseChargingHistory([]byte(`{"session_history":[{"note":"top-up"}]}`))
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "no sessions")
}

func TestParsePricePeriodsBoundaries(t *testing.T) {
	payload := `{
		"granularity": 60,
		"periods": [
			{"atDay": "2026-08-30", "atTime": "10:00", "pricePerKwh": 2},
			{"atDay": "2026-08-30", "atTime": "11:00", "pricePerKwh": 3}
		]
	}`
	prices, err := parsePricePeriods([]byte(payload), time.UTC)
	require.NoError(t, err)

	at := func(hour, min int) time.Time {
		return time.Date(2026, 8, 30, hour, min, 0, 0, time.UTC)
	}
	// intervals are half-open: the end instant belongs to the next period
	require.NotNil(t, prices.PriceAt(at(10, 0)))
	assert.Equal(t, 2.0, prices.PriceAt(at(10, 59)).PricePerKWh)
	assert.Equal(t, 3.0, prices.PriceAt(at(11, 0)).PricePerKWh)
	assert.Nil(t, prices.PriceAt(at(12, 0)))
	assert.Nil(t, prices.PriceAt(at(9, 59)))
}

func TestParsePricePeriodsRejectsBadGranularityAndOrder(t *testing.T) {
	_, err := parsePricePeriods([]byte(`{"granularity":0,"periods":[]}`), time.UTC)
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)

	payload := `{
		"granularity": 60,
		"periods": [
			{"atDay": "2026-08-30", "atTime": "11:00", "pricePerKwh": 2},
			{"atDay": "2026-08-30", "atTime": "10:00", "pricePerKwh": 3}
		]
	}`
	_, err = parsePricePeriods([]byte(payload), time.UTC)
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "out of order")

	// two periods with the same start are rejected as well
	payload = `{
		"granularity": 60,
		"periods": [
			{"atDay": "2026-08-30", "atTime": "10:00", "pricePerKwh": 2},
			{"atDay": "2026-08-30", "atTime": "10:00", "pricePerKwh": 3}
		]
	}`
	_, err = parsePricePeriods([]byte(payload), time.UTC)
	require.ErrorAs(t, err, &ruleErr)
	assert.Contains(t, err.Error(), "out of order")
}

func TestEVSEChargingAndConnectedStates(t *testing.T) {
	evse := EVSE{Status: EVSEStatusCharging}
	assert.True(t, evse.IsCharging())
	assert.True(t, evse.IsConnected())

	evse.Status = EVSEStatusPreparing
	assert.False(t, evse.IsCharging())
	assert.True(t, evse.IsConnected())

	evse.Status = EVSEStatusAvailable
	assert.False(t, evse.IsCharging())
	assert.False(t, evse.IsConnected())
}

func TestSessionIDFollowsActiveSession(t *testing.T) {
	evse := EVSE{Status: EVSEStatusAvailable}
	assert.Equal(t, "", evse.SessionID())
	evse.Session = &ChargingSession{ID: "session-1"}
	assert.Equal(t, "session-1", evse.SessionID())
}
