package driveeapi

import (
	"context"
	"sync"
	"time"
)

func CreateTestChargerAPI() *TestChargerAPI {
	return &TestChargerAPI{}
}

// TestChargerAPI is an in-memory ChargerAPI with canned data. Charging can
// be toggled to drive session transitions in tests, and call counters allow
// asserting how often each operation was hit.
type TestChargerAPI struct {
	mu       sync.Mutex
	charging bool

	ChargePointCalls  int
	HistoryCalls      int
	PricePeriodsCalls int
	StartCalls        int
	EndCalls          int
	CloseCalls        int

	ChargePointErr error
	HistoryErr     error
	PriceErr       error
	StartErr       error
	EndErr         error
}

func (api *TestChargerAPI) SetCharging(charging bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.charging = charging
}

func (api *TestChargerAPI) GetChargePoint(_ context.Context) (*ChargePoint, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.ChargePointCalls++
	if api.ChargePointErr != nil {
		return nil, api.ChargePointErr
	}
	evse := EVSE{
		ID:         "evse-1",
		Identifier: "DK-DRV-E1001",
		Status:     EVSEStatusAvailable,
		Connectors: []Connector{
			{
				Name:       "Type 2",
				Type:       "type_2",
				Format:     "cable",
				Status:     ConnectorStatusAvailable,
				MaxPowerKW: 11,
			},
		},
	}
	if api.charging {
		evse.Status = EVSEStatusCharging
		evse.Connectors[0].Status = ConnectorStatusActive
		evse.Session = testSession("session-active", false)
	}
	return &ChargePoint{
		ID:                "cp-1",
		Name:              "Home Charger",
		Status:            "active",
		AllowedMaxPowerKW: 11,
		ConnectorLock:     false,
		EVSE:              evse,
	}, nil
}

func (api *TestChargerAPI) GetChargingHistory(_ context.Context) (*ChargingHistory, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.HistoryCalls++
	if api.HistoryErr != nil {
		return nil, api.HistoryErr
	}
	return &ChargingHistory{
		Sessions: []ChargingSession{
			*testSession("session-old", true),
			*testSession("session-last", true),
		},
	}, nil
}

func (api *TestChargerAPI) GetPricePeriods(_ context.Context, _ string) (*PricePeriods, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.PricePeriodsCalls++
	if api.PriceErr != nil {
		return nil, api.PriceErr
	}
	day := time.Now().Truncate(24 * time.Hour)
	periods := make([]PricePeriod, 0, 48)
	for i := 0; i < 48; i++ {
		start := day.Add(time.Duration(i) * 30 * time.Minute)
		price := 2.15
		if i >= 34 && i < 42 {
			price = 3.45
		}
		periods = append(periods, PricePeriod{
			Start:       start,
			End:         start.Add(30 * time.Minute),
			PricePerKWh: price,
		})
	}
	return &PricePeriods{GranularityMinutes: 30, Periods: periods}, nil
}

func (api *TestChargerAPI) StartCharging(_ context.Context, evseID string) (*ChargingSession, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.StartCalls++
	if api.StartErr != nil {
		return nil, api.StartErr
	}
	if api.charging {
		return nil, &SessionError{Reason: "a session is already running"}
	}
	api.charging = true
	s := testSession("session-active", false)
	s.EvseID = evseID
	return s, nil
}

func (api *TestChargerAPI) EndCharging(_ context.Context, sessionID string) (*ChargingSession, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.EndCalls++
	if api.EndErr != nil {
		return nil, api.EndErr
	}
	if !api.charging {
		return nil, &SessionError{Reason: "no session is running"}
	}
	api.charging = false
	s := testSession(sessionID, true)
	return s, nil
}

func (api *TestChargerAPI) Close() {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.CloseCalls++
}

func testSession(id string, stopped bool) *ChargingSession {
	started := time.Now().Add(-45 * time.Minute).Truncate(time.Second)
	s := &ChargingSession{
		ID:                id,
		EvseID:            "evse-1",
		StartedAt:         started,
		DurationSeconds:   2700,
		TotalDuration:     2700,
		EnergyWh:          8450,
		PowerW:            10800,
		Amount:            18.17,
		TotalAmount:       18.17,
		AmountDue:         0,
		Status:            SessionStatusActive,
		ChargingState:     "charging",
		PaymentStatus:     "pending",
		PaymentMethodType: "card",
		Currency:          Currency{Code: "DKK", Symbol: "kr", MinorUnitDecimal: 2},
	}
	if stopped {
		stoppedAt := started.Add(45 * time.Minute)
		s.StoppedAt = &stoppedAt
		s.Status = SessionStatusCompleted
		s.ChargingState = "idle"
		s.PaymentStatus = "completed"
	}
	return s
}
