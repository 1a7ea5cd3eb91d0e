package domain

import (
	"time"

	"drivee2mqtt/pkg/driveeapi"
)

// Snapshot is the coherent view of the charger assembled by a poll cycle.
// History and prices may be older than the charge point when they were
// served from cache.
type Snapshot struct {
	ChargePoint  *driveeapi.ChargePoint
	History      *driveeapi.ChargingHistory
	PricePeriods *driveeapi.PricePeriods
	LastSuccess  time.Time
}

// LastSession returns the most recent known session, preferring an active
// one over history.
func (s *Snapshot) LastSession() *driveeapi.ChargingSession {
	if s.ChargePoint != nil && s.ChargePoint.EVSE.Session != nil {
		return s.ChargePoint.EVSE.Session
	}
	if s.History != nil {
		return s.History.LastSession()
	}
	return nil
}

// CurrentPrice returns the tariff in effect at t, or nil when the schedule
// does not cover it.
func (s *Snapshot) CurrentPrice(t time.Time) *driveeapi.PricePeriod {
	if s.PricePeriods == nil {
		return nil
	}
	return s.PricePeriods.PriceAt(t)
}

func (s *Snapshot) IsCharging() bool {
	return s.ChargePoint != nil && s.ChargePoint.EVSE.IsCharging()
}

func (s *Snapshot) IsConnected() bool {
	return s.ChargePoint != nil && s.ChargePoint.EVSE.IsConnected()
}
