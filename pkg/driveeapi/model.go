package driveeapi

import (
	"time"
)

// EVSEStatus is the operational status of an EVSE as reported by the API.
// The API mixes capitalized and lowercase values depending on the endpoint,
// so both spellings appear here.
type EVSEStatus string

const (
	EVSEStatusAvailable   EVSEStatus = "Available"
	EVSEStatusOccupied    EVSEStatus = "Occupied"
	EVSEStatusReserved    EVSEStatus = "Reserved"
	EVSEStatusUnavailable EVSEStatus = "Unavailable"
	EVSEStatusFaulted     EVSEStatus = "Faulted"
	EVSEStatusCharging    EVSEStatus = "charging"
	EVSEStatusSuspended   EVSEStatus = "suspended"
	EVSEStatusPending     EVSEStatus = "pending"
	EVSEStatusReady       EVSEStatus = "ready"
	EVSEStatusPreparing   EVSEStatus = "preparing"
)

var knownEVSEStatuses = map[EVSEStatus]bool{
	EVSEStatusAvailable:   true,
	EVSEStatusOccupied:    true,
	EVSEStatusReserved:    true,
	EVSEStatusUnavailable: true,
	EVSEStatusFaulted:     true,
	EVSEStatusCharging:    true,
	EVSEStatusSuspended:   true,
	EVSEStatusPending:     true,
	EVSEStatusReady:       true,
	EVSEStatusPreparing:   true,
}

type ConnectorStatus string

const (
	ConnectorStatusAvailable   ConnectorStatus = "Available"
	ConnectorStatusOccupied    ConnectorStatus = "Occupied"
	ConnectorStatusReserved    ConnectorStatus = "Reserved"
	ConnectorStatusUnavailable ConnectorStatus = "Unavailable"
	ConnectorStatusFaulted     ConnectorStatus = "Faulted"
	ConnectorStatusActive      ConnectorStatus = "active"
)

var knownConnectorStatuses = map[ConnectorStatus]bool{
	ConnectorStatusAvailable:   true,
	ConnectorStatusOccupied:    true,
	ConnectorStatusReserved:    true,
	ConnectorStatusUnavailable: true,
	ConnectorStatusFaulted:     true,
	ConnectorStatusActive:      true,
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "Active"
	SessionStatusPaused    SessionStatus = "Paused"
	SessionStatusCompleted SessionStatus = "Completed"
	SessionStatusStopped   SessionStatus = "Stopped"
	SessionStatusFaulted   SessionStatus = "Faulted"
)

var knownSessionStatuses = map[SessionStatus]bool{
	SessionStatusActive:    true,
	SessionStatusPaused:    true,
	SessionStatusCompleted: true,
	SessionStatusStopped:   true,
	SessionStatusFaulted:   true,
}

var knownChargingStates = map[string]bool{
	"charging":     true,
	"idle":         true,
	"error":        true,
	"disconnected": true,
}

var knownPaymentStatuses = map[string]bool{
	"pending":   true,
	"completed": true,
	"failed":    true,
	"cancelled": true,
}

// ChargePoint is a validated charging station. The integration assumes a
// single-charger account, so a charge point always carries exactly one EVSE.
type ChargePoint struct {
	ID                string
	Name              string
	Status            string
	AllowedMaxPowerKW float64
	ConnectorLock     bool
	EVSE              EVSE
}

type EVSE struct {
	ID         string
	Identifier string
	Status     EVSEStatus
	Connectors []Connector
	Session    *ChargingSession
}

// IsCharging reports whether the EVSE is in an active charging state.
// Suspended and pending count as charging: a session exists and the short
// polling interval applies.
func (e *EVSE) IsCharging() bool {
	switch e.Status {
	case EVSEStatusCharging, EVSEStatusSuspended, EVSEStatusPending:
		return true
	}
	return false
}

// IsConnected reports whether a vehicle is plugged in.
func (e *EVSE) IsConnected() bool {
	return e.IsCharging() || e.Status == EVSEStatusPreparing
}

// SessionID returns the id of the active session, or "" if none.
func (e *EVSE) SessionID() string {
	if e.Session == nil {
		return ""
	}
	return e.Session.ID
}

type Connector struct {
	Name       string
	Type       string
	Format     string
	Status     ConnectorStatus
	MaxPowerKW float64
}

func (c *Connector) IsAvailable() bool {
	return c.Status == ConnectorStatusAvailable || c.Status == ConnectorStatusActive
}

// ChargingSession is one continuous charge event. EnergyWh and PowerW keep
// the API's integer units; monetary amounts are in the session currency.
type ChargingSession struct {
	ID                string
	EvseID            string
	StartedAt         time.Time
	StoppedAt         *time.Time
	DurationSeconds   int64
	TotalDuration     int64
	EnergyWh          int64
	PowerW            int64
	Amount            float64
	TotalAmount       float64
	AmountDue         float64
	Status            SessionStatus
	ChargingState     string
	PaymentStatus     string
	PaymentMethodType string
	Currency          Currency
	Periods           []ChargingPeriod
}

func (s *ChargingSession) EnergyKWh() float64 {
	return float64(s.EnergyWh) / 1000
}

type ChargingPeriod struct {
	StartedAt       time.Time
	StoppedAt       *time.Time
	Amount          float64
	State           string
	DurationSeconds int64
}

type Currency struct {
	Code             string
	Symbol           string
	MinorUnitDecimal int
}

// ChargingHistory is the session history for a date range, most recent last.
type ChargingHistory struct {
	Sessions []ChargingSession
}

func (h *ChargingHistory) LastSession() *ChargingSession {
	if len(h.Sessions) == 0 {
		return nil
	}
	return &h.Sessions[len(h.Sessions)-1]
}

// PricePeriod is one fixed-length price slot. End is derived from the
// schedule granularity and never overlaps the next period.
type PricePeriod struct {
	Start       time.Time
	End         time.Time
	PricePerKWh float64
}

// Contains uses half-open containment: Start <= t < End. A query at the
// exact boundary between two periods therefore matches the later one.
func (p *PricePeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// PricePeriods is a price schedule with a fixed granularity in minutes.
type PricePeriods struct {
	GranularityMinutes int
	Periods            []PricePeriod
}

// PriceAt returns the period containing t, or nil if t falls outside all
// known periods.
func (pp *PricePeriods) PriceAt(t time.Time) *PricePeriod {
	for i := range pp.Periods {
		if pp.Periods[i].Contains(t) {
			return &pp.Periods[i]
		}
	}
	return nil
}
