package driveeapi

import (
	"encoding/json"
	"math"
	"time"
)

// Wire-level payload shapes. These decode exactly what the API sends; the
// parse functions below turn them into validated model types or fail with a
// BusinessRuleError. A payload is never mapped partially.

type chargePointListDTO struct {
	Data []chargePointDTO `json:"data"`
}

type chargePointDTO struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	Photo             string     `json:"photo"`
	AllowedMaxPowerKW float64    `json:"allowed_max_power_kw,string"`
	Evses             []evseDTO  `json:"evses"`
	ConnectorLock     bool       `json:"connector_lock"`
}

type evseDTO struct {
	ID         string              `json:"id"`
	Identifier string              `json:"identifier"`
	Status     string              `json:"status"`
	Connectors []connectorDTO      `json:"connectors"`
	Session    *chargingSessionDTO `json:"session"`
}

type connectorDTO struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Icon       string  `json:"icon"`
	Format     string  `json:"format"`
	MaxPowerKW float64 `json:"maxPowerKw"`
}

type chargingSessionDTO struct {
	ID                string               `json:"id"`
	StartedAt         time.Time            `json:"startedAt"`
	StoppedAt         *time.Time           `json:"stoppedAt"`
	Duration          int64                `json:"duration"`
	TotalDuration     int64                `json:"totalDuration"`
	Energy            int64                `json:"energy"`
	Power             int64                `json:"power"`
	EvseID            string               `json:"evseId"`
	EvseStatus        string               `json:"evseStatus"`
	PaymentMethodID   string               `json:"paymentMethodId"`
	PaymentMethodType string               `json:"paymentMethodType"`
	Amount            float64              `json:"amount"`
	TotalAmount       float64              `json:"totalAmount"`
	AmountDue         float64              `json:"amountDue"`
	Status            string               `json:"status"`
	ChargingState     string               `json:"chargingState"`
	PaymentStatus     string               `json:"paymentStatus"`
	ChargingPeriods   []chargingPeriodDTO  `json:"chargingPeriods"`
	Currency          *currencyDTO         `json:"currency"`
}

type chargingPeriodDTO struct {
	StartedAt         time.Time  `json:"startedAt"`
	StoppedAt         *time.Time `json:"stoppedAt"`
	Amount            float64    `json:"amount"`
	State             string     `json:"state"`
	DurationInSeconds int64      `json:"durationInSeconds"`
}

type currencyDTO struct {
	Code             string `json:"code"`
	Symbol           string `json:"symbol"`
	MinorUnitDecimal int    `json:"minorUnitDecimal"`
}

type chargingHistoryDTO struct {
	SessionHistory []chargingHistoryEntryDTO `json:"session_history"`
}

type chargingHistoryEntryDTO struct {
	Session *chargingSessionDTO `json:"session"`
	Note    string              `json:"note"`
	Type    string              `json:"type"`
	Address string              `json:"address"`
}

type chargingResponseDTO struct {
	Session *chargingSessionDTO `json:"session"`
}

type pricePeriodsDTO struct {
	Granularity int              `json:"granularity"`
	Periods     []pricePeriodDTO `json:"periods"`
}

type pricePeriodDTO struct {
	AtDay       string  `json:"atDay"`
	AtTime      string  `json:"atTime"`
	PricePerKWh float64 `json:"pricePerKwh"`
}

// Sessions report their own duration; it may drift a few seconds from the
// stop-start difference while the backend settles a session.
const sessionDurationToleranceSeconds = 5

const (
	priceDayLayout  = "2006-01-02"
	priceTimeLayout = "15:04"
)

// parseChargePoints maps the charge point list payload to the single charge
// point this integration manages. Zero or multiple charge points, or an EVSE
// count other than one, violates the single-charger assumption.
func parseChargePoints(data []byte) (*ChargePoint, error) {
	var list chargePointListDTO
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, businessRuleErrorf("charge point payload: %v", err)
	}
	if len(list.Data) == 0 {
		return nil, businessRuleErrorf("no charge points found")
	}
	if len(list.Data) > 1 {
		return nil, businessRuleErrorf("multiple charge points found (%d), expected exactly one", len(list.Data))
	}
	return mapChargePoint(&list.Data[0])
}

func mapChargePoint(dto *chargePointDTO) (*ChargePoint, error) {
	if dto.ID == "" {
		return nil, businessRuleErrorf("charge point id must not be empty")
	}
	if dto.Name == "" {
		return nil, businessRuleErrorf("charge point name must not be empty")
	}
	if len(dto.Evses) == 0 {
		return nil, businessRuleErrorf("charge point %s has no EVSE", dto.ID)
	}
	if len(dto.Evses) > 1 {
		return nil, businessRuleErrorf("charge point %s has %d EVSEs, expected exactly one", dto.ID, len(dto.Evses))
	}
	evse, err := mapEVSE(&dto.Evses[0])
	if err != nil {
		return nil, err
	}
	return &ChargePoint{
		ID:                dto.ID,
		Name:              dto.Name,
		Status:            dto.Status,
		AllowedMaxPowerKW: dto.AllowedMaxPowerKW,
		ConnectorLock:     dto.ConnectorLock,
		EVSE:              *evse,
	}, nil
}

func mapEVSE(dto *evseDTO) (*EVSE, error) {
	if dto.ID == "" {
		return nil, businessRuleErrorf("evse id must not be empty")
	}
	status := EVSEStatus(dto.Status)
	if !knownEVSEStatuses[status] {
		return nil, businessRuleErrorf("evse %s has unknown status %q", dto.ID, dto.Status)
	}
	if len(dto.Connectors) == 0 {
		return nil, businessRuleErrorf("evse %s has no connectors", dto.ID)
	}
	connectors := make([]Connector, 0, len(dto.Connectors))
	for i := range dto.Connectors {
		conn, err := mapConnector(&dto.Connectors[i])
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, *conn)
	}
	var session *ChargingSession
	if dto.Session != nil {
		s, err := mapChargingSession(dto.Session)
		if err != nil {
			return nil, err
		}
		session = s
	}
	return &EVSE{
		ID:         dto.ID,
		Identifier: dto.Identifier,
		Status:     status,
		Connectors: connectors,
		Session:    session,
	}, nil
}

func mapConnector(dto *connectorDTO) (*Connector, error) {
	status := ConnectorStatus(dto.Status)
	if !knownConnectorStatuses[status] {
		return nil, businessRuleErrorf("connector %q has unknown status %q", dto.Name, dto.Status)
	}
	if dto.MaxPowerKW < 0 {
		return nil, businessRuleErrorf("connector %q has negative rated power", dto.Name)
	}
	return &Connector{
		Name:       dto.Name,
		Type:       dto.Type,
		Format:     dto.Format,
		Status:     status,
		MaxPowerKW: dto.MaxPowerKW,
	}, nil
}

func mapChargingSession(dto *chargingSessionDTO) (*ChargingSession, error) {
	if dto.ID == "" {
		return nil, businessRuleErrorf("session id must not be empty")
	}
	if dto.EvseID == "" {
		return nil, businessRuleErrorf("session %s has no evse id", dto.ID)
	}
	if dto.StartedAt.IsZero() {
		return nil, businessRuleErrorf("session %s has no start time", dto.ID)
	}
	if dto.StoppedAt != nil {
		if !dto.StoppedAt.After(dto.StartedAt) {
			return nil, businessRuleErrorf("session %s stopped at or before its start", dto.ID)
		}
		computed := dto.StoppedAt.Sub(dto.StartedAt).Seconds()
		if math.Abs(float64(dto.Duration)-computed) > sessionDurationToleranceSeconds {
			return nil, businessRuleErrorf("session %s duration %ds disagrees with stop-start (%.0fs)", dto.ID, dto.Duration, computed)
		}
	}
	if dto.Energy < 0 || dto.Power < 0 {
		return nil, businessRuleErrorf("session %s has negative energy or power", dto.ID)
	}
	if dto.Amount < 0 || dto.TotalAmount < 0 || dto.AmountDue < 0 {
		return nil, businessRuleErrorf("session %s has a negative amount", dto.ID)
	}
	if dto.Status != "" && !knownSessionStatuses[SessionStatus(dto.Status)] {
		return nil, businessRuleErrorf("session %s has unknown status %q", dto.ID, dto.Status)
	}
	if dto.ChargingState != "" && !knownChargingStates[dto.ChargingState] {
		return nil, businessRuleErrorf("session %s has unknown charging state %q", dto.ID, dto.ChargingState)
	}
	if dto.PaymentStatus != "" && !knownPaymentStatuses[dto.PaymentStatus] {
		return nil, businessRuleErrorf("session %s has unknown payment status %q", dto.ID, dto.PaymentStatus)
	}
	periods := make([]ChargingPeriod, 0, len(dto.ChargingPeriods))
	for i := range dto.ChargingPeriods {
		p := &dto.ChargingPeriods[i]
		if i > 0 && p.StartedAt.Before(dto.ChargingPeriods[i-1].StartedAt) {
			return nil, businessRuleErrorf("session %s charging periods are out of order", dto.ID)
		}
		if p.Amount < 0 {
			return nil, businessRuleErrorf("session %s has a charging period with negative amount", dto.ID)
		}
		periods = append(periods, ChargingPeriod{
			StartedAt:       p.StartedAt,
			StoppedAt:       p.StoppedAt,
			Amount:          p.Amount,
			State:           p.State,
			DurationSeconds: p.DurationInSeconds,
		})
	}
	var currency Currency
	if dto.Currency != nil {
		currency = Currency{
			Code:             dto.Currency.Code,
			Symbol:           dto.Currency.Symbol,
			MinorUnitDecimal: dto.Currency.MinorUnitDecimal,
		}
	}
	return &ChargingSession{
		ID:                dto.ID,
		EvseID:            dto.EvseID,
		StartedAt:         dto.StartedAt,
		StoppedAt:         dto.StoppedAt,
		DurationSeconds:   dto.Duration,
		TotalDuration:     dto.TotalDuration,
		EnergyWh:          dto.Energy,
		PowerW:            dto.Power,
		Amount:            dto.Amount,
		TotalAmount:       dto.TotalAmount,
		AmountDue:         dto.AmountDue,
		Status:            SessionStatus(dto.Status),
		ChargingState:     dto.ChargingState,
		PaymentStatus:     dto.PaymentStatus,
		PaymentMethodType: dto.PaymentMethodType,
		Currency:          currency,
		Periods:           periods,
	}, nil
}

// parseChargingHistory maps the session history payload. Entries without a
// session (top-ups, notes) are skipped; an entirely sessionless history is
// rejected so a half-broken payload cannot masquerade as real data.
func parseChargingHistory(data []byte) (*ChargingHistory, error) {
	var dto chargingHistoryDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, businessRuleErrorf("charging history payload: %v", err)
	}
	sessions := make([]ChargingSession, 0, len(dto.SessionHistory))
	for i := range dto.SessionHistory {
		entry := &dto.SessionHistory[i]
		if entry.Session == nil {
			continue
		}
		s, err := mapChargingSession(entry.Session)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if len(sessions) == 0 {
		return nil, businessRuleErrorf("charging history has no sessions")
	}
	return &ChargingHistory{Sessions: sessions}, nil
}

func parseChargingResponse(data []byte) (*ChargingSession, error) {
	var dto chargingResponseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, businessRuleErrorf("charging response payload: %v", err)
	}
	if dto.Session == nil {
		return nil, businessRuleErrorf("charging response has no session")
	}
	return mapChargingSession(dto.Session)
}

// parsePricePeriods maps the price schedule. atDay/atTime are wall-clock
// values in the charger's local timezone; loc decides how they become
// absolute instants.
func parsePricePeriods(data []byte, loc *time.Location) (*PricePeriods, error) {
	var dto pricePeriodsDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, businessRuleErrorf("price periods payload: %v", err)
	}
	if dto.Granularity <= 0 {
		return nil, businessRuleErrorf("price granularity must be positive, got %d", dto.Granularity)
	}
	granularity := time.Duration(dto.Granularity) * time.Minute
	periods := make([]PricePeriod, 0, len(dto.Periods))
	for i := range dto.Periods {
		p := &dto.Periods[i]
		start, err := time.ParseInLocation(priceDayLayout+" "+priceTimeLayout, p.AtDay+" "+p.AtTime, loc)
		if err != nil {
			return nil, businessRuleErrorf("price period %d has invalid day/time %q %q", i, p.AtDay, p.AtTime)
		}
		if p.PricePerKWh < 0 {
			return nil, businessRuleErrorf("price period %d has negative price", i)
		}
		// starts must be strictly increasing, duplicates would make price
		// lookups ambiguous
		if i > 0 && !start.After(periods[i-1].Start) {
			return nil, businessRuleErrorf("price periods are out of order at %d", i)
		}
		periods = append(periods, PricePeriod{
			Start:       start,
			End:         start.Add(granularity),
			PricePerKWh: p.PricePerKWh,
		})
	}
	return &PricePeriods{
		GranularityMinutes: dto.Granularity,
		Periods:            periods,
	}, nil
}
