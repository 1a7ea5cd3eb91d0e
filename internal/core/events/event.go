package events

import (
	"time"

	. "drivee2mqtt/internal/core/domain"
)

// SnapshotToUpdateEvents flattens a poll snapshot into sensor update events
// for publishing. A nil charge point yields no events.
func SnapshotToUpdateEvents(snapshot *Snapshot) []any {
	var events []any
	if snapshot == nil || snapshot.ChargePoint == nil {
		return events
	}

	evse := snapshot.ChargePoint.EVSE

	// Charger status
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CHARGER_STATUS,
		},
		Value: string(evse.Status),
	})
	// Charging
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CHARGING,
		},
		Value: evse.IsCharging(),
	})
	// Cable connected
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CABLE_CONNECTED,
		},
		Value: evse.IsConnected(),
	})
	// Charging switch mirrors the live state
	events = append(events, SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_CHARGING,
		},
		Value: evse.IsCharging(),
	})

	// Active session values. Zeroed when no session is running so HA does
	// not keep showing the last session forever.
	var energyKWh, cost float64
	var powerW, durationSec int64
	if session := evse.Session; session != nil {
		energyKWh = session.EnergyKWh()
		powerW = session.PowerW
		cost = session.TotalAmount
		durationSec = session.DurationSeconds
	}
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SESSION_ENERGY,
		},
		Value:    energyKWh,
		Decimals: 3,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SESSION_POWER,
		},
		Value:    float64(powerW),
		Decimals: 0,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SESSION_COST,
		},
		Value:    cost,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SESSION_DURATION,
		},
		Value:    float64(durationSec),
		Decimals: 0,
	})

	// Last completed session from history
	if snapshot.History != nil {
		if last := snapshot.History.LastSession(); last != nil {
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: SENSOR_ID_LAST_SESSION_ENERGY,
				},
				Value:    last.EnergyKWh(),
				Decimals: 3,
			})
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: SENSOR_ID_LAST_SESSION_COST,
				},
				Value:    last.TotalAmount,
				Decimals: 2,
			})
		}
	}

	// Current price
	if price := snapshot.CurrentPrice(time.Now()); price != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_CURRENT_PRICE,
			},
			Value:    price.PricePerKWh,
			Decimals: 4,
		})
	}

	// Last refresh
	if !snapshot.LastSuccess.IsZero() {
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_LAST_REFRESH,
			},
			Value: snapshot.LastSuccess.Format(time.RFC3339),
		})
	}

	return events
}

func ChargeControlSwitchUpdateEvent(charging bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_CHARGING,
		},
		Value: charging,
	}
}
