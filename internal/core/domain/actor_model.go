package domain

import "drivee2mqtt/pkg/driveeapi"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_CHARGER      = "charger"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetChargePointRequest struct {
	ActorRequestMixIn
}

type GetChargePointResponse struct {
	ActorResponseMixIn
	ChargePoint *driveeapi.ChargePoint
}

type GetChargingHistoryRequest struct {
	ActorRequestMixIn
}

type GetChargingHistoryResponse struct {
	ActorResponseMixIn
	History *driveeapi.ChargingHistory
}

type GetPricePeriodsRequest struct {
	ActorRequestMixIn
	ChargePointID string
}

type GetPricePeriodsResponse struct {
	ActorResponseMixIn
	PricePeriods *driveeapi.PricePeriods
}

type StartChargingRequest struct {
	ActorRequestMixIn
	EvseID string
}

type StartChargingResponse struct {
	ActorResponseMixIn
	Session *driveeapi.ChargingSession
}

type EndChargingRequest struct {
	ActorRequestMixIn
	SessionID string
}

type EndChargingResponse struct {
	ActorResponseMixIn
	Session *driveeapi.ChargingSession
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot *Snapshot
}

type ForceRefreshRequest struct {
	ActorRequestMixIn
}

type ForceRefreshResponse struct {
	ActorResponseMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Switches []GenericSwitch
	Buttons  []GenericButton
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
