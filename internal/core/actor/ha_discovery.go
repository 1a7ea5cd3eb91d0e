package actor

import (
	"errors"
	"fmt"
	"time"

	"drivee2mqtt/internal/config"
	"drivee2mqtt/internal/core/domain"
	"drivee2mqtt/internal/util/actorutil"
	"drivee2mqtt/pkg/driveeapi"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	// the first charge point fetch includes a token round trip
	haDiscoveryInfoTimeout = 60 * time.Second
)

type HADiscoveryActor struct {
	config              *config.Config
	behavior            actor.Behavior
	stash               *actorutil.Stash
	chargerActor        *actor.PID
	mqttActor           *actor.PID
	chargerActorHealthy bool
	mqttActorHealthy    bool
	healthyRecv         int
	chargePoint         *driveeapi.ChargePoint

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, chargerActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:       config,
		chargerActor: chargerActor,
		mqttActor:    mqttActor,
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		logger:       actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check Charger and MQTT actor healthy
		state.healthyRecv = 0
		state.chargerActorHealthy = false
		state.mqttActorHealthy = false
		// Charger Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.chargerActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_CHARGER,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_CHARGER:
				state.chargerActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.chargerActorHealthy && state.mqttActorHealthy {
				// Ask Charger GetChargePointRequest
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.chargerActor, domain.GetChargePointRequest{}, haDiscoveryInfoTimeout), func(err error) any {
					return domain.GetChargePointResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Charger Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetChargePointResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetChargePointResponse", zap.Any("response", msg))
		state.chargePoint = msg.ChargePoint

		// history carries the currency used for cost and price sensors
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.chargerActor, domain.GetChargingHistoryRequest{}, haDiscoveryInfoTimeout), func(err error) any {
			return domain.GetChargingHistoryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingHistoryReceive)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) WaitingHistoryReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetChargingHistoryResponse:
		var currency string
		if msg.HasResponseError() {
			// discovery can still proceed, monetary sensors just lose their unit
			state.logger.Warn("hadiscovery@history: GetChargingHistoryResponse error", zap.Error(msg.GetResponseError()))
		} else {
			currency = historyCurrency(state.chargePoint, msg.History)
		}

		var sensors []domain.GenericSensor
		var switches []domain.GenericSwitch
		var buttons []domain.GenericButton

		bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
		bridgeSensors := domain.BridgeSensors(bridgeDevice)
		sensors = append(sensors, bridgeSensors...)

		chargerDevice := domain.ChargerDevice(state.chargePoint)
		chargerDevice.ViaDevice = bridgeDevice.Id
		chargerSensors := domain.ChargerBaseSensors(chargerDevice, currency)
		for i := range chargerSensors {
			if i > 0 {
				chargerSensors[i].Device = domain.IdDevice(chargerDevice)
			}
			sensors = append(sensors, chargerSensors[i])
		}

		switches = append(switches, domain.ChargeControlSwitches(domain.IdDevice(chargerDevice))...)
		buttons = append(buttons, domain.ChargerButtons(domain.IdDevice(chargerDevice))...)

		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:  sensors,
			Switches: switches,
			Buttons:  buttons,
		})
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@history: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func historyCurrency(chargePoint *driveeapi.ChargePoint, history *driveeapi.ChargingHistory) string {
	if chargePoint != nil && chargePoint.EVSE.Session != nil {
		return chargePoint.EVSE.Session.Currency.Code
	}
	if history != nil {
		if session := history.LastSession(); session != nil {
			return session.Currency.Code
		}
	}
	return ""
}
