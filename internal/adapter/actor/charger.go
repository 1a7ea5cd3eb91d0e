package actor

import (
	"context"
	"fmt"
	"time"

	"drivee2mqtt/internal/core/domain"
	"drivee2mqtt/internal/util/actorutil"
	"drivee2mqtt/pkg/driveeapi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	// generous enough to cover the HTTP timeout plus the auth retry backoff
	chargerTaskTimeout = 2 * time.Minute
)

// ChargerActor serializes access to the charging backend. One API call runs
// at a time; requests arriving while a call is in flight are stashed and
// replayed when the call finishes.
type ChargerActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	api      driveeapi.ChargerAPI
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewChargerActor(api driveeapi.ChargerAPI, logger *zap.Logger) *ChargerActor {
	act := &ChargerActor{
		api:      api,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_CHARGER, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ChargerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ChargerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("charger@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CHARGER,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetChargePointRequest:
		state.logger.Debug("charger@default: GetChargePointRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		state.runAPITask(ctx, sender, state.getChargePoint, func(err error) any {
			return domain.GetChargePointResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.GetChargingHistoryRequest:
		state.logger.Debug("charger@default: GetChargingHistoryRequest")
		sender := ctx.Sender()
		state.runAPITask(ctx, sender, state.getChargingHistory, func(err error) any {
			return domain.GetChargingHistoryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.GetPricePeriodsRequest:
		state.logger.Debug("charger@default: GetPricePeriodsRequest")
		sender := ctx.Sender()
		chargePointID := msg.ChargePointID
		state.runAPITask(ctx, sender, func(c context.Context) (any, error) {
			prices, err := state.api.GetPricePeriods(c, chargePointID)
			if err != nil {
				return nil, err
			}
			return domain.GetPricePeriodsResponse{PricePeriods: prices}, nil
		}, func(err error) any {
			return domain.GetPricePeriodsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.StartChargingRequest:
		state.logger.Debug("charger@default: StartChargingRequest")
		sender := ctx.Sender()
		evseID := msg.EvseID
		state.runAPITask(ctx, sender, func(c context.Context) (any, error) {
			session, err := state.api.StartCharging(c, evseID)
			if err != nil {
				return nil, err
			}
			return domain.StartChargingResponse{Session: session}, nil
		}, func(err error) any {
			return domain.StartChargingResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.EndChargingRequest:
		state.logger.Debug("charger@default: EndChargingRequest")
		sender := ctx.Sender()
		sessionID := msg.SessionID
		state.runAPITask(ctx, sender, func(c context.Context) (any, error) {
			session, err := state.api.EndCharging(c, sessionID)
			if err != nil {
				return nil, err
			}
			return domain.EndChargingResponse{Session: session}, nil
		}, func(err error) any {
			return domain.EndChargingResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case *actor.Restarting:
		state.api.Close()
	case *actor.Stopping:
		state.api.Close()
	default:
		state.logger.Debug("charger@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ChargerActor) WaitingAPI(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("charger@waitingAPI backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.api.Close()
	default:
		state.logger.Debug("charger@waitingAPI stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// runAPITask runs one backend call off the actor goroutine and pipes the
// result back to self. The actor waits in WaitingAPI until the result
// arrives.
func (state *ChargerActor) runAPITask(ctx actor.Context, sender *actor.PID, task func(context.Context) (any, error), onError func(error) any) {
	actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*backgroundTaskResult, error) {
		c, cancel := context.WithTimeout(context.Background(), chargerTaskTimeout)
		defer cancel()
		message, err := task(c)
		if err != nil {
			logger.Error(err)
			return nil, err
		}
		return &backgroundTaskResult{
			message: message,
			replyTo: sender,
		}, nil
	}), func(t *backgroundTaskResult) *backgroundTaskResult {
		return t
	}).Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{
			message: onError(err),
			replyTo: sender,
		}
	}).WithTimeout(chargerTaskTimeout).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingAPI)
}

func (state *ChargerActor) getChargePoint(c context.Context) (any, error) {
	cp, err := state.api.GetChargePoint(c)
	if err != nil {
		return nil, err
	}
	return domain.GetChargePointResponse{ChargePoint: cp}, nil
}

func (state *ChargerActor) getChargingHistory(c context.Context) (any, error) {
	history, err := state.api.GetChargingHistory(c)
	if err != nil {
		return nil, err
	}
	return domain.GetChargingHistoryResponse{History: history}, nil
}
