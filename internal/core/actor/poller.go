package actor

import (
	"errors"
	"fmt"
	"time"

	"drivee2mqtt/internal/config"
	"drivee2mqtt/internal/core/domain"
	"drivee2mqtt/internal/core/events"
	"drivee2mqtt/internal/core/port"
	"drivee2mqtt/internal/core/service"
	. "drivee2mqtt/internal/util/actorutil"
	"drivee2mqtt/pkg/driveeapi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	// must exceed the charger actor task timeout so timeouts surface there
	pollerRequestTimeout = 150 * time.Second
)

// PollerActor drives the refresh loop. It fetches charger state through the
// charger actor, serves history and prices from TTL caches, assembles a
// snapshot and publishes sensor update events. Only one cycle runs at a
// time; anything arriving mid-cycle is stashed.
type PollerActor struct {
	ActorWithStates
	scheduler    *scheduler.TimerScheduler
	cancelTick   scheduler.CancelFunc
	stash        *Stash
	config       *config.Config
	chargerActor *actor.PID
	eventStream  *eventstream.EventStream
	policy       port.RefreshPolicy

	historyCache *service.CachedValue[driveeapi.ChargingHistory]
	priceCache   *service.CachedValue[driveeapi.PricePeriods]

	snapshot      *domain.Snapshot
	lastSessionID string
	lastCycleErr  error
	cycleSeq      uint64

	logger *zap.Logger
}

type pollTick struct {
}

// cycleResult wraps a charger response with the id of the cycle that issued
// the request. A failed cycle can leave requests in flight; their responses
// arrive tagged with the old id and are dropped instead of being mistaken
// for results of the current cycle.
type cycleResult struct {
	cycle uint64
	msg   any
}

func NewPollerActor(config *config.Config, chargerActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	cacheTTL := time.Duration(config.PollConfig.CacheTTLSeconds) * time.Second
	act := &PollerActor{
		config:       config,
		chargerActor: chargerActor,
		eventStream:  eventStream,
		stash:        &Stash{},
		policy: service.NewAdaptiveRefreshPolicy(
			time.Duration(config.PollConfig.ChargingIntervalSeconds)*time.Second,
			time.Duration(config.PollConfig.IdleIntervalSeconds)*time.Second,
			logger),
		historyCache: service.NewCachedValue[driveeapi.ChargingHistory](cacheTTL),
		priceCache:   service.NewCachedValue[driveeapi.PricePeriods](cacheTTL),
		logger:       ActorLogger(domain.ACTOR_ID_POLLER, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(PollerStartingState{
		actor: act,
	})
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type PollerStartingState struct {
	ActorState
	actor *PollerActor
}

func (state PollerStartingState) Name() string {
	return "starting"
}

func (state PollerStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("poller@starting started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.startCycle(ctx, nil)
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Idle state. The next cycle is armed on the scheduler; commands and manual
// refreshes are served immediately.

type PollerIdleState struct {
	ActorState
	actor *PollerActor
}

func (state PollerIdleState) Name() string {
	return "idle"
}

func (state PollerIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case pollTick:
		state.actor.logger.Debug("poller@idle pollTick")
		state.actor.startCycle(ctx, nil)
	case domain.ForceRefreshRequest:
		state.actor.logger.Debug("poller@idle ForceRefreshRequest")
		state.actor.startCycle(ctx, ForRequest(msg).ReplyTo(ctx))
	case domain.GetSnapshotRequest:
		if state.actor.snapshot == nil {
			ForRequest(msg).Respond(ctx, domain.GetSnapshotResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: errors.New("no snapshot available yet"),
				},
			})
		} else {
			ForRequest(msg).Respond(ctx, domain.GetSnapshotResponse{
				Snapshot: state.actor.snapshot,
			})
		}
	case domain.ChargeControlRequest:
		state.actor.handleChargeControl(ctx, msg)
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("poller@idle ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: state.actor.lastCycleErr == nil,
			State:   state.Name(),
		})
	case cycleResult:
		state.actor.logger.Debug("poller@idle: dropping response from abandoned cycle",
			zap.Uint64("cycle", msg.cycle))
	case *actor.Restarting:
		state.actor.cancelScheduledTick()
	case *actor.Stopping:
		state.actor.cancelScheduledTick()
	default:
		state.actor.logger.Debug("poller@idle: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Cycle state. One refresh is in flight: the charge point fetch has been
// issued, history and prices follow from cache or from the charger actor.

type PollerCycleState struct {
	ActorState
	actor          *PollerActor
	replyTo        *actor.PID
	cycle          uint64
	chargePoint    *driveeapi.ChargePoint
	history        *driveeapi.ChargingHistory
	prices         *driveeapi.PricePeriods
	pendingHistory bool
	pendingPrices  bool
}

func (state PollerCycleState) Name() string {
	return "refreshing"
}

func (state PollerCycleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case cycleResult:
		if msg.cycle != state.cycle {
			state.actor.logger.Debug("poller@refreshing: dropping response from abandoned cycle",
				zap.Uint64("cycle", msg.cycle), zap.Uint64("current", state.cycle))
			return
		}
		state.receiveResult(ctx, msg.msg)
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("poller@refreshing ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   state.Name(),
		})
	case *actor.Restarting:
		state.actor.cancelScheduledTick()
	case *actor.Stopping:
		state.actor.cancelScheduledTick()
	default:
		state.actor.logger.Debug("poller@refreshing: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state PollerCycleState) receiveResult(ctx actor.Context, result any) {
	switch msg := result.(type) {
	case domain.GetChargePointResponse:
		if msg.HasResponseError() {
			state.failCycle(ctx, msg.GetResponseError())
			return
		}
		state.chargePoint = msg.ChargePoint

		// a session change outdates cached history and prices
		sessionID := msg.ChargePoint.EVSE.SessionID()
		if sessionID != state.actor.lastSessionID {
			state.actor.logger.Debug("poller@refreshing session changed",
				zap.String("previous", state.actor.lastSessionID), zap.String("current", sessionID))
			state.actor.historyCache.MarkStale()
			state.actor.priceCache.MarkStale()
			state.actor.lastSessionID = sessionID
		}

		now := time.Now()
		if history, ok := state.actor.historyCache.Get(now); ok {
			state.history = history
		} else {
			state.pendingHistory = true
			state.actor.pipeCycleResult(ctx, state.cycle, ctx.RequestFuture(state.actor.chargerActor,
				domain.GetChargingHistoryRequest{}, pollerRequestTimeout),
				func(err error) any {
					return domain.GetChargingHistoryResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
		}
		if prices, ok := state.actor.priceCache.Get(now); ok {
			state.prices = prices
		} else {
			state.pendingPrices = true
			state.actor.pipeCycleResult(ctx, state.cycle, ctx.RequestFuture(state.actor.chargerActor,
				domain.GetPricePeriodsRequest{ChargePointID: msg.ChargePoint.ID}, pollerRequestTimeout),
				func(err error) any {
					return domain.GetPricePeriodsResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
		}
		if state.pendingHistory || state.pendingPrices {
			state.actor.Become(state)
		} else {
			state.completeCycle(ctx)
		}
	case domain.GetChargingHistoryResponse:
		if msg.HasResponseError() {
			state.failCycle(ctx, msg.GetResponseError())
			return
		}
		state.actor.historyCache.Put(msg.History, time.Now())
		state.history = msg.History
		state.pendingHistory = false
		if state.pendingPrices {
			state.actor.Become(state)
		} else {
			state.completeCycle(ctx)
		}
	case domain.GetPricePeriodsResponse:
		if msg.HasResponseError() {
			state.failCycle(ctx, msg.GetResponseError())
			return
		}
		state.actor.priceCache.Put(msg.PricePeriods, time.Now())
		state.prices = msg.PricePeriods
		state.pendingPrices = false
		if state.pendingHistory {
			state.actor.Become(state)
		} else {
			state.completeCycle(ctx)
		}
	}
}

func (state PollerCycleState) completeCycle(ctx actor.Context) {
	snapshot := &domain.Snapshot{
		ChargePoint:  state.chargePoint,
		History:      state.history,
		PricePeriods: state.prices,
		LastSuccess:  time.Now(),
	}
	state.actor.snapshot = snapshot
	state.actor.lastCycleErr = nil
	state.actor.logger.Debug("poller@refreshing cycle completed",
		zap.Bool("charging", snapshot.IsCharging()))

	state.actor.publishSnapshot(snapshot)

	if state.replyTo != nil {
		ctx.Send(state.replyTo, domain.ForceRefreshResponse{})
	}
	state.actor.scheduleNextTick(ctx, snapshot.IsCharging())
	state.actor.Become(PollerIdleState{
		actor: state.actor,
	})
	state.actor.stash.UnstashAll(ctx)
}

func (state PollerCycleState) failCycle(ctx actor.Context, err error) {
	// keep the previous snapshot so sensors do not flap on transient errors
	state.actor.lastCycleErr = err
	state.actor.logger.Error("poller@refreshing cycle failed", zap.Error(err))

	state.actor.eventStream.Publish(domain.BridgeStateUpdateEvent{Value: false})

	if state.replyTo != nil {
		ctx.Send(state.replyTo, domain.ForceRefreshResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		})
	}
	charging := state.actor.snapshot != nil && state.actor.snapshot.IsCharging()
	state.actor.scheduleNextTick(ctx, charging)
	state.actor.Become(PollerIdleState{
		actor: state.actor,
	})
	state.actor.stash.UnstashAll(ctx)
}

// Command state. A start or stop command is in flight at the charger actor.

type PollerCommandState struct {
	ActorState
	actor   *PollerActor
	replyTo *actor.PID
}

func (state PollerCommandState) Name() string {
	return "command"
}

func (state PollerCommandState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.StartChargingResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("poller@command start failed", zap.Error(msg.GetResponseError()))
			state.respondStart(ctx, false, msg.GetResponseError())
			// refresh anyway, the backend may have changed state
			state.actor.startCycle(ctx, nil)
			return
		}
		state.actor.logger.Info("poller@command charging started", zap.String("session", msg.Session.ID))
		state.respondStart(ctx, true, nil)
		state.actor.eventStream.Publish(events.ChargeControlSwitchUpdateEvent(true))
		// refresh right away so sensors pick up the new session
		state.actor.startCycle(ctx, nil)
	case domain.EndChargingResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("poller@command stop failed", zap.Error(msg.GetResponseError()))
			state.respondStop(ctx, false, msg.GetResponseError())
			state.actor.startCycle(ctx, nil)
			return
		}
		state.actor.logger.Info("poller@command charging stopped", zap.String("session", msg.Session.ID))
		state.respondStop(ctx, true, nil)
		state.actor.eventStream.Publish(events.ChargeControlSwitchUpdateEvent(false))
		state.actor.startCycle(ctx, nil)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   state.Name(),
		})
	default:
		state.actor.logger.Debug("poller@command: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state PollerCommandState) respondStart(ctx actor.Context, started bool, err error) {
	if state.replyTo == nil {
		return
	}
	ctx.Send(state.replyTo, domain.ChargeControlStartResponse{
		ChargeControlResponseMixIn: domain.ChargeControlResponseMixIn{
			ActorResponse: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		},
		Started: started,
	})
}

func (state PollerCommandState) respondStop(ctx actor.Context, stopped bool, err error) {
	if state.replyTo == nil {
		return
	}
	ctx.Send(state.replyTo, domain.ChargeControlStopResponse{
		ChargeControlResponseMixIn: domain.ChargeControlResponseMixIn{
			ActorResponse: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		},
		Stopped: stopped,
	})
}

// Actor function helpers

// startCycle cancels any armed tick and issues the charge point fetch. The
// replyTo, when set, gets a ForceRefreshResponse once the cycle settles.
func (state *PollerActor) startCycle(ctx actor.Context, replyTo *actor.PID) {
	state.cancelScheduledTick()
	state.cycleSeq++
	cycle := state.cycleSeq
	state.pipeCycleResult(ctx, cycle, ctx.RequestFuture(state.chargerActor,
		domain.GetChargePointRequest{}, pollerRequestTimeout),
		func(err error) any {
			return domain.GetChargePointResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	state.Become(PollerCycleState{
		actor:   state,
		replyTo: replyTo,
		cycle:   cycle,
	})
}

// pipeCycleResult reenters the future result as a cycleResult so the cycle
// state can tell its own responses from those of an abandoned cycle.
func (state *PollerActor) pipeCycleResult(ctx actor.Context, cycle uint64, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), cycleResult{cycle: cycle, msg: mapFn(err)})
			return
		}
		ctx.Send(ctx.Self(), cycleResult{cycle: cycle, msg: msg})
	})
}

func (state *PollerActor) handleChargeControl(ctx actor.Context, msg domain.ChargeControlRequest) {
	switch cmd := msg.(type) {
	case domain.ChargeControlGetStateRequest:
		ForRequest(cmd).Respond(ctx, domain.ChargeControlGetStateResponse{
			Charging: state.snapshot != nil && state.snapshot.IsCharging(),
		})
	case domain.ChargeControlStartRequest:
		state.logger.Debug("poller@idle: cmd start")
		replyTo := ForRequest(cmd).ReplyTo(ctx)
		if state.snapshot == nil {
			state.sendStartError(ctx, replyTo, errors.New("charger state unknown, no poll cycle has succeeded yet"))
			return
		}
		if state.snapshot.IsCharging() {
			state.sendStartError(ctx, replyTo, &driveeapi.SessionError{Reason: "a session is already running"})
			return
		}
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.chargerActor,
			domain.StartChargingRequest{EvseID: state.snapshot.ChargePoint.EVSE.ID}, pollerRequestTimeout),
			func(err error) any {
				return domain.StartChargingResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				}
			})
		state.Become(PollerCommandState{
			actor:   state,
			replyTo: replyTo,
		})
	case domain.ChargeControlStopRequest:
		state.logger.Debug("poller@idle: cmd stop")
		replyTo := ForRequest(cmd).ReplyTo(ctx)
		var sessionID string
		if state.snapshot != nil {
			sessionID = state.snapshot.ChargePoint.EVSE.SessionID()
		}
		if sessionID == "" {
			state.sendStopError(ctx, replyTo, &driveeapi.SessionError{Reason: "no session is running"})
			return
		}
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.chargerActor,
			domain.EndChargingRequest{SessionID: sessionID}, pollerRequestTimeout),
			func(err error) any {
				return domain.EndChargingResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				}
			})
		state.Become(PollerCommandState{
			actor:   state,
			replyTo: replyTo,
		})
	}
}

func (state *PollerActor) sendStartError(ctx actor.Context, replyTo *actor.PID, err error) {
	if replyTo == nil {
		return
	}
	ctx.Send(replyTo, domain.ChargeControlStartResponse{
		ChargeControlResponseMixIn: domain.ChargeControlResponseMixIn{
			ActorResponse: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		},
	})
}

func (state *PollerActor) sendStopError(ctx actor.Context, replyTo *actor.PID, err error) {
	if replyTo == nil {
		return
	}
	ctx.Send(replyTo, domain.ChargeControlStopResponse{
		ChargeControlResponseMixIn: domain.ChargeControlResponseMixIn{
			ActorResponse: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		},
	})
}

func (state *PollerActor) publishSnapshot(snapshot *domain.Snapshot) {
	state.eventStream.Publish(domain.BridgeStateUpdateEvent{Value: true})
	for _, event := range events.SnapshotToUpdateEvents(snapshot) {
		state.eventStream.Publish(event)
	}
}

func (state *PollerActor) scheduleNextTick(ctx actor.Context, charging bool) {
	interval := state.policy.Interval(charging)
	state.logger.Debug("poller: next refresh scheduled", zap.Duration("interval", interval))
	state.cancelTick = state.scheduler.RequestOnce(interval, ctx.Self(), pollTick{})
}

func (state *PollerActor) cancelScheduledTick() {
	if state.cancelTick != nil {
		state.cancelTick()
		state.cancelTick = nil
	}
}
