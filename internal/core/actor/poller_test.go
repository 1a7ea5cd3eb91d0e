package actor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	adactor "drivee2mqtt/internal/adapter/actor"
	"drivee2mqtt/internal/core/domain"
	"drivee2mqtt/internal/util"
	"drivee2mqtt/pkg/driveeapi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// slowPriceChargerAPI delays price period fetches so a response can land
// after the cycle that requested it has already settled.
type slowPriceChargerAPI struct {
	*driveeapi.TestChargerAPI
	priceDelay time.Duration
}

func (api *slowPriceChargerAPI) GetPricePeriods(ctx context.Context, chargePointID string) (*driveeapi.PricePeriods, error) {
	time.Sleep(api.priceDelay)
	return api.TestChargerAPI.GetPricePeriods(ctx, chargePointID)
}

func spawnPollerWithCharger(t *testing.T, as *actor.ActorSystem, api driveeapi.ChargerAPI, es *eventstream.EventStream) *actor.PID {
	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	context := as.Root

	chargerProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewChargerActor(api, logger)
	})
	chargerPID, err := context.SpawnNamed(chargerProps, "charger")
	if err != nil {
		t.Fatal(err)
	}

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, chargerPID, es, logger)
	})
	pollerPID, err := context.SpawnNamed(pollerProps, "poller")
	if err != nil {
		t.Fatal(err)
	}
	return pollerPID
}

func TestPollerActorSnapshotAndCache(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	api := driveeapi.CreateTestChargerAPI()
	es := &eventstream.EventStream{}
	var publishedEvents int32
	es.Subscribe(func(value any) {
		atomic.AddInt32(&publishedEvents, 1)
	})

	pollerPID := spawnPollerWithCharger(t, as, api, es)

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pollerPID, domain.GetSnapshotRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	snapResp, ok := res.(domain.GetSnapshotResponse)
	assert.True(t, ok)
	assert.False(t, snapResp.HasResponseError())
	assert.NotNil(t, snapResp.Snapshot)
	assert.Equal(t, "cp-1", snapResp.Snapshot.ChargePoint.ID)
	assert.NotNil(t, snapResp.Snapshot.History)
	assert.Len(t, snapResp.Snapshot.History.Sessions, 2)
	assert.NotNil(t, snapResp.Snapshot.PricePeriods)
	assert.False(t, snapResp.Snapshot.IsCharging())

	// a forced refresh refetches the charge point but serves history and
	// prices from cache while the session is unchanged
	res, err = context.RequestFuture(pollerPID, domain.ForceRefreshRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	refreshResp, ok := res.(domain.ForceRefreshResponse)
	assert.True(t, ok)
	assert.False(t, refreshResp.HasResponseError())

	assert.Equal(t, 2, api.ChargePointCalls)
	assert.Equal(t, 1, api.HistoryCalls)
	assert.Equal(t, 1, api.PricePeriodsCalls)

	assert.Greater(t, atomic.LoadInt32(&publishedEvents), int32(0))

	context.Stop(pollerPID)
	as.Shutdown()
}

func TestPollerActorIgnoresResponsesFromFailedCycle(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	inner := driveeapi.CreateTestChargerAPI()
	inner.HistoryErr = errors.New("history backend down")
	api := &slowPriceChargerAPI{TestChargerAPI: inner, priceDelay: 2 * time.Second}
	es := &eventstream.EventStream{}

	pollerPID := spawnPollerWithCharger(t, as, api, es)

	// first cycle: history fails right away and the cycle settles with the
	// price request still in flight at the charger
	time.Sleep(500 * time.Millisecond)

	// the stale price response lands while this refresh is still waiting on
	// the charge point; it must not be taken as this cycle's result
	res, err := context.RequestFuture(pollerPID, domain.ForceRefreshRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	refreshResp, ok := res.(domain.ForceRefreshResponse)
	assert.True(t, ok)
	assert.True(t, refreshResp.HasResponseError())

	// no cycle has ever completed, so no snapshot may have been published
	time.Sleep(3 * time.Second)

	res, err = context.RequestFuture(pollerPID, domain.GetSnapshotRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	snapResp, ok := res.(domain.GetSnapshotResponse)
	assert.True(t, ok)
	assert.True(t, snapResp.HasResponseError())
	assert.Nil(t, snapResp.Snapshot)

	context.Stop(pollerPID)
	as.Shutdown()
}

func TestPollerActorChargeControl(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	api := driveeapi.CreateTestChargerAPI()
	es := &eventstream.EventStream{}

	pollerPID := spawnPollerWithCharger(t, as, api, es)

	time.Sleep(2 * time.Second)

	// start charging
	res, err := context.RequestFuture(pollerPID, domain.ChargeControlStartRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	startResp, ok := res.(domain.ChargeControlStartResponse)
	assert.True(t, ok)
	assert.False(t, startResp.HasResponseError())
	assert.True(t, startResp.Started)

	// the follow-up refresh picks up the new session
	time.Sleep(2 * time.Second)

	res, err = context.RequestFuture(pollerPID, domain.GetSnapshotRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	snapResp, ok := res.(domain.GetSnapshotResponse)
	assert.True(t, ok)
	assert.True(t, snapResp.Snapshot.IsCharging())

	// a second start is rejected without reaching the API
	res, err = context.RequestFuture(pollerPID, domain.ChargeControlStartRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	startResp, ok = res.(domain.ChargeControlStartResponse)
	assert.True(t, ok)
	assert.True(t, startResp.HasResponseError())
	var sessionErr *driveeapi.SessionError
	assert.ErrorAs(t, startResp.GetResponseError(), &sessionErr)
	assert.Equal(t, 1, api.StartCalls)

	// stop charging
	res, err = context.RequestFuture(pollerPID, domain.ChargeControlStopRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	stopResp, ok := res.(domain.ChargeControlStopResponse)
	assert.True(t, ok)
	assert.False(t, stopResp.HasResponseError())
	assert.True(t, stopResp.Stopped)

	time.Sleep(2 * time.Second)

	res, err = context.RequestFuture(pollerPID, domain.GetSnapshotRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Fatal(err)
	}
	snapResp, ok = res.(domain.GetSnapshotResponse)
	assert.True(t, ok)
	assert.False(t, snapResp.Snapshot.IsCharging())

	context.Stop(pollerPID)
	as.Shutdown()
}
