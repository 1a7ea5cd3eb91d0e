package actor

import (
	"testing"
	"time"

	"drivee2mqtt/internal/core/domain"
	"drivee2mqtt/internal/util/actorutil"
	"drivee2mqtt/pkg/driveeapi"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetChargePointChargerActor(t *testing.T) {

	assert := assert.New(t)

	api := driveeapi.CreateTestChargerAPI()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewChargerActor(api, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetChargePointRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetChargePointResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(resp.ChargePoint.ID, "cp-1", "charge point id")
	assert.Equal(resp.ChargePoint.EVSE.ID, "evse-1", "evse id")
	assert.False(resp.ChargePoint.EVSE.IsCharging(), "not charging")

	context.Stop(pid)

	as.Shutdown()
}

func TestStartAndEndChargingChargerActor(t *testing.T) {

	assert := assert.New(t)

	api := driveeapi.CreateTestChargerAPI()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewChargerActor(api, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.StartChargingRequest{EvseID: "evse-1"}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	startResp := result.(domain.StartChargingResponse)
	assert.False(startResp.HasResponseError())
	assert.Equal(startResp.Session.EvseID, "evse-1", "session evse")
	sessionID := startResp.Session.ID

	// starting again must fail with a session error
	result, err = context.RequestFuture(pid, domain.StartChargingRequest{EvseID: "evse-1"}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	startResp = result.(domain.StartChargingResponse)
	assert.True(startResp.HasResponseError())

	result, err = context.RequestFuture(pid, domain.EndChargingRequest{SessionID: sessionID}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	endResp := result.(domain.EndChargingResponse)
	assert.False(endResp.HasResponseError())
	assert.NotNil(endResp.Session.StoppedAt, "session stopped")

	context.Stop(pid)

	as.Shutdown()
}
