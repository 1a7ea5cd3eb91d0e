package domain

import "fmt"

// ChargeControlRequest

type ChargeControlRequest interface {
	ActorRequest
	ChargeControlCommand() string
}

type ChargeControlRequestMixIn struct {
	ActorRequestMixIn
}

func (r ChargeControlRequestMixIn) ChargeControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// ChargeControlResponse

type ChargeControlResponse interface {
	ActorResponse
	ChargeControlResponse() string
}

type ChargeControlResponseMixIn struct {
	ActorResponse
}

func (r ChargeControlResponseMixIn) ChargeControlResponse() string {
	return fmt.Sprintf("%T", r)
}

// ChargeControl commands

type ChargeControlStartRequest struct {
	ChargeControlRequestMixIn
}

type ChargeControlStartResponse struct {
	ChargeControlResponseMixIn
	Started bool
}

type ChargeControlStopRequest struct {
	ChargeControlRequestMixIn
}

type ChargeControlStopResponse struct {
	ChargeControlResponseMixIn
	Stopped bool
}

type ChargeControlGetStateRequest struct {
	ChargeControlRequestMixIn
}

type ChargeControlGetStateResponse struct {
	ChargeControlResponseMixIn
	Charging bool
}

// ensure interface compliance
var _ ChargeControlRequest = (*ChargeControlStartRequest)(nil)
