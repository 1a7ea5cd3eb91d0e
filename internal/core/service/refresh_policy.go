package service

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultChargingInterval = 30 * time.Second
	DefaultIdleInterval     = 10 * time.Minute
)

// AdaptiveRefreshPolicy polls fast while a session is running and slow when
// the charger sits idle. Sessions change by the minute; an idle charger does
// not.
type AdaptiveRefreshPolicy struct {
	ChargingInterval time.Duration
	IdleInterval     time.Duration
	Logger           *zap.Logger
}

func NewAdaptiveRefreshPolicy(chargingInterval, idleInterval time.Duration, logger *zap.Logger) *AdaptiveRefreshPolicy {
	if chargingInterval <= 0 {
		chargingInterval = DefaultChargingInterval
	}
	if idleInterval <= 0 {
		idleInterval = DefaultIdleInterval
	}
	return &AdaptiveRefreshPolicy{
		ChargingInterval: chargingInterval,
		IdleInterval:     idleInterval,
		Logger:           logger,
	}
}

func (p *AdaptiveRefreshPolicy) Interval(charging bool) time.Duration {
	if charging {
		return p.ChargingInterval
	}
	return p.IdleInterval
}
