package util

import (
	"drivee2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Drivee: config.DriveeConfig{
			Username:       "test@example.com",
			Password:       "secret",
			TimeoutSeconds: 5,
			HistoryDays:    30,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "drivee2mqtt",
		},
		PollConfig: config.PollConfig{
			ChargingIntervalSeconds: 30,
			IdleIntervalSeconds:     600,
			CacheTTLSeconds:         3600,
		},
		Port: 8080,
	}
}
