package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Drivee   DriveeConfig `mapstructure:"drivee"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`

	PollConfig PollConfig `mapstructure:"poll"`
	Port       uint       `mapstructure:"port"`
	HttpLog    bool       `mapstructure:"http_log"`
}

type DriveeConfig struct {
	Username       string
	Password       string
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds uint32 `mapstructure:"timeout_seconds"`
	HistoryDays    uint32 `mapstructure:"history_days"`

	// IANA name of the charger's local timezone, used to anchor wall-clock
	// values from the backend. Resolved into Location at startup.
	Timezone string         `mapstructure:"timezone"`
	Location *time.Location `mapstructure:"-"`
}

type PollConfig struct {
	ChargingIntervalSeconds uint32 `mapstructure:"charging_interval_seconds"`
	IdleIntervalSeconds     uint32 `mapstructure:"idle_interval_seconds"`
	CacheTTLSeconds         uint32 `mapstructure:"cache_ttl_seconds"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
