package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "drivee2mqtt/internal/adapter/actor"
	"drivee2mqtt/internal/config"
	"drivee2mqtt/internal/core/actor"
	"drivee2mqtt/internal/server"
	"drivee2mqtt/internal/util/actorutil"
	"drivee2mqtt/pkg/driveeapi"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, chargerActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => DRIVEE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("DRIVEE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("drivee")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check credentials
	if cfg.Drivee.Username == "" || cfg.Drivee.Password == "" {
		return nil, errors.New("config params drivee.username and drivee.password are required")
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.PollConfig.ChargingIntervalSeconds < 5 {
		return nil, errors.New("config param poll.charging_interval_seconds should be >= 5")
	}
	if cfg.PollConfig.IdleIntervalSeconds < 30 {
		return nil, errors.New("config param poll.idle_interval_seconds should be >= 30")
	}
	if cfg.PollConfig.CacheTTLSeconds < 60 {
		return nil, errors.New("config param poll.cache_ttl_seconds should be >= 60")
	}
	if cfg.Drivee.HistoryDays < 1 || cfg.Drivee.HistoryDays > 365 {
		return nil, errors.New("config param drivee.history_days should be between 1 and 365")
	}

	// resolve timezone
	loc, err := resolveLocation(cfg.Drivee.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config param drivee.timezone is not a valid IANA timezone name: %w", err)
	}
	cfg.Drivee.Location = loc

	return &cfg, nil
}

func resolveLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func chargerActorProvider(cfg *config.Config, logger *zap.Logger) actor.ChargerActorProvider {
	return func() *adactor.ChargerActor {
		client := driveeapi.NewClient(driveeapi.Config{
			BaseURL:     cfg.Drivee.BaseURL,
			Username:    cfg.Drivee.Username,
			Password:    cfg.Drivee.Password,
			Timeout:     time.Duration(cfg.Drivee.TimeoutSeconds) * time.Second,
			HistoryDays: int(cfg.Drivee.HistoryDays),
			Location:    cfg.Drivee.Location,
		})
		return adactor.NewChargerActor(client, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "drivee2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("drivee.timeout_seconds", 30)
	viper.SetDefault("drivee.history_days", 30)
	viper.SetDefault("drivee.timezone", "")
	viper.SetDefault("poll.charging_interval_seconds", 30)
	viper.SetDefault("poll.idle_interval_seconds", 600)
	viper.SetDefault("poll.cache_ttl_seconds", 3600)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Drivee.Username = "*redacted*"
	cfg.Drivee.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
