// mapserver - subscribes to the map channel and fans every message out
// to the connected live-view clients over WebSocket, and serves the
// static map UI.
//
// Usage:
//
//	mapserver -broker=map_redis:6379 -port=64299
//
// Environment variables (alternative to flags):
//
//	ATTACKMAP_CONFIG  - Path to YAML config file
//	ATTACKMAP_BROKER  - Broker address (host:port)
//	ATTACKMAP_CHANNEL - Broker channel name
//	ATTACKMAP_PORT    - Client-facing listen port
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"attack-map/pkg/config"
	"attack-map/pkg/relay"
)

const version = "3.0.0"

var (
	configFlag  = flag.String("config", "", "Path to YAML config file (optional)")
	brokerFlag  = flag.String("broker", "", "Broker address (host:port)")
	channelFlag = flag.String("channel", "", "Broker channel name")
	portFlag    = flag.String("port", "", "Client-facing listen port")
	staticFlag  = flag.String("static", "", "Static asset directory")
	logLevel    = flag.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
)

// getEnvOrFlag returns the flag value if set, otherwise the environment
// variable, otherwise the default.
func getEnvOrFlag(flagVal *string, envName, defaultVal string) string {
	if *flagVal != "" {
		return *flagVal
	}
	if env := os.Getenv(envName); env != "" {
		return env
	}
	return defaultVal
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	switch strings.ToUpper(level) {
	case "DEBUG":
		log.SetLevel(logrus.DebugLevel)
	case "WARN":
		log.SetLevel(logrus.WarnLevel)
	case "ERROR":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func main() {
	flag.Parse()

	cfg, err := config.Load(getEnvOrFlag(configFlag, "ATTACKMAP_CONFIG", "config.yaml"))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	brokerAddr := getEnvOrFlag(brokerFlag, "ATTACKMAP_BROKER", cfg.Broker.Addr())
	channel := getEnvOrFlag(channelFlag, "ATTACKMAP_CHANNEL", cfg.Broker.Channel)
	port := getEnvOrFlag(portFlag, "ATTACKMAP_PORT", strconv.Itoa(cfg.Server.WebPort))
	staticDir := getEnvOrFlag(staticFlag, "ATTACKMAP_STATIC", cfg.Server.StaticDir)

	log := newLogger(getEnvOrFlag(logLevel, "ATTACKMAP_LOG_LEVEL", cfg.Log.Level))
	log.Infof("attack map server %s starting", version)

	waitForBroker(brokerAddr, log)

	registry := relay.NewRegistry(log)
	subscriber := relay.NewSubscriber(brokerAddr, channel, registry, log)
	subscriber.Start()

	server := relay.NewServer(registry, staticDir, log)
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server.Router(),
	}

	go func() {
		log.Infof("web server listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("web server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("web server shutdown: %v", err)
	}
	subscriber.Stop()
}

// waitForBroker blocks until the broker answers a ping, logging the wait
// once rather than on every retry.
func waitForBroker(addr string, log *logrus.Logger) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	waitLogged := false
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			log.Info("broker connection established")
			return
		}
		if !waitLogged {
			log.Warnf("waiting for broker... (%v)", err)
			waitLogged = true
		}
		time.Sleep(5 * time.Second)
	}
}
