// dataserver - polls the honeypot search index and publishes normalized
// attack events and aggregate stats on the map channel.
//
// Usage:
//
//	dataserver -es=http://elasticsearch:9200 -broker=map_redis:6379
//
// Environment variables (alternative to flags):
//
//	ATTACKMAP_CONFIG  - Path to YAML config file
//	ATTACKMAP_ES      - Search backend URL
//	ATTACKMAP_INDEX   - Search index pattern
//	ATTACKMAP_BROKER  - Broker address (host:port)
//	ATTACKMAP_CHANNEL - Broker channel name
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"attack-map/pkg/broker"
	"attack-map/pkg/config"
	"attack-map/pkg/poller"
)

const version = "3.0.0"

var (
	configFlag  = flag.String("config", "", "Path to YAML config file (optional)")
	esFlag      = flag.String("es", "", "Search backend URL")
	indexFlag   = flag.String("index", "", "Search index pattern")
	brokerFlag  = flag.String("broker", "", "Broker address (host:port)")
	channelFlag = flag.String("channel", "", "Broker channel name")
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

	cfg.Search.URL = getEnvOrFlag(esFlag, "ATTACKMAP_ES", cfg.Search.URL)
	cfg.Search.Index = getEnvOrFlag(indexFlag, "ATTACKMAP_INDEX", cfg.Search.Index)
	cfg.Broker.Channel = getEnvOrFlag(channelFlag, "ATTACKMAP_CHANNEL", cfg.Broker.Channel)
	brokerAddr := getEnvOrFlag(brokerFlag, "ATTACKMAP_BROKER", cfg.Broker.Addr())

	log := newLogger(getEnvOrFlag(logLevel, "ATTACKMAP_LOG_LEVEL", cfg.Log.Level))
	log.Infof("data server %s starting", version)

	es, err := poller.NewESClient(poller.ESConfig{
		URL:         cfg.Search.URL,
		Index:       cfg.Search.Index,
		Username:    cfg.Search.Username,
		Password:    cfg.Search.Password,
		VerifyCerts: cfg.Search.VerifyCerts,
	})
	if err != nil {
		log.Fatalf("search backend setup: %v", err)
	}

	pub := broker.NewPublisher(brokerAddr, cfg.Broker.Channel, cfg.UI.TextOutput, log)

	waitForBackends(es, pub, log)
	log.Info("starting data server loop")

	p := poller.New(es, pub, log)
	p.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down...")
	p.Stop()
	pub.Close()
}

// waitForBackends blocks until both the search backend and the broker
// answer, logging the wait once per backend rather than on every retry.
func waitForBackends(es *poller.ESClient, pub *broker.Publisher, log *logrus.Logger) {
	esReady, brokerReady := false, false
	esWaitLogged, brokerWaitLogged := false, false

	for !esReady || !brokerReady {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if !esReady {
			if err := es.Ping(ctx); err != nil {
				if !esWaitLogged {
					log.Warnf("waiting for search backend... (%v)", err)
					esWaitLogged = true
				}
			} else {
				log.Info("search backend connection established")
				esReady = true
			}
		}
		if !brokerReady {
			if err := pub.Ping(ctx); err != nil {
				if !brokerWaitLogged {
					log.Warnf("waiting for broker... (%v)", err)
					brokerWaitLogged = true
				}
			} else {
				log.Info("broker connection established")
				brokerReady = true
			}
		}
		cancel()

		if !esReady || !brokerReady {
			time.Sleep(5 * time.Second)
		}
	}
}
