package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"
	"golang.org/x/sync/errgroup"

	"github.com/daemonp/vivint2mqtt/internal/account"
	"github.com/daemonp/vivint2mqtt/internal/cache"
	"github.com/daemonp/vivint2mqtt/internal/config"
	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/homeassistant"
	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/mqtt"
	"github.com/daemonp/vivint2mqtt/internal/pubnub"
	"github.com/daemonp/vivint2mqtt/internal/skyapi"
	"github.com/daemonp/vivint2mqtt/internal/zwave"
)

var _ account.API = (*skyapi.Client)(nil)

const (
	dispatcherDepth = 256
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	logger := log.NewLogger(cfg.Log)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	logger.Info("Stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	hardware := zwave.NewTable(nil)
	if cfg.ZWaveDB != "" {
		var err error
		if hardware, err = zwave.LoadFile(cfg.ZWaveDB); err != nil {
			return err
		}
	}

	dispatcher := entity.NewDispatcher(logger.With("component", "dispatcher"), cfg.DispatcherWorkers, dispatcherDepth)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Load cached session if enabled
	var store *cache.Store
	if cfg.Cache {
		var err error
		if store, err = cache.NewStore(""); err != nil {
			logger.Warn("Session cache disabled: %v", err)
		}
	}

	env := devices.Env{Log: logger, Dispatcher: dispatcher, Hardware: hardware}
	transport := pubnub.New(pubnub.Config{
		Origin: cfg.Vivint.PubNubOrigin,
		Log:    logger.With("component", "pubnub"),
	})

	acct, err := connect(ctx, cfg, store, env, transport, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := acct.Disconnect(shutdownCtx); err != nil {
			logger.Warn("Failed to disconnect from Vivint: %v", err)
		}
		acct.Wait()
	}()
	saveSession(store, cfg.Vivint.Username, acct.RefreshToken(), logger)

	// Connect to MQTT broker
	bridge := mqtt.NewMQTT(&cfg.MQTT, acct, logger.With("component", "mqtt"))
	if cfg.HomeAssistant.Discovery {
		homeassistant.New(&cfg.HomeAssistant, bridge, logger.With("component", "homeassistant")).Attach(bridge)
	}
	if err := bridge.Connect(ctx); err != nil {
		return err
	}
	defer bridge.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("Serving metrics on %s", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	sup := suture.New("vivint2mqtt", suture.Spec{
		EventHook: func(ev suture.Event) {
			logger.Warn("supervisor: %s", ev)
		},
	})
	sup.Add(&refresher{
		account:  acct,
		bridge:   bridge,
		store:    store,
		username: cfg.Vivint.Username,
		interval: cfg.RefreshInterval,
		log:      logger.With("component", "refresher"),
	})
	g.Go(func() error {
		if err := sup.Serve(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	logger.Info("Bridge running")
	err = g.Wait()
	logger.Info("Shutting down...")
	return err
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// connect logs in, preferring a cached refresh token. A rejected cached token
// is discarded and the password login is tried instead.
func connect(ctx context.Context, cfg *config.Config, store *cache.Store, env devices.Env, transport account.Transport, logger *log.Logger) (*account.Account, error) {
	token := cfg.Vivint.RefreshToken
	cached := false
	if token == "" && store != nil {
		session, err := store.LoadCache(cfg.Vivint.Username)
		if err != nil {
			logger.Warn("Failed to load session cache: %v", err)
		} else if session != nil {
			token, cached = session.RefreshToken, true
			logger.Info("Loaded session from cache")
		}
	}

	acct, err := login(ctx, cfg, token, env, transport, logger)
	if err != nil && cached && skyapi.IsAuthError(err) && cfg.Vivint.Password != "" {
		logger.Warn("Cached session rejected, logging in with password")
		if err := store.DeleteCache(); err != nil {
			logger.Warn("Failed to delete cache: %v", err)
		}
		acct, err = login(ctx, cfg, "", env, transport, logger)
	}
	return acct, err
}

func login(ctx context.Context, cfg *config.Config, token string, env devices.Env, transport account.Transport, logger *log.Logger) (*account.Account, error) {
	api, err := skyapi.New(skyapi.Options{
		Username:       cfg.Vivint.Username,
		Password:       cfg.Vivint.Password,
		RefreshToken:   token,
		PersistSession: cfg.Vivint.PersistSession,
		BaseURL:        cfg.Vivint.APIURL,
		Log:            logger.With("component", "skyapi"),
	})
	if err != nil {
		return nil, err
	}

	acct := account.New(api, env, account.Options{Transport: transport, ValidityTimeout: cfg.ValidityTimeout})
	err = acct.Connect(ctx, account.ConnectOptions{LoadDevices: true, Subscribe: true})
	if skyapi.IsMFARequired(err) {
		if cfg.Vivint.MFACode == "" {
			return nil, fmt.Errorf("vivint requires a verification code: set vivint.mfa_code and restart")
		}
		logger.Info("Submitting verification code")
		err = acct.VerifyMFA(ctx, cfg.Vivint.MFACode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Vivint: %w", err)
	}
	logger.Info("Connected to Vivint Sky with %d system(s)", len(acct.Systems()))
	return acct, nil
}

func saveSession(store *cache.Store, username, token string, logger *log.Logger) {
	if store == nil || token == "" {
		return
	}
	err := store.SaveCache(cache.Session{Username: username, RefreshToken: token, LastUpdate: time.Now()})
	if err != nil {
		logger.Warn("Failed to save cache: %v", err)
		return
	}
	logger.Debug("Saved session to cache")
}
