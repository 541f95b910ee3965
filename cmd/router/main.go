// Command router runs the WAMP router process: it bootstraps the
// configured realms and serves WebSocket connections for peers to join
// (spec.md §4.3 "Realm state (router)", §6 "WAMP here runs over
// WebSocket or an in-process duplex stream only").
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nmxmxh/battlerealm/internal/config"
	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/internal/wamp/router"
	"github.com/nmxmxh/battlerealm/internal/wamp/transport"
	"github.com/nmxmxh/battlerealm/pkg/lifecycle"
	"github.com/nmxmxh/battlerealm/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName + "-router",
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	lc := lifecycle.NewManager(log.GetZapLogger())

	rt := router.New(router.Config{Agent: cfg.AppName + "-router", Roles: []string{"broker", "dealer"}}, log)
	realms := make([]wamp.URI, 0, len(cfg.RouterRealms))
	for _, r := range cfg.RouterRealms {
		realms = append(realms, wamp.URI(r))
	}
	if err := rt.Bootstrap(realms); err != nil {
		log.Error("realm bootstrap failed", zap.Error(err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/", transport.NewHandler(rt, log))

	srv := &http.Server{Addr: cfg.RouterListenAddr, Handler: mux}
	lc.AddCleanup(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	go func() {
		log.Info("router listening", zap.String("addr", cfg.RouterListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("router listener failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	lc.Shutdown()
}
