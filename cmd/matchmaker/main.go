// Command matchmaker runs the proposed-battle lifecycle service: it
// joins the router as a WAMP peer, registers the propose/respond/list
// procedures, and ticks every live proposal once a second until it is
// fulfilled, rejected, or its deadline passes (spec.md §4.7).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/nmxmxh/battlerealm/internal/battle"
	"github.com/nmxmxh/battlerealm/internal/config"
	"github.com/nmxmxh/battlerealm/internal/matchmaking"
	"github.com/nmxmxh/battlerealm/internal/matchmaking/store"
	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/internal/wamp/peer"
	"github.com/nmxmxh/battlerealm/internal/wamp/transport"
	"github.com/nmxmxh/battlerealm/pkg/lifecycle"
	"github.com/nmxmxh/battlerealm/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// routerHost turns a listen address like ":8181" into a dialable host
// ("localhost:8181"); an address that already names a host is passed
// through unchanged.
func routerHost(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func battleFactory(opts matchmaking.BattleOptions, players []string) (matchmaking.BattleHandle, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = int64(len(players))
	}
	b := battle.NewBattle(battle.BattleFormat(opts.Format), opts.PickedTeamSize, battle.TiebreakKeep, seed)
	sess := battle.NewSession(uuid.New(), b)
	return sess, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName + "-matchmaker",
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	lc := lifecycle.NewManager(log.GetZapLogger())
	ctx, cancel := context.WithCancel(context.Background())
	lc.AddCleanup(func() error { cancel(); return nil })

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.AddCleanup(redisClient.Close)
	recorder := store.NewDeletionStore(redisClient, log.GetZapLogger())

	realm := wamp.URI(cfg.RouterRealms[0])
	sess := peer.New(cfg.AppName+"-matchmaker", nil, log)

	url := "ws://" + routerHost(cfg.RouterListenAddr) + "/"
	dialer := func(dctx context.Context) (peer.Sender, error) {
		return transport.DialClient(dctx, url, sess, log)
	}
	reconnector := peer.NewReconnector(sess, dialer, log, peer.ReconnectorConfig{
		Realm:                realm,
		Details:              wamp.Dictionary{},
		ReconnectDelay:       cfg.ReconnectDelay,
		ReconnectMaxFailures: cfg.ReconnectMaxFailures,
	})

	svc := matchmaking.NewService(sess, battleFactory, log, recorder, cfg.ProposalMaxTimeout, cfg.MatchmakingTickInterval)
	lc.AddCleanup(func() error { svc.Stop(); return nil })

	go func() {
		if err := reconnector.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("matchmaker reconnect loop exited", zap.Error(err))
		}
	}()

	select {
	case res := <-sess.Established():
		if res.Err != nil {
			log.Error("matchmaker failed to join realm", zap.Error(res.Err))
			os.Exit(1)
		}
	case <-ctx.Done():
		return
	}

	if err := svc.Register(ctx); err != nil {
		log.Error("matchmaking service registration failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("matchmaker ready", zap.String("realm", fmt.Sprint(realm)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	lc.Shutdown()
}
