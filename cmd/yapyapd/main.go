// Command yapyapd runs a single message-router node: it opens the
// embedded store, restores or creates this node's identity, and
// serves both the peer-facing framed-stream listener and the
// JSON-over-HTTP control plane.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yapyap/node/internal/codec"
	"github.com/yapyap/node/internal/config"
	"github.com/yapyap/node/internal/control"
	"github.com/yapyap/node/internal/events"
	"github.com/yapyap/node/internal/router"
	"github.com/yapyap/node/internal/session"
	"github.com/yapyap/node/internal/store"
	"github.com/yapyap/node/internal/transport"
	"github.com/yapyap/node/internal/wire"
)

func main() {
	dataDir := flag.String("data-dir", "./data", "directory for the embedded store and its lock file")
	listenAddr := flag.String("listen", ":7000", "address the peer-facing stream listener binds")
	controlHost := flag.String("control-host", "127.0.0.1", "control-plane HTTP listen host")
	controlPort := flag.Int("control-port", 3000, "control-plane HTTP listen port (auto-increments on conflict)")
	bootstrapPeers := flag.String("bootstrap-peers", "", "comma-separated relay candidates used when the routing cache is empty")
	logLevel := flag.String("log-level", "info", "logrus level: debug, info, warn, error")
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}
	entry := log.WithField("component", "main")

	cfg := config.Default()
	cfg.DataDir = *dataDir
	if *bootstrapPeers != "" {
		cfg.BootstrapPeers = strings.Split(*bootstrapPeers, ",")
	}

	st, err := store.Open(cfg.DataDir, log)
	if err != nil {
		entry.WithError(err).Fatal("open store")
	}
	defer st.Close()

	identity, staticKey, err := loadOrCreateIdentity(st)
	if err != nil {
		entry.WithError(err).Fatal("load or create identity")
	}
	entry.WithField("peer_id", identity.PeerID()).Info("node identity ready")

	sessions, err := session.New(st, cfg.SessionExpiry, log)
	if err != nil {
		entry.WithError(err).Fatal("start session registry")
	}

	adapter := transport.New(cfg.DialTimeout, cfg.SendTimeout, cfg.CloseTimeout, cfg.MaxFrameSize, cfg.IdleTimeout, nil)

	sink, eventsCh := events.Channel(256)

	r := router.New(router.Deps{
		Config:    cfg,
		Store:     st,
		Sessions:  sessions,
		Transport: adapter,
		Identity:  identity,
		StaticKey: staticKey,
		Events:    sink,
		Log:       log,
	})
	defer r.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := transport.Listen(*listenAddr, cfg.MaxFrameSize, cfg.IdleTimeout, func(v codec.Value) error {
		m, ok := wire.MessageFromValue(v)
		if !ok {
			return fmt.Errorf("yapyapd: malformed inbound frame")
		}
		return r.Receive(ctx, m)
	})
	if err != nil {
		entry.WithError(err).Fatal("bind peer listener")
	}
	go func() {
		if err := listener.Serve(ctx); err != nil {
			entry.WithError(err).Error("peer listener stopped")
		}
	}()
	entry.WithField("address", listener.Addr().String()).Info("peer listener up")

	srv := control.NewServer(r, st, eventsCh, log)
	boundPort, err := srv.Listen(*controlHost, *controlPort, cfg.ControlPlaneMaxPortTries)
	if err != nil {
		entry.WithError(err).Fatal("bind control plane")
	}
	go func() {
		if err := srv.Serve(); err != nil {
			entry.WithError(err).Error("control plane stopped")
		}
	}()
	entry.WithField("port", boundPort).Info("control plane up")

	ticker := time.NewTicker(cfg.RetryTickInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.RetryTick(ctx); err != nil {
					entry.WithError(err).Warn("retry tick")
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	entry.Info("shutting down")

	cancel()
	_ = listener.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Warn("control plane shutdown")
	}
}
