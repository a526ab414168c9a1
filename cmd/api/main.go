// gearsim API server: weapon duel simulation over HTTP and websocket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andromeda-ttrpg/gearsim/internal/catalog"
	"github.com/andromeda-ttrpg/gearsim/internal/config"
	"github.com/andromeda-ttrpg/gearsim/internal/logging"
	"github.com/andromeda-ttrpg/gearsim/internal/server"
	"github.com/andromeda-ttrpg/gearsim/internal/store"
)

func main() {
	log := logging.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			log.WithError(err).Fatal("load property catalog")
		}
		log.WithField("path", cfg.CatalogPath).Info("loaded property catalog")
	}

	var runStore server.Store
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			log.WithError(err).Fatal("open run store")
		}
		defer st.Close()
		runStore = st
	}

	srv := server.New(log, cat, runStore, cfg.TrialCap, cfg.Workers)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", httpSrv.Addr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("serve")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
