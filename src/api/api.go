package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/collablink/collab-comms/src/api/config"
	"github.com/collablink/collab-comms/src/api/data"
	"github.com/collablink/collab-comms/src/api/engine"
	"github.com/collablink/collab-comms/src/api/store"
	"github.com/collablink/collab-comms/src/api/webserver"
)

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	if err := store.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	rdb := data.MustRedis(cfg.RedisURL)

	eng := engine.New(
		store.NewGorm(db),
		data.NewUnreadCache(rdb),
		data.NewStreamPublisher(rdb),
	)

	router := webserver.New(cfg, eng)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			var reloader *webserver.TLSReloader
			reloader, err = webserver.NewTLSReloader(cfg.TLSCert, cfg.TLSKey)
			if err != nil {
				log.Fatalf("tls: %v", err)
			}
			httpSrv.TLSConfig = reloader.Config()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("CollabComms API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
