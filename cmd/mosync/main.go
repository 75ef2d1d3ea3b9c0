package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"mosync/config"
	"mosync/engine"
	"mosync/erp"
	"mosync/messaging"
	"mosync/mocache"
	"mosync/store"
	"mosync/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "mosync.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("mosync", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("mosync: database open (%s)", cfg.Database.Driver)

	// Redis
	var cacheOpts []mocache.Option
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("mosync: redis not available (%v), running without mirror", err)
	} else {
		log.Printf("mosync: redis connected (%s)", cfg.Redis.Address)
		cacheOpts = append(cacheOpts, mocache.WithMirror(mocache.NewRedisMirror(redisClient)))
	}
	cancel()
	defer redisClient.Close()

	// MO cache
	cache := mocache.New(db, cfg.Cache.RetentionWindow(), cacheOpts...)

	// ERP client
	erpClient := erp.NewClient(cfg.ERP.BaseURL, cfg.ERP.SessionID, cfg.ERP.Timeout())
	if cfg.ERP.BaseURL == "" {
		log.Printf("mosync: ERP base url not configured, sync will fail until set")
	}

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if msgClient.Enabled() {
		if err := msgClient.Connect(); err != nil {
			log.Printf("mosync: messaging connect failed (%v)", err)
		} else {
			log.Printf("mosync: messaging connected (%s)", cfg.Messaging.Backend)
		}
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		ERPClient:  erpClient,
		Cache:      cache,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Web server
	handler := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("mosync: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("mosync: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("mosync: shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("mosync: stopped")
}
