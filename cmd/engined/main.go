package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/uhyunpark/ddxclob/internal/clobcrypto"
	"github.com/uhyunpark/ddxclob/internal/engine"
	"github.com/uhyunpark/ddxclob/internal/orderbook"
	transporthttp "github.com/uhyunpark/ddxclob/internal/transport/http"
	"github.com/uhyunpark/ddxclob/params"
	"github.com/uhyunpark/ddxclob/pkg/util"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	if cfg.Verbose {
		sugar.Info("verbose logging enabled")
	}
	sugar.Infow("engine_starting", "api_addr", cfg.APIAddr, "log_file", cfg.LogFile)

	book := orderbook.New(clobcrypto.NewDefaultOrderHasher())
	eng := engine.New(book, engine.WithLogger(sugar))

	server := transporthttp.New(eng, sugar)
	go server.Hub().Run()

	httpServer := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("api_server_listening", "addr", cfg.APIAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutdown_signal_received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("shutdown_error", "err", err)
	}
}
