package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskflow-ai/taskflow/internal/agenttools"
	"github.com/taskflow-ai/taskflow/internal/api"
	"github.com/taskflow-ai/taskflow/internal/auth"
	"github.com/taskflow-ai/taskflow/internal/chat"
	"github.com/taskflow-ai/taskflow/internal/config"
	"github.com/taskflow-ai/taskflow/internal/engine"
	"github.com/taskflow-ai/taskflow/internal/events"
	"github.com/taskflow-ai/taskflow/internal/state"
	"github.com/taskflow-ai/taskflow/internal/web"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatalf("TASKFLOW_JWT_SECRET is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	db, err := state.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := state.NewStore(db)
	tools := agenttools.NewToolkit(store)
	bus := events.NewBus()
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.TokenTTL)

	dispatcher := engine.BuildChain(cfg, tools)
	if cfg.OpenAIAPIKey == "" && cfg.AnthropicAPIKey == "" {
		log.Printf("no AI provider keys set, running with keyword fallback only")
	}

	chatService := chat.NewService(store, dispatcher, bus)

	apiServer := &api.Server{
		Chat:           chatService,
		Store:          store,
		Bus:            bus,
		Verifier:       verifier,
		BootstrapToken: cfg.BootstrapToken,
		StartedAt:      time.Now(),
	}
	webServer := &web.Server{Dir: cfg.WebDir}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Handler())
	mux.Handle("/", webServer.Handler())

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return serverCtx
		},
	}

	go func() {
		log.Printf("taskflowd listening on %s", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	serverCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	_ = httpServer.Close()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
