package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flitsinc/go-assistant/internal/api"
	"github.com/flitsinc/go-assistant/internal/config"
	"github.com/flitsinc/go-assistant/internal/console"
	"github.com/flitsinc/go-assistant/internal/engine"
	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/provider"
	"github.com/flitsinc/go-assistant/internal/state"
	"github.com/flitsinc/go-assistant/internal/tools"
)

func main() {
	mode := flag.String("mode", "serve", "run mode: serve or console")
	flag.Parse()

	cfg := config.Load()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	if err := os.MkdirAll(cfg.WorkspaceDir, 0o755); err != nil {
		log.Fatalf("create workspace dir: %v", err)
	}

	db, err := state.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	store := state.NewStore(db)

	manager, err := history.NewManager(cfg.HistoryPath, cfg.ImagesPath)
	if err != nil {
		log.Fatalf("open history: %v", err)
	}

	registry, err := tools.NewRegistry(
		tools.ClockTool(),
		tools.GetMemoriesTool(store),
		tools.CreateMemoriesTool(store),
		tools.UpdateMemoriesTool(store),
		tools.DeleteMemoriesTool(store),
		tools.GetTodosTool(store),
		tools.CreateTodosTool(store),
		tools.UpdateTodosTool(store),
		tools.DeleteTodosTool(store),
		tools.ReadFolderTool(cfg.WorkspaceDir),
		tools.ReadFileTool(cfg.WorkspaceDir),
		tools.WriteFileTool(cfg.WorkspaceDir),
		tools.SearchInFileTool(cfg.WorkspaceDir),
		tools.HistoryMetadataTool(manager),
		tools.HistoryEntryTool(manager),
		tools.HistoryDeleteTool(manager),
		tools.HistoryStatsTool(manager),
	)
	if err != nil {
		log.Fatalf("build tool registry: %v", err)
	}

	if cfg.OpenAIAPIKey == "" {
		log.Fatalf("missing ASSISTANT_OPENAI_API_KEY")
	}
	agent := &engine.Agent{
		Name:         cfg.AgentName,
		Instructions: cfg.Instructions,
		Provider: provider.NewOpenAI(provider.OpenAIOptions{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			Model:           cfg.Model,
			ImageGeneration: cfg.ImageGeneration,
		}),
		Registry:         registry,
		Turns:            store,
		Temperature:      cfg.Temperature,
		ReasoningEffort:  cfg.ReasoningEffort,
		ReasoningSummary: cfg.ReasoningSummary,
		Verbosity:        cfg.Verbosity,
		PromptCacheKey:   cfg.UserID,
	}

	switch *mode {
	case "console":
		runConsole(agent, manager, cfg)
	case "serve":
		runServer(agent, manager, store, cfg)
	default:
		log.Fatalf("unknown mode %q (want serve or console)", *mode)
	}
}

func runConsole(agent *engine.Agent, manager *history.Manager, cfg config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &console.Console{
		Agent:       agent,
		History:     manager,
		MaxTurns:    cfg.MaxTurns,
		Timestamp:   cfg.TimestampInput,
		ImageOutDir: cfg.ImageOutDir,
	}
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("console: %v", err)
	}
}

func runServer(agent *engine.Agent, manager *history.Manager, store *state.Store, cfg config.Config) {
	apiServer := &api.Server{
		Agent:     agent,
		History:   manager,
		Store:     store,
		MaxTurns:  cfg.MaxTurns,
		Timestamp: cfg.TimestampInput,
		StartedAt: time.Now().UTC(),
		Info: api.DiagnosticsInfo{
			HTTPAddr:    cfg.HTTPAddr,
			DataDir:     cfg.DataDir,
			DBPath:      cfg.DBPath,
			HistoryPath: cfg.HistoryPath,
			Model:       cfg.Model,
			AgentName:   cfg.AgentName,
		},
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Handler:           loggingMiddleware(apiServer.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return serverCtx
		},
	}

	go func() {
		log.Printf("assistantd listening on %s", listener.Addr())
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
