package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lexibot/features/chat"
	"lexibot/features/document"
	"lexibot/features/stats"
	"lexibot/internal/adapter/chromem"
	"lexibot/internal/adapter/gemini"
	"lexibot/internal/chatlog"
	"lexibot/internal/config"
	"lexibot/internal/logger"
	"lexibot/internal/markup"
	"lexibot/internal/middleware"
	"lexibot/internal/retrieval"
	"lexibot/internal/session"
)

func main() {
	// Initialize structured logger
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 2. Gemini Client
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("creating gemini client: %w", err)
	}
	defer client.Close()

	embedder := gemini.NewEmbedder(client, cfg.EmbedModel)
	generator := gemini.NewGenerator(client, cfg.ChatModel)

	// 3. Vector Index
	var index *chromem.Store
	if cfg.PersistIndex {
		index, err = chromem.NewStore(cfg.IndexDir)
	} else {
		index, err = chromem.NewMemoryStore()
	}
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}

	// 4. Audit Log (SQLite)
	auditRepo, auditDB, err := chatlog.Open(cfg.ChatLogDB)
	if err != nil {
		return fmt.Errorf("opening chat log: %w", err)
	}
	defer auditDB.Close()

	// 5. Initialize Services
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retriever := retrieval.NewService(embedder, index, queryLogger)

	sessions := session.NewStore(cfg.SessionTTL())
	summarizer := session.NewSummarizer(generator)
	sanitizer := markup.NewSanitizer()

	documentService := document.NewService(embedder, index, cfg.IngestionConcurrency)
	documentHandler := document.NewHandler(documentService, cfg.MaxUploadSizeMB)

	chatService := chat.NewService(sessions, retriever, summarizer, generator, sanitizer, auditRepo, cfg.SearchTopK, cfg.GenerationTimeout())
	chatHandler := chat.NewHandler(chatService)

	statsHandler := stats.NewHandler(documentService, index, sessions, auditRepo)

	// Session sweeper
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Sweep(); removed > 0 {
					slog.Info("swept idle sessions", "removed", removed)
				}
			}
		}
	}()

	// 6. Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: newRouter(documentHandler, chatHandler, statsHandler),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info("server starting", "port", cfg.ServerPort)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newRouter(documents *document.Handler, chats *chat.Handler, statsHandler *stats.Handler) *http.ServeMux {
	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("POST /documents/upload", middleware.CorrelationID(enableCORS(documents.Upload)))
	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chats.Chat)))
	mux.Handle("POST /chat/reset", middleware.CorrelationID(enableCORS(chats.Reset)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}
