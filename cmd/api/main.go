package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/pitchlive-ai/pitchlive/backend/internal/config"
	"github.com/pitchlive-ai/pitchlive/backend/internal/handler"
	"github.com/pitchlive-ai/pitchlive/backend/internal/service/engine"
	"github.com/pitchlive-ai/pitchlive/backend/internal/service/responder"
	"github.com/pitchlive-ai/pitchlive/backend/internal/service/scoring"
	"github.com/pitchlive-ai/pitchlive/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize chat model shared by scoring and responder services
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing with heuristic scoring - 请检查 Ark 模型相关环境变量")
			chatModel = nil
		} else {
			log.Println("Chat model initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，评分与投资人回应使用启发式规则")
	}

	scoringSvc, err := scoring.NewService(ctx, chatModel, scoring.Config{Enabled: chatModel != nil})
	if err != nil {
		log.Fatalf("failed to initialize scoring service: %v", err)
	}
	if scoringSvc.Enabled() {
		log.Println("LLM pitch scoring enabled")
	} else {
		log.Println("Pitch scoring running on heuristics")
	}

	responderSvc, err := responder.NewService(ctx, chatModel, responder.Config{Enabled: chatModel != nil})
	if err != nil {
		log.Fatalf("failed to initialize responder service: %v", err)
	}
	if responderSvc.Enabled() {
		log.Println("LLM investor responder enabled")
	} else {
		log.Println("Investor responder running on canned questions")
	}

	// Initialize speech-to-text client
	speechClient := speech.NewClient(cfg.Speech)
	log.Printf("Speech-to-text client targeting %s", cfg.Speech.BaseURL)

	eng := engine.New(engine.Config{
		SampleRate:             cfg.Engine.SampleRate,
		TranscriptionThreshold: cfg.Engine.TranscriptionThreshold,
		SilenceThreshold:       cfg.Engine.SilenceThreshold,
		MaxBufferSeconds:       cfg.Engine.MaxBufferSeconds,
		SnapshotDir:            cfg.Engine.SnapshotDir,
	}, speechClient, scoringSvc, responderSvc)

	router := handler.NewRouter(eng)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("PitchLive backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
