// Command mock-backend runs a deterministic Chat Completions server that
// behaves like the local LLM runner, for manual testing of runnerchat.
//
// Configuration:
//
//	MOCK_PORT      - Listen port (default: 9090)
//	MOCK_SEND_DONE - Send "data: [DONE]" after the finish chunk (default: false)
//	MOCK_MODELS    - Comma-separated list of accepted models (default: any)
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rhuss/runnerchat/pkg/mockbackend"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	opts := mockbackend.Options{}
	if v := os.Getenv("MOCK_SEND_DONE"); v != "" {
		sendDone, err := strconv.ParseBool(v)
		if err != nil {
			slog.Error("invalid MOCK_SEND_DONE", "value", v, "error", err)
			os.Exit(1)
		}
		opts.SendDone = sendDone
		opts.SendRoleChunk = sendDone
	}
	if v := os.Getenv("MOCK_MODELS"); v != "" {
		opts.KnownModels = strings.Split(v, ",")
	}

	srv := &http.Server{Addr: ":" + port, Handler: mockbackend.New(opts).Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "send_done", opts.SendDone, "models", opts.KnownModels)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
