package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root, c := newRootCmd()
	err := root.ExecuteContext(ctx)
	if cerr := c.close(); cerr != nil {
		slog.Warn("close failed", "err", cerr)
	}
	if err != nil {
		slog.Error(describe(err), "err", err)
		cancel()
		os.Exit(1)
	}
}

// describe traduce los errores de dominio a un mensaje para el usuario.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient history"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid request"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	default:
		return "fairpath failed"
	}
}
