package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ContextWithInterrupt returns a context that is cancelled when the process
// receives an interrupt (Ctrl+C) or termination signal (SIGTERM). Call stop
// to release the signal handler once the context is no longer needed.
func ContextWithInterrupt(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
