package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/delimatsuo/headhunter-sub005/internal/cmd/diag"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := diag.NewRoot().ExecuteContext(ctx)
	// failed checks have already printed their report
	if err != nil && !errors.Is(err, diag.ErrCheckFailed) {
		fmt.Fprintln(os.Stderr, "hhdiag:", err)
	}
	cancel()
	os.Exit(diag.ExitCode(err))
}
