// Command forecast runs an iterative production forecast with a saved model.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/openefs/prodforecast/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewForecastCommand())
	stop()
	os.Exit(code)
}
