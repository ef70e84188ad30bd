// Command inference prints the predictions of a saved production model.
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
	code := cli.Execute(ctx, cli.NewInferenceCommand())
	stop()
	os.Exit(code)
}
