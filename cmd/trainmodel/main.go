// Command trainmodel fine-tunes a saved production model on labeled examples.
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
	code := cli.Execute(ctx, cli.NewTrainModelCommand())
	stop()
	os.Exit(code)
}
