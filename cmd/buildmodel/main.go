// Command buildmodel builds an untrained production model and saves it.
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
	code := cli.Execute(ctx, cli.NewBuildModelCommand())
	stop()
	os.Exit(code)
}
