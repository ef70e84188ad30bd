// Package cli implements the prodforecast command-line tools.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openefs/prodforecast/internal/config"
	"github.com/openefs/prodforecast/internal/tensor"
)

// tool carries the state shared by a command's run.
type tool struct {
	cfg *config.Config
	log *logrus.Logger
	out io.Writer
}

// newCommand creates a standalone tool whose common flags are bound to a
// fresh configuration. run is called after the configuration is loaded.
func newCommand(use, short string, run func(ctx context.Context, t *tool, args []string) error) (*cobra.Command, *config.Config) {
	cfg := config.New()
	t := &tool{cfg: cfg}

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Version:       config.Version + " (" + config.GitCommit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			file, err := cfg.Load()
			if err != nil {
				return err
			}
			// the file may change the log settings
			if log, err = cfg.NewLogger(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if file == "" {
				log.WithField("checked_directories", config.ConfigPaths[:]).Debug("no config file found")
			} else {
				log.WithField("file", file).Debug("loaded config file")
			}
			t.log = log
			t.out = cmd.OutOrStdout()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), t, args)
		},
	}
	cfg.BindFlags(cmd.PersistentFlags())
	// flags end at the model path so negative values stay positional
	cmd.Flags().SetInterspersed(false)
	return cmd, cfg
}

// Execute runs cmd and reports a failure on its output. It returns the
// process exit status.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), err)
		return 1
	}
	return 0
}

// values splits args into the model path and the decoded numeric input.
// A missing model path is reported like a wrong value count.
func (t *tool) values(args []string, width int, labeled bool) (string, []float64, error) {
	if len(args) == 0 {
		return "", nil, &tensor.CountError{Width: width, Got: -1, Labeled: labeled}
	}
	values, err := t.cfg.Values(args[1:])
	if err != nil {
		return "", nil, err
	}
	if len(values) == 0 || len(values)%width != 0 {
		return "", nil, &tensor.CountError{Width: width, Got: len(values), Labeled: labeled}
	}
	return args[0], values, nil
}

func printBatch(w io.Writer, title string, batch tensor.Batch) {
	fmt.Fprintln(w, title)
	for _, example := range batch {
		fmt.Fprintln(w, formatRows(example))
	}
}

func printRows(w io.Writer, title string, rows [][]float64) {
	fmt.Fprintln(w, title)
	for _, row := range rows {
		fmt.Fprintln(w, formatRow(row))
	}
}

func formatRows(rows [][]float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatRow(row))
	}
	b.WriteByte(']')
	return b.String()
}

func formatRow(row []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range row {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
