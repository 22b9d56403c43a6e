// Command attendctl uploads shift workbooks to the attendance API and
// fetches the attendance summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/client"
	"github.com/JonMunkholm/attendance/internal/config"
	"github.com/JonMunkholm/attendance/internal/logging"
)

// errReported ends a command whose failure was already printed.
var errReported = errors.New("reported")

// app is shared by every subcommand once the root pre-run has loaded it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *client.Client
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "attendctl",
		Short:         "Upload shift workbooks and read attendance summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.AddCommand(
		newUploadCmd(a),
		newSummaryCmd(a),
		newTemplateCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	// A missing .env is normal; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.stderr = stderr
	a.logger = logging.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	a.client, err = client.New(cfg.Client, a.logger)
	return err
}

// failf prints a message for the operator and ends the command.
func (a *app) failf(format string, args ...any) error {
	fmt.Fprintf(a.stderr, format+"\n", args...)
	return errReported
}
