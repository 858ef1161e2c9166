/*
Package main is the entry point of the duochat command line client.

It loads configuration, initializes the global logger, and runs the cobra
command tree under a context that is cancelled on SIGINT or SIGTERM so that
open connections are closed cleanly.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"duochat/internal/app/session"
	"duochat/internal/configs"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
	"duochat/internal/view"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg    *configs.AppConfig
	store  *session.Store
	styles view.Styles
}

var (
	rt        app
	plainFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "duochat",
	Short: "Two-party chat from the terminal",
	Long: `duochat talks to a chat API and its event socket.

Register once, list your contacts, then open a conversation:
  duochat register --name Ada --email ada@example.com --password secret
  duochat contacts
  duochat chat bob`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.LoadConfig()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logx.InitGlobalLogger(cfg.IsDevelopment())
		logx.Logger().Debug().
			Str("environment", cfg.Environment).
			Str("api_url", cfg.APIURL).
			Str("socket_url", cfg.SocketURL).
			Str("upload_backend", cfg.UploadBackend).
			Msg("Configuration loaded successfully")

		rt.cfg = cfg
		rt.store = session.NewStore(cfg.SessionPath)
		rt.styles = view.DefaultStyles()
		if plainFlag {
			rt.styles = view.PlainStyles()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "disable colors")

	rootCmd.AddCommand(registerCmd, whoamiCmd, logoutCmd, contactsCmd, historyCmd, chatCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// printError shows err the way a notification would.
func printError(w io.Writer, err error) {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		fmt.Fprintln(w, "Error:", customErr.Message)
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
