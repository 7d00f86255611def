// Package cli defines Cobra command definitions for the threadline CLI.
// This file contains the root command, version flag, and help output.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/berth-dev/threadline/internal/tui"
	"github.com/berth-dev/threadline/internal/tui/app"
)

var (
	configDir  string
	threadFlag string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "threadline",
	Short: "Terminal client for AI chat threads",
	Long: `Threadline is a terminal chat client. Sign in, keep a list of
conversation threads, and talk to an AI assistant whose replies stream
into the open thread live.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Without a terminal, point at the non-interactive commands.
		if !tui.IsTTY() {
			return tui.NewFallbackRunner(cmd.OutOrStdout()).Run()
		}
		if err := validateThreadID(threadFlag, true); err != nil {
			return err
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		initial := threadFlag
		if initial == "" {
			// Best effort: a missing preference just opens no thread.
			initial, _ = e.store.LastThread()
		}

		tuiApp := app.New(app.Deps{
			Config:        e.cfg,
			ConfigDir:     e.dir,
			Session:       e.auth,
			Backend:       e.backend,
			Prefs:         e.store,
			Logger:        e.logger,
			InitialThread: initial,
		})
		return tui.Run(tuiApp)
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.threadline)")
	rootCmd.Flags().StringVar(&threadFlag, "thread", "", "Open this thread on start")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(watchCmd)
}
