// threads.go implements "threadline threads" and "threadline new".
package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/threadline/internal/chat"
)

var filterFlag string

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List your chat threads",
	Long:  `Print your threads, most recently updated first.`,
	Args:  cobra.NoArgs,
	RunE:  runThreads,
}

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new chat thread",
	Args:  cobra.ArbitraryArgs,
	RunE:  runNew,
}

func init() {
	threadsCmd.Flags().StringVar(&filterFlag, "filter", "", "Only show threads whose title contains this text")
}

func runThreads(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Backend.RequestTimeout.Duration)
	defer cancel()
	if err := e.requireSession(ctx); err != nil {
		return err
	}

	threads, err := e.backend.ListThreads(ctx)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}
	threads = chat.FilterThreads(threads, filterFlag)

	out := cmd.OutOrStdout()
	if len(threads) == 0 {
		if filterFlag != "" {
			fmt.Fprintln(out, "No chats found")
		} else {
			fmt.Fprintln(out, "No chats yet. Start one with: threadline new")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	now := time.Now()
	for _, t := range threads {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Title, chat.RelativeTime(now, t.UpdatedAt))
	}
	return w.Flush()
}

func runNew(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Backend.RequestTimeout.Duration)
	defer cancel()
	if err := e.requireSession(ctx); err != nil {
		return err
	}

	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		title = chat.DefaultThreadTitle
	}
	t, err := e.backend.CreateThread(ctx, title)
	if err != nil {
		return fmt.Errorf("creating thread: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", t.Title, t.ID)
	return nil
}
