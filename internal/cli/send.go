// send.go implements "threadline send" and "threadline watch".
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/threadline/internal/chat"
)

var (
	sendThread  string
	sendWait    time.Duration
	watchThread string
)

var sendCmd = &cobra.Command{
	Use:   "send --thread <id> <text>",
	Short: "Send a message and print the reply",
	Long: `Save a message to a thread, trigger the assistant, and wait on the
live feed for its reply.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var watchCmd = &cobra.Command{
	Use:   "watch --thread <id>",
	Short: "Stream a thread's messages as they arrive",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	sendCmd.Flags().StringVar(&sendThread, "thread", "", "Thread ID (required)")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 60*time.Second, "How long to wait for the reply")
	watchCmd.Flags().StringVar(&watchThread, "thread", "", "Thread ID (required)")
}

func runSend(cmd *cobra.Command, args []string) error {
	if err := validateThreadID(sendThread, false); err != nil {
		return err
	}
	content := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	timeout := e.cfg.Backend.RequestTimeout.Duration
	if err := withTimeout(ctx, timeout, e.requireSession); err != nil {
		return err
	}

	// Subscribe before sending so the reply cannot slip past.
	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()
	events := e.backend.SubscribeMessages(subCtx, sendThread)
	feed := chat.NewFeed(sendThread)
	if err := awaitSnapshot(ctx, events, feed, timeout); err != nil {
		return err
	}

	var state chat.SendState
	state.Begin(feed.BotCount())

	var ack chat.TriggerAck
	err = withTimeout(ctx, timeout, func(ctx context.Context) error {
		var sendErr error
		ack, sendErr = e.sender.Send(ctx, sendThread, content)
		return sendErr
	})
	state.Finish(err)
	if err != nil {
		return errors.New(chat.FailureText(err))
	}

	out := cmd.OutOrStdout()
	waitCtx, cancelWait := context.WithTimeout(ctx, sendWait)
	defer cancelWait()

	for state.Composing() {
		select {
		case <-waitCtx.Done():
			if ack.BotResponse != "" {
				fmt.Fprintln(out, ack.BotResponse)
				return nil
			}
			return fmt.Errorf("no reply within %s", sendWait)
		case ev, ok := <-events:
			if !ok {
				return errors.New("live updates stopped before the reply arrived")
			}
			if ev.Err != nil {
				if ev.Reconnecting {
					continue
				}
				return fmt.Errorf("live updates stopped: %w", ev.Err)
			}
			feed.Apply(ev.Messages)
			state.Observe(feed.BotCount())
		}
	}

	reply, _ := feed.LatestBot()
	fmt.Fprintln(out, reply.Content)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := validateThreadID(watchThread, false); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := withTimeout(ctx, e.cfg.Backend.RequestTimeout.Duration, e.requireSession); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	feed := chat.NewFeed(watchThread)
	printed := make(map[string]bool)

	for ev := range e.backend.SubscribeMessages(ctx, watchThread) {
		if ev.Err != nil {
			if ev.Reconnecting {
				fmt.Fprintln(cmd.ErrOrStderr(), "Reconnecting...")
				continue
			}
			return fmt.Errorf("live updates stopped: %w", ev.Err)
		}
		if !feed.Apply(ev.Messages) {
			continue
		}
		for _, m := range feed.Messages() {
			if printed[m.ID] {
				continue
			}
			printed[m.ID] = true
			printMessage(out, m)
		}
	}
	return nil
}

// awaitSnapshot waits for the first snapshot so history is not mistaken for
// a new reply.
func awaitSnapshot(ctx context.Context, events <-chan chat.FeedEvent, feed *chat.Feed, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for thread history: %w", ctx.Err())
		case ev, ok := <-events:
			if !ok {
				return errors.New("subscription closed before the first snapshot")
			}
			if ev.Err != nil {
				if ev.Reconnecting {
					continue
				}
				return fmt.Errorf("subscribing to thread: %w", ev.Err)
			}
			feed.Apply(ev.Messages)
			return nil
		}
	}
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func printMessage(w io.Writer, m chat.Message) {
	fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), m.Author, m.Content)
}
