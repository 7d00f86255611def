package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/berth-dev/threadline/internal/log"
)

// ErrNoThread is returned when a send is attempted without a selected thread.
var ErrNoThread = errors.New("no thread selected")

// Fallback texts shown when a failure carries no message of its own.
const (
	fallbackSendFailure    = "Failed to send message"
	fallbackTriggerFailure = "Failed to get bot response"
)

// MessageWriter persists user-authored messages.
type MessageWriter interface {
	InsertMessage(ctx context.Context, threadID, content string) (Message, error)
}

// ReplyTrigger asks the bot service to produce a reply for a thread.
type ReplyTrigger interface {
	TriggerReply(ctx context.Context, threadID, content string) (TriggerAck, error)
}

// SendBackend is everything the send flow needs from the data backend.
type SendBackend interface {
	MessageWriter
	ReplyTrigger
}

// SendStage names the step of the send flow that failed.
type SendStage string

const (
	StageInsert  SendStage = "insert"
	StageTrigger SendStage = "trigger"
)

// SendError wraps a failure of the send flow with the stage it happened in.
type SendError struct {
	Stage SendStage
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s: %v", e.Stage, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// TriggerRejectedError is returned when the trigger acknowledged with
// success=false.
type TriggerRejectedError struct {
	Message string
}

func (e *TriggerRejectedError) Error() string {
	if e.Message == "" {
		return fallbackTriggerFailure
	}
	return e.Message
}

// Sender runs the send flow: persist the user's message, then trigger the
// bot. It never writes the bot's reply; that arrives through the
// subscription.
type Sender struct {
	backend SendBackend
	logger  *log.Logger
}

// NewSender creates a Sender. A nil logger disables logging.
func NewSender(backend SendBackend, logger *log.Logger) *Sender {
	if logger == nil {
		logger = log.Nop()
	}
	return &Sender{backend: backend, logger: logger}
}

// Send persists draft as a user message in threadID and triggers a bot
// reply. Blank drafts are rejected before any network call. There are no
// retries; the caller surfaces the error and the user may try again.
func (s *Sender) Send(ctx context.Context, threadID, draft string) (TriggerAck, error) {
	content, err := PrepareDraft(draft, 0)
	if err != nil {
		return TriggerAck{}, err
	}
	if threadID == "" {
		return TriggerAck{}, ErrNoThread
	}

	msg, err := s.backend.InsertMessage(ctx, threadID, content)
	if err != nil {
		s.logger.Error(log.EventSendFailed, err, zap.String("thread_id", threadID), zap.String("stage", string(StageInsert)))
		return TriggerAck{}, &SendError{Stage: StageInsert, Err: err}
	}
	s.logger.Event(log.EventMessageInserted, zap.String("thread_id", threadID), zap.String("message_id", msg.ID))

	ack, err := s.backend.TriggerReply(ctx, threadID, content)
	if err != nil {
		s.logger.Error(log.EventSendFailed, err, zap.String("thread_id", threadID), zap.String("stage", string(StageTrigger)))
		return TriggerAck{}, &SendError{Stage: StageTrigger, Err: err}
	}
	if !ack.Success {
		rejected := &TriggerRejectedError{Message: ack.Message}
		s.logger.Error(log.EventSendFailed, rejected, zap.String("thread_id", threadID), zap.String("stage", string(StageTrigger)))
		return ack, &SendError{Stage: StageTrigger, Err: rejected}
	}

	s.logger.Event(log.EventTriggerAcked, zap.String("thread_id", threadID))
	return ack, nil
}

// FailureText returns the most specific user-facing text for a send error.
func FailureText(err error) string {
	if err == nil {
		return ""
	}
	var rejected *TriggerRejectedError
	if errors.As(err, &rejected) {
		return rejected.Error()
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) && sendErr.Err != nil {
		if text := sendErr.Err.Error(); text != "" {
			return text
		}
	}
	if text := err.Error(); text != "" {
		return text
	}
	return fallbackSendFailure
}
