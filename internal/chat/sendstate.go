package chat

// SendState tracks one thread view's outstanding send. It keeps the trigger
// acknowledgement and the arrival of the bot's row as separate transitions:
// Finish clears Sending, Observe clears the composing indicator, and neither
// implies the other.
type SendState struct {
	sending  bool
	awaiting bool
	baseline int
}

// Begin moves Idle -> Sending. botCount is the number of bot messages the feed
// held when the send started; any increase is treated as the reply.
// Returns false if a send is already outstanding.
func (s *SendState) Begin(botCount int) bool {
	if s.sending {
		return false
	}
	s.sending = true
	s.awaiting = true
	s.baseline = botCount
	return true
}

// Finish records the trigger acknowledgement (or failure) and moves back to
// Idle. A failure also drops the composing indicator.
func (s *SendState) Finish(err error) {
	s.sending = false
	if err != nil {
		s.awaiting = false
	}
}

// Observe records the feed's current bot message count as delivered by the
// subscription.
func (s *SendState) Observe(botCount int) {
	if s.awaiting && botCount > s.baseline {
		s.awaiting = false
	}
}

// Expire drops the composing indicator without touching Sending.
func (s *SendState) Expire() {
	s.awaiting = false
}

// Sending reports whether a send is outstanding.
func (s *SendState) Sending() bool {
	return s.sending
}

// Composing reports whether the "bot is composing" indicator should render.
func (s *SendState) Composing() bool {
	return s.awaiting
}
