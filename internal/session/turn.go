package session

import "context"

// Turn is a handle on one in-flight exchange with the coach. It completes exactly once
type Turn struct {
	// UserMessage is the message appended when the turn was submitted
	UserMessage Message

	done  chan struct{}
	reply Message
	err   error
}

func newTurn(userMessage Message) *Turn {
	return &Turn{
		UserMessage: userMessage,
		done:        make(chan struct{}),
	}
}

// Done returns a channel that is closed when the turn completes
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn completes or ctx is done. On completion it returns the AI message appended to the
// conversation, which is an apology when the gateway failed, and the gateway's error, if any. Abandoning the wait does
// not cancel the turn
func (t *Turn) Wait(ctx context.Context) (Message, error) {
	select {
	case <-t.done:
		return t.reply, t.err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (t *Turn) finish(reply Message, err error) {
	t.reply = reply
	t.err = err
	close(t.done)
}
