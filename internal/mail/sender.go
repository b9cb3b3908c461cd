package mail

import "context"

// Identity is the verified sender identity applications go out under.
type Identity struct {
	Name    string
	Address string
}

type Message struct {
	To      string
	ReplyTo string // candidate's campaign email; replies must reach them
	Subject string
	HTML    string
}

// SendResult is a structured outcome: transport failures come back here,
// never as a panic or a fatal error. The caller decides how to record it.
type SendResult struct {
	OK    bool
	ID    string // provider message id when sent
	Error string
}

type Sender interface {
	Send(ctx context.Context, msg Message, from Identity) SendResult
}
