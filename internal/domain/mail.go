package domain

// Message is an outbound notification handed to a mail dispatcher.
type Message struct {
	Subject string
	Body    string
}
