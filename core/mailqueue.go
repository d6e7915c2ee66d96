package core

import "fmt"

// SyncSender is the inline delivery half of an EmailService.
type SyncSender interface {
	SendMessagesSync(messages ...*EmailMessage) error
}

// MailQueue gives any SyncSender fire-and-forget background delivery over a
// bounded buffer. Delivery is best-effort: there is no retry, no ordering
// guarantee relative to the HTTP response, and no backpressure — when the
// buffer is full the message is dropped and logged.
type MailQueue struct {
	ch     chan *EmailMessage
	sender SyncSender
	logger Logger
	done   chan struct{}
}

func NewMailQueue(sender SyncSender, logger Logger, size int) *MailQueue {
	if size <= 0 {
		size = 64
	}
	q := &MailQueue{
		ch:     make(chan *EmailMessage, size),
		sender: sender,
		logger: logger,
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue never blocks the caller.
func (q *MailQueue) Enqueue(messages ...*EmailMessage) {
	for _, msg := range messages {
		select {
		case q.ch <- msg:
		default:
			q.logger.Warn(fmt.Sprintf("mail queue full: dropping message %q", msg.Subject))
		}
	}
}

func (q *MailQueue) run() {
	defer close(q.done)
	for msg := range q.ch {
		if err := q.sender.SendMessagesSync(msg); err != nil {
			q.logger.Error(fmt.Sprintf("background mail delivery: %v", err), err)
		}
	}
}

// Close stops the worker after draining queued messages.
func (q *MailQueue) Close() {
	close(q.ch)
	<-q.done
}
