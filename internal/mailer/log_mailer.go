package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer "delivers" mail by writing it to the log. The API uses it when no
// broker is configured, and the worker uses it as its final delivery step.
type LogMailer struct {
	log *zap.SugaredLogger
}

// NewLogMailer creates a LogMailer writing to log.
func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, job Job) error {
	subject, body := Render(job)
	m.log.Infow("mail delivered",
		"kind", job.Kind,
		"to", job.To,
		"subject", subject,
		"body", body,
	)
	return nil
}
