// Package mailer turns account events into mail jobs and moves them through
// a RabbitMQ queue to the mail worker.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Kind identifies the template of a mail job.
type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
)

// Job is one email waiting to be delivered.
type Job struct {
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Link      string    `json:"link,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Mailer accepts mail jobs. Implementations must not block on delivery.
type Mailer interface {
	Send(ctx context.Context, job Job) error
}

// WelcomeJob greets a freshly signed-up user.
func WelcomeJob(to, appURL string) Job {
	return Job{Kind: KindWelcome, To: to, Link: appURL, Timestamp: time.Now()}
}

// PasswordResetJob carries a link that consumes token.
func PasswordResetJob(to, appURL, token string) Job {
	link := appURL + "/passwords/reset?token=" + url.QueryEscape(token)
	return Job{Kind: KindPasswordReset, To: to, Link: link, Timestamp: time.Now()}
}

// ToJSON converts the job to JSON bytes
func (j Job) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// JobFromJSON decodes a job and rejects ones no template can render.
func JobFromJSON(data []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, err
	}
	if job.To == "" {
		return Job{}, fmt.Errorf("mail job without recipient")
	}
	switch job.Kind {
	case KindWelcome, KindPasswordReset:
	default:
		return Job{}, fmt.Errorf("unknown mail job kind %q", job.Kind)
	}
	return job, nil
}

// Render returns the subject and plain-text body for a job.
func Render(job Job) (subject, body string) {
	switch job.Kind {
	case KindPasswordReset:
		return "Reset your password",
			"You can reset your password within the next 15 minutes on this password reset page:\n\n" + job.Link +
				"\n\nIf you didn't request a password reset you can ignore this message."
	default:
		return "Welcome to ExpenseTracker",
			"Your account " + job.To + " is ready. Sign in at " + job.Link + " to start tracking expenses."
	}
}
