// Package asynqmail backs the identity Mailer interface with a Redis task
// queue. Producers enqueue send-email tasks; a worker process elsewhere picks
// them up, renders the template, and talks SMTP.
package asynqmail

import (
	"context"
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/hibiken/asynq"
)

// Client enqueues email tasks. It is safe for concurrent use.
type Client struct {
	client *asynq.Client
	queue  string
	opts   []asynq.Option
}

// New builds a queue-backed mailer from the email configuration.
func New(cfg identity.EmailConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}),
		queue:  cfg.Queue,
		opts: []asynq.Option{
			asynq.MaxRetry(cfg.MaxRetry),
			asynq.ProcessIn(cfg.DispatchDelay),
		},
	}
}

// Enqueue serializes the message and hands it to the queue. Retries and the
// dispatch delay come from the configuration captured at construction.
func (c *Client) Enqueue(ctx context.Context, msg identity.SendEmailMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize email task")
	}

	task := asynq.NewTask(identity.TaskTypeSendEmail, payload)

	opts := append([]asynq.Option{asynq.Queue(c.queue)}, c.opts...)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to enqueue email task")
	}

	return nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ identity.Mailer = (*Client)(nil)
