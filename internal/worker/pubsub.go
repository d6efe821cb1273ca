package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/environment"
)

// Job types accepted on the subscription.
const (
	JobEnvironmentRefresh = "environment_refresh"
	JobHealthCheck        = "health_check"
)

var (
	// ErrMalformedJob is returned for messages that are not a JSON job.
	ErrMalformedJob = errors.New("malformed job message")

	// ErrUnknownJob is returned for job types this worker does not handle.
	ErrUnknownJob = errors.New("unknown job type")
)

// JobMessage is the payload of a worker job.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Date limits an environment refresh to one YYYY-MM-DD day. When empty
	// the configured window starting today is refreshed.
	Date string `json:"date,omitempty"`
}

// JobProcessor executes decoded jobs.
type JobProcessor struct {
	refreshJob *RefreshJob
	logger     zerolog.Logger
}

// NewJobProcessor creates a processor backed by refreshJob.
func NewJobProcessor(refreshJob *RefreshJob, logger zerolog.Logger) *JobProcessor {
	return &JobProcessor{refreshJob: refreshJob, logger: logger}
}

// Process decodes and runs one job message.
func (p *JobProcessor) Process(ctx context.Context, data []byte) error {
	var job JobMessage
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}

	switch job.JobType {
	case JobEnvironmentRefresh:
		return p.environmentRefresh(ctx, job)
	case JobHealthCheck:
		return p.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, job.JobType)
	}
}

func (p *JobProcessor) environmentRefresh(ctx context.Context, job JobMessage) error {
	var result *RefreshResult
	if job.Date != "" {
		date, err := environment.ParseDate(job.Date)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedJob, err)
		}
		result = p.refreshJob.RunDates(ctx, []time.Time{date})
	} else {
		result = p.refreshJob.Run(ctx)
	}

	// Succeed when at least half of the dates were refreshed.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalDates)
	}
	return nil
}

func (p *JobProcessor) healthCheck(ctx context.Context) error {
	today := environment.Today(p.refreshJob.now())
	result := p.refreshJob.RunDates(ctx, []time.Time{today})
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}
	return nil
}

// PubSubHandler receives worker jobs from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *JobProcessor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *JobProcessor
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if Acknowledge(h.handleMessage(ctx, msg)) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) error {
	startTime := time.Now()
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	err := h.processor.Process(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrUnknownJob):
		logger.Warn().Err(err).Msg("dropping job")
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
	default:
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed")
	}
	return err
}

// Acknowledge reports whether a message whose processing returned err
// should be acked. Unknown jobs are acked so they are not redelivered;
// everything else that failed is nacked for retry.
func Acknowledge(err error) bool {
	return err == nil || errors.Is(err, ErrUnknownJob)
}
