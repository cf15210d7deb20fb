package worker

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/rentalcrm-backend/internal/tracking"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

const trackingConsumerName = "crm-tracking"

// Processor applies a raw tracking envelope.
type Processor interface {
	ProcessRaw(ctx context.Context, body []byte) tracking.Result
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, messageID string) (bool, error)
	Delete(ctx context.Context, consumer, messageID string) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// Service consumes tracking events from Pub/Sub while honoring Redis idempotency.
type Service struct {
	subscription receiver
	processor    Processor
	manager      idempotencyChecker
	logg         *logger.Logger
	deadline     time.Duration
}

// NewService creates a tracking worker. deadline bounds each message; zero
// means no per-message timeout.
func NewService(subscription *gcppubsub.Subscriber, processor Processor, manager idempotencyChecker, logg *logger.Logger, deadline time.Duration) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("tracking subscription is required")
	}
	return newService(subscription, processor, manager, logg, deadline)
}

func newService(subscription receiver, processor Processor, manager idempotencyChecker, logg *logger.Logger, deadline time.Duration) (*Service, error) {
	if processor == nil {
		return nil, errors.New("tracking processor is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		processor:    processor,
		manager:      manager,
		logg:         logg,
		deadline:     deadline,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming tracking messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})
	if s.deadline > 0 {
		var cancel context.CancelFunc
		logCtx, cancel = context.WithTimeout(logCtx, s.deadline)
		defer cancel()
	}

	if msg.ID == "" {
		s.logg.Warn(logCtx, "tracking message without id")
		return processResult{}
	}

	already, err := s.manager.CheckAndMarkProcessed(logCtx, trackingConsumerName, msg.ID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		s.logg.Info(logCtx, "tracking message already processed")
		return processResult{}
	}

	res := s.processor.ProcessRaw(logCtx, msg.Data)
	if res.Success {
		if res.ContactID != "" {
			logCtx = s.logg.WithContactID(logCtx, res.ContactID)
		}
		s.logg.Info(logCtx, "tracking event handled")
		return processResult{}
	}

	if res.Redeliverable() {
		if err := s.manager.Delete(context.WithoutCancel(logCtx), trackingConsumerName, msg.ID); err != nil {
			s.logg.Error(logCtx, "clear idempotency mark", err)
		}
		return processResult{nack: true}
	}
	if res.Applied {
		// Redelivery would repeat the writes that already landed.
		s.logg.Error(s.logg.WithFields(logCtx, pkgerrors.Dump(res.Err).Fields()), "tracking event partially applied", res.Err)
		return processResult{}
	}

	s.logg.Warn(s.logg.WithField(logCtx, "error", res.Error), "tracking event dropped")
	return processResult{}
}
