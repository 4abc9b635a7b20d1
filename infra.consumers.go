package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Delays applied between failed queue pops. The delay doubles on each
// consecutive failure and is reset by a successful pop.
const (
	ConsumerMinBackoff = 100 * time.Millisecond
	ConsumerMaxBackoff = 5 * time.Second
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type archiveConsumer struct {
	logger     *zap.Logger
	queue      Queuer
	repo       ArchiveStorage
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewArchiveConsumer(logger *zap.Logger, q Queuer, repo ArchiveStorage) Consumer {
	return &archiveConsumer{
		logger:     logger,
		queue:      q,
		repo:       repo,
		minBackoff: ConsumerMinBackoff,
		maxBackoff: ConsumerMaxBackoff,
	}
}

// Consume moves every submitted request popped from the queues into
// the archive storage until the context is done.
func (ac *archiveConsumer) Consume(ctx context.Context, qids ...string) error {
	backoff := ac.minBackoff
	for {
		qid, view, err := ac.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			ac.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			ac.logger.Error("consumer: error on queue pop call", zap.Duration("retry.in", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				ac.logger.Info("consumer: waiting to retry: context is done: exit", zap.String("reason", ctx.Err().Error()))
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > ac.maxBackoff {
				backoff = ac.maxBackoff
			}
			continue
		}
		backoff = ac.minBackoff

		if err = ac.repo.Add(ctx, view); err != nil {
			ac.logger.Error("consumer: failed to archive request",
				zap.String("qid", qid),
				zap.Int64("request.id", view.RequestID),
				zap.Error(err),
			)
		}
	}
}
