// Package historian drains the partner event queue that the API pushes to
// and persists the events in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// popTimeout bounds each blocking pop so batches still flush on a quiet queue.
const popTimeout = time.Second

// Queue yields raw queued messages. Pop returns (nil, nil) when nothing
// arrived within timeout.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// Sink stores a batch of events atomically.
type Sink interface {
	InsertEvents(ctx context.Context, evs []partner.Event) error
}

// RedisQueue pops from a redis list with BLPOP.
type RedisQueue struct {
	client redis.Cmdable
	name   string
}

func NewRedisQueue(client redis.Cmdable, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the list name and res[1] the payload
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Service batches events from a Queue into a Sink. A failed flush keeps the
// batch so the next flush retries it.
type Service struct {
	queue      Queue
	sink       Sink
	logger     *logrus.Logger
	batchSize  int
	flushDelay time.Duration

	batch []partner.Event
}

func New(queue Queue, sink Sink, logger *logrus.Logger, batchSize int, flushDelay time.Duration) *Service {
	return &Service{
		queue:      queue,
		sink:       sink,
		logger:     logger,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		batch:      make([]partner.Event, 0, batchSize),
	}
}

// Run consumes until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	s.logger.Info("historian started")
	defer s.logger.Info("historian stopped")

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.flush(flushCtx)
		case <-ticker.C:
			s.flush(ctx)
			continue
		default:
		}

		data, err := s.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Errorf("queue pop: %v", err)
				// avoid a hot loop against a dead redis
				select {
				case <-ctx.Done():
				case <-time.After(popTimeout):
				}
			}
			continue
		}
		if data == nil {
			continue
		}

		var ev partner.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warnf("invalid event record: %v", err)
			continue
		}
		s.batch = append(s.batch, ev)
		if len(s.batch) >= s.batchSize {
			s.flush(ctx)
		}
	}
}

func (s *Service) flush(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}
	if err := s.sink.InsertEvents(ctx, s.batch); err != nil {
		s.logger.Errorf("failed to flush %d events: %v", len(s.batch), err)
		return err
	}
	s.logger.Debugf("flushed %d events", len(s.batch))
	s.batch = make([]partner.Event, 0, s.batchSize)
	return nil
}
