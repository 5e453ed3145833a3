// Package queue carries processing jobs from upload intake to the worker pool
// through Kafka, so uploads survive a restart of the processing side.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"clientgallery/internal/worker"
)

type Producer struct {
	w *kafka.Writer
}

func NewProducer(broker, topic string) *Producer {
	return &Producer{w: &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

// Enqueue publishes a job keyed by gallery, so one gallery's uploads stay on a
// single partition.
func (p *Producer) Enqueue(ctx context.Context, job worker.Job) error {
	const op = "queue.Producer.Enqueue"

	value, err := encodeJob(job)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := kafka.Message{Key: []byte(job.GalleryID.String()), Value: value}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// commitTimeout bounds a single offset commit. Commits run on their own
// context so jobs finishing during shutdown still get committed.
const commitTimeout = 10 * time.Second

type Consumer struct {
	r       *kafka.Reader
	log     zerolog.Logger
	drain   time.Duration
	offsets *offsets

	// commitMu keeps commits on a partition in offset order.
	commitMu sync.Mutex
}

// NewConsumer reads jobs as part of a consumer group. drain is how long Run
// waits after cancellation for accepted jobs to be acknowledged.
func NewConsumer(broker, topic, group string, drain time.Duration, log zerolog.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{broker},
			Topic:   topic,
			GroupID: group,
		}),
		log:     log,
		drain:   drain,
		offsets: newOffsets(),
	}
}

// Run hands every message to enqueue, which may block and so hold back
// further reads. An offset is committed only once its job and every earlier
// job on the partition have run; anything dropped before running is
// delivered again after a restart. Returns nil when ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, enqueue func(context.Context, worker.Job) error) error {
	defer c.close()

	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("error reading message")
			continue
		}
		d := c.offsets.track(msg)

		job, err := decodeJob(msg.Value)
		if err != nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("dropping malformed job")
			c.ack(d, true)
			continue
		}

		err = enqueue(ctx, job.WithAck(func(handled bool) { c.ack(d, handled) }))
		if err != nil {
			c.ack(d, false)
			if ctx.Err() != nil || errors.Is(err, worker.ErrPoolClosed) {
				return nil
			}
			c.log.Error().Err(err).
				Str("photo_id", job.PhotoID.String()).
				Int("partition", msg.Partition).
				Msg("job not accepted, partition commits held until redelivery")
		}
	}
}

func (c *Consumer) ack(d *delivery, handled bool) {
	d.once.Do(func() {
		defer c.offsets.release()

		c.commitMu.Lock()
		defer c.commitMu.Unlock()

		msg, ok := c.offsets.resolve(d, handled)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			c.log.Error().Err(err).Int("partition", msg.Partition).Int64("offset", msg.Offset).Msg("commit failed")
		}
	})
}

func (c *Consumer) close() {
	if !c.offsets.wait(c.drain) {
		c.log.Warn().Msg("closing consumer with unacknowledged jobs, they will be redelivered")
	}
	if err := c.r.Close(); err != nil {
		c.log.Warn().Err(err).Msg("kafka reader close")
	}
}

func encodeJob(job worker.Job) ([]byte, error) {
	return json.Marshal(job)
}

func decodeJob(data []byte) (worker.Job, error) {
	var job worker.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return worker.Job{}, err
	}
	if job.PhotoID == uuid.Nil || job.TempPath == "" {
		return worker.Job{}, errors.New("job is missing photo id or temp path")
	}
	return job, nil
}
