package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"golang.org/x/xerrors"
)

// PublisherOptions configures the bounded queue and retry behavior a
// Publisher uses to keep Kafka hiccups off the main commit path.
type PublisherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (o PublisherOptions) withDefaults() PublisherOptions {
	if o.QueueSize == 0 {
		o.QueueSize = 256
	}
	if o.Workers == 0 {
		o.Workers = 4
	}
	if o.MaxRetry == 0 {
		o.MaxRetry = 3
	}
	if o.BaseBackoff == 0 {
		o.BaseBackoff = 100 * time.Millisecond
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 2 * time.Second
	}
	return o
}

// Publisher queues OpEvents and sends them to Kafka from a small worker
// pool, absorbing transient broker slowness without blocking whoever calls
// Enqueue (the server's hub, on its own commit path).
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	queue    chan OpEvent
	log      zerolog.Logger
	opts     PublisherOptions
}

// NewPublisher starts a Publisher backed by producer, publishing to topic.
func NewPublisher(producer sarama.SyncProducer, topic string, log zerolog.Logger, opts PublisherOptions) *Publisher {
	opts = opts.withDefaults()
	p := &Publisher{
		producer: producer,
		topic:    topic,
		queue:    make(chan OpEvent, opts.QueueSize),
		log:      log,
		opts:     opts,
	}
	for i := 0; i < opts.Workers; i++ {
		go p.workerLoop(i)
	}
	return p
}

// Enqueue queues evt for publication, or returns ctx.Err() if the queue is
// full and ctx expires first. Kafka delivery here is best-effort: a
// document's authoritative state always lives in internal/history, so a
// dropped broadcast only delays another instance's subscribers, never
// corrupts the document.
func (p *Publisher) Enqueue(ctx context.Context, evt OpEvent) error {
	select {
	case p.queue <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) workerLoop(workerID int) {
	for evt := range p.queue {
		p.sendWithRetry(workerID, evt)
	}
}

func (p *Publisher) sendWithRetry(workerID int, evt OpEvent) {
	for attempt := 0; attempt <= p.opts.MaxRetry; attempt++ {
		err := p.sendOnce(evt)
		if err == nil {
			return
		}
		if attempt == p.opts.MaxRetry {
			p.log.Warn().
				Err(err).
				Str("doc_id", evt.DocID).
				Int("revision", evt.Revision).
				Int("worker", workerID).
				Msg("broadcast: dropping event after exhausting retries")
			return
		}
		backoff := p.opts.BaseBackoff * time.Duration(1<<attempt)
		if backoff > p.opts.MaxBackoff {
			backoff = p.opts.MaxBackoff
		}
		time.Sleep(backoff)
	}
}

func (p *Publisher) sendOnce(evt OpEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return xerrors.Errorf("broadcast: marshal event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.DocID),
		Value: sarama.ByteEncoder(b),
	}
	_, _, err = p.producer.SendMessage(msg)
	if err != nil {
		return xerrors.Errorf("broadcast: send message: %w", err)
	}
	return nil
}
