package broadcast

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Subscriber consumes a topic and decodes each message into an OpEvent,
// handing it to the handler passed to Run. One Subscriber runs per server instance and feeds
// every locally hosted document's hub.
type Subscriber struct {
	consumer sarama.Consumer
	topic    string
	log      zerolog.Logger
}

// NewSubscriber wraps an already-configured sarama.Consumer.
func NewSubscriber(consumer sarama.Consumer, topic string, log zerolog.Logger) *Subscriber {
	return &Subscriber{consumer: consumer, topic: topic, log: log}
}

// Run consumes every partition of the topic until ctx is canceled, calling
// handle for each decoded OpEvent. Decode failures are logged and skipped
// rather than treated as fatal, since one bad message must not take down
// delivery for every other document sharing the topic.
func (s *Subscriber) Run(ctx context.Context, handle func(OpEvent)) error {
	partitions, err := s.consumer.Partitions(s.topic)
	if err != nil {
		return xerrors.Errorf("broadcast: list partitions: %w", err)
	}

	for _, p := range partitions {
		pc, err := s.consumer.ConsumePartition(s.topic, p, sarama.OffsetNewest)
		if err != nil {
			return xerrors.Errorf("broadcast: consume partition %d: %w", p, err)
		}
		go s.consumePartition(ctx, pc, handle)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (s *Subscriber) consumePartition(ctx context.Context, pc sarama.PartitionConsumer, handle func(OpEvent)) {
	defer pc.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pc.Messages():
			if !ok {
				return
			}
			var evt OpEvent
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				s.log.Warn().Err(err).Msg("broadcast: dropping undecodable event")
				continue
			}
			handle(evt)
		case err := <-pc.Errors():
			s.log.Warn().Err(err).Msg("broadcast: partition consumer error")
		}
	}
}
