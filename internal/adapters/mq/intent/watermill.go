package intent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/okian/scoreboard/pkg/logger"
)

// WatermillSink publishes intents as watermill messages: the channel is the
// topic, the path travels in the metadata and the payload is the body.
type WatermillSink struct {
	publisher message.Publisher
}

// NewWatermillSink creates a sink publishing to publisher.
func NewWatermillSink(publisher message.Publisher) *WatermillSink {
	return &WatermillSink{publisher: publisher}
}

// Act publishes in and returns the publisher's result, or ctx's error when ctx
// ends first. An abandoned publish keeps running until the subscriber acks or
// the publisher is closed.
func (s *WatermillSink) Act(ctx context.Context, in Intent) error {
	msg := message.NewMessage(watermill.NewUUID(), in.Payload)
	msg.Metadata.Set(MetadataPath, in.Path)
	msg.SetContext(ctx)

	logger.Get().Debug(ctx, "publishing intent",
		logger.String("channel", in.Channel),
		logger.String("path", in.Path),
		logger.String("uuid", msg.UUID))

	done := make(chan error, 1)
	go func() { done <- s.publisher.Publish(in.Channel, msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("publish %s %s: %w", in.Channel, in.Path, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s %s: %w", in.Channel, in.Path, ctx.Err())
	}
}

// NewGoChannel creates the in-process pub/sub used when no external backend is
// configured. Publish blocks until every subscriber acked the message, so a
// sink built on it reports real acknowledgements.
func NewGoChannel(log *slog.Logger) *gochannel.GoChannel {
	if log == nil {
		log = logger.Slog()
	}
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewSlogLogger(log),
	)
}

// FromMessage rebuilds the intent carried by msg on topic.
func FromMessage(topic string, msg *message.Message) Intent {
	return Intent{Channel: topic, Path: msg.Metadata.Get(MetadataPath), Payload: msg.Payload}
}
