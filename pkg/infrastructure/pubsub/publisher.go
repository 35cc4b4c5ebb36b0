package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/fitsocial/fitsocial-server/pkg"
)

// PubSubAdapter provides message publishing using Google Cloud Pub/Sub
type PubSubAdapter struct {
	Client *pubsub.Client
}

var (
	_ shared.Publisher = (*PubSubAdapter)(nil)
	_ shared.Publisher = (*LogPublisher)(nil)
)

func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	bytes, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to marshal CloudEvent", "topic", topicID, "error", err)
		return "", err
	}
	slog.Info("Publishing CloudEvent",
		"topic", topicID,
		"event_type", e.Type(),
		"event_id", e.ID(),
		"source", e.Source(),
		"size_bytes", len(bytes))
	return a.publish(ctx, topicID, bytes, map[string]string{
		"ce-type":   e.Type(),
		"ce-source": e.Source(),
		"ce-id":     e.ID(),
	})
}

func (a *PubSubAdapter) publish(ctx context.Context, topicID string, data []byte, attributes map[string]string) (string, error) {
	topic := a.Client.Topic(topicID)
	msg := &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	}
	res := topic.Publish(ctx, msg)
	msgID, err := res.Get(ctx)
	if err != nil {
		slog.Error("Failed to publish message", "topic", topicID, "error", err)
		return "", err
	}
	slog.Info("Message published successfully", "topic", topicID, "message_id", msgID, "size_bytes", len(data))
	return msgID, nil
}

// LogPublisher logs events instead of publishing them. Used when
// ENABLE_PUBLISH is off and for local development.
type LogPublisher struct{}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	bytes, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return p.publish(ctx, topicID, bytes)
}

func (p *LogPublisher) publish(ctx context.Context, topicID string, data []byte) (string, error) {
	slog.Info("LOG PUBLISH", "topic", topicID, "data", string(data))
	return "log-msg-id", nil
}
