// Package notify announces a refreshed course warehouse on PubSub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

const DefaultTopic = "courses-refreshed"

// Refreshed is the event body published after a sync.
type Refreshed struct {
	Courses int `json:"courses"`
}

type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPublisher(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*Publisher, error) {
	if projectID == "" {
		projectID = pubsub.DetectProjectID
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	if topicID == "" {
		topicID = DefaultTopic
	}
	return &Publisher{client: client, topic: client.Topic(topicID)}, nil
}

// PublishRefreshed sends the event and waits for the server id.
func (p *Publisher) PublishRefreshed(ctx context.Context, courses int) (string, error) {
	msg, err := json.Marshal(Refreshed{Courses: courses})
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}
	res := p.topic.Publish(ctx, &pubsub.Message{Data: msg})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}
	return id, nil
}

func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
