package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/logging"
)

// NewRedisRelay creates a Redis Streams publisher for relaying activity
// records to external observers.
func NewRedisRelay(redisURL string) (message.Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, watermill.NewSlogLogger(logging.Logger))
	if err != nil {
		return nil, fmt.Errorf("create redis publisher: %w", err)
	}

	return pub, nil
}
