package config

import (
	"os"
	"strconv"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/events"
	"github.com/akeren/waitlist-signup/pkg/retry"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

// NotifierConfig selects where signup events go: RabbitMQ when AMQP_URL is
// set, otherwise a Redis stream when SIGNUP_EVENTS_STREAM is set and Redis is
// configured, otherwise nowhere.
type NotifierConfig struct {
	AMQPURL      string
	AMQPExchange string
	Stream       string
	StreamMaxLen int64
}

func NewNotifierConfig() *NotifierConfig {
	nc := &NotifierConfig{
		AMQPURL:      sanitizeEnv(os.Getenv("AMQP_URL")),
		AMQPExchange: utils.GetEnvTrimmedOrDefault("AMQP_EXCHANGE", "waitlist"),
		Stream:       utils.GetEnvTrimmed("SIGNUP_EVENTS_STREAM"),
	}
	if v := utils.GetEnvTrimmed("SIGNUP_EVENTS_STREAM_MAXLEN"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			nc.StreamMaxLen = parsed
		}
	}
	return nc
}

// NewPublisher never fails: an unreachable broker is logged and events are
// dropped, since publishing is best effort.
func (nc *NotifierConfig) NewPublisher(logger *log.Logger, cache Cache) events.Publisher {
	if nc.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(events.AMQPConfig{
			URL:      nc.AMQPURL,
			Exchange: nc.AMQPExchange,
			Retry:    retry.NewExponentialBackoff(retry.StartupConfig()),
		})
		if err != nil {
			logger.Error("Failed to connect to AMQP broker; signup events disabled", "error", err)
			return events.NopPublisher{}
		}
		logger.Info("Signup events publishing to AMQP", "exchange", nc.AMQPExchange)
		return publisher
	}

	if nc.Stream != "" {
		client := GetRedisClient(cache)
		if client == nil {
			logger.Warn("SIGNUP_EVENTS_STREAM set but Redis is not configured; signup events disabled")
			return events.NopPublisher{}
		}
		publisher, err := events.NewRedisStreamPublisher(client, nc.Stream, nc.StreamMaxLen)
		if err != nil {
			logger.Error("Failed to create Redis stream publisher; signup events disabled", "error", err)
			return events.NopPublisher{}
		}
		logger.Info("Signup events publishing to Redis stream", "stream", nc.Stream)
		return publisher
	}

	logger.Info("No event broker configured; signup events disabled")
	return events.NopPublisher{}
}

func ClosePublisher(publisher events.Publisher, logger *log.Logger) {
	if events.IsNop(publisher) {
		return
	}
	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher", "error", err)
		return
	}
	logger.Info("Event publisher closed")
}
