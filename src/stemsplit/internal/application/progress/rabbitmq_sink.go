package progress

import (
	"encoding/json"
	"strconv"

	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/stemsplitter/src/shared/lib/rabbitmq"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
)

const ProgressMessageType = "stem_progress"

var _ Sink = RabbitMQSink{}

func NewRabbitMQSink(publisher rabbitmq.Publisher) RabbitMQSink {
	return RabbitMQSink{publisher: publisher}
}

// RabbitMQSink publishes each event as a persistent JSON message.
type RabbitMQSink struct {
	publisher rabbitmq.Publisher
}

func (r RabbitMQSink) Publish(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return cerr.Field("seq", event.Seq).Wrap(err).Error("Failed to marshal progress event")
	}

	err = r.publisher.Publish(amqp091.Publishing{
		Type:      ProgressMessageType,
		MessageId: event.RunID + "-" + strconv.FormatUint(event.Seq, 10),
		Timestamp: event.Timestamp,
		Body:      body,
	})
	if err != nil {
		return cerr.Field("seq", event.Seq).Wrap(err).Error("Failed to publish progress event")
	}

	return nil
}
