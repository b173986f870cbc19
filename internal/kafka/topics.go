package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"ms-venues/internal/logger"

	"github.com/segmentio/kafka-go"
)

const (
	TopicBookingCreated       = "booking.created"
	TopicBookingStatusChanged = "booking.status_changed"
	TopicHireCreated          = "hire.created"
	TopicHireStatusChanged    = "hire.status_changed"
	TopicPaymentCreated       = "payment.created"
	TopicPaymentStatusChanged = "payment.status_changed"
)

// Topics lists every topic the service publishes to.
var Topics = []string{
	TopicBookingCreated,
	TopicBookingStatusChanged,
	TopicHireCreated,
	TopicHireStatusChanged,
	TopicPaymentCreated,
	TopicPaymentStatusChanged,
}

// TopicName applies the deployment prefix, e.g. "staging." + "booking.created".
func TopicName(prefix, topic string) string {
	return prefix + topic
}

// EnsureTopicsExist creates the service topics through the cluster controller.
func EnsureTopicsExist(ctx context.Context, brokers []string, prefix string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range Topics {
		name := TopicName(prefix, topic)
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             name,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		switch {
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.LogKafka("TOPIC", name, "already exists")
		case err != nil:
			log.Error("KAFKA", fmt.Sprintf("create topic %s: %v", name, err))
		default:
			log.LogKafka("TOPIC", name, "created")
		}
	}
	return nil
}
