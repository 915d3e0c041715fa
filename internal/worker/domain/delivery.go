package domain

import "github.com/cuongbtq/booking-service/internal/notification"

// Delivery status values stored in the delivery log
const (
	DeliveryStatusRunning   = "RUNNING"
	DeliveryStatusDelivered = "DELIVERED"
	DeliveryStatusFailed    = "FAILED"
)

// Acknowledger settles a broker delivery. amqp091 deliveries satisfy it.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Delivery is a decoded message handed from the dispatcher to the pool
type Delivery struct {
	Message     notification.Message
	DeliveryTag uint64
	Redelivered bool
	Acker       Acknowledger
}
