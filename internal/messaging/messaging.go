package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TrainQueue      = "training_jobs"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

// TrainTaskPayload is the message placed on the training queue. The worker
// loads the full job definition from the database by id.
type TrainTaskPayload struct {
	JobId uuid.UUID
}

type Publisher interface {
	PublishTrainTask(ctx context.Context, payload TrainTaskPayload) error

	Close()
}

type Receiver interface {
	Tasks() <-chan Task

	Close()
}
