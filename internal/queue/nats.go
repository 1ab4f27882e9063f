package queue

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Connect establishes the NATS connection shared by the event consumer and
// the grading producer.
func Connect(url, appName string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}

	conn, err := nats.Connect(url, nats.Name(appName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return conn, nil
}
