package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lexhaven/firmportal/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	UserRegistered        = "user.registered"
	RegistrationCompleted = "registration.completed"
	CaseCreated           = "case.created"
)

// Event payloads
type UserRegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
}

type RegistrationCompletedEvent struct {
	UserID      int64     `json:"user_id"`
	FirmName    string    `json:"firm_name"`
	CompletedAt time.Time `json:"completed_at"`
}

type CaseCreatedEvent struct {
	CaseID     int64     `json:"case_id"`
	UserID     int64     `json:"user_id"`
	ClientName string    `json:"client_name"`
	CaseType   string    `json:"case_type"`
	CreatedAt  time.Time `json:"created_at"`
}
