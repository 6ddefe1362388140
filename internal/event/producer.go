package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
	pkgkafka "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/kafka"
)

// Kafka topics for account events.
var (
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserLoggedIn   = pkgkafka.Topic("user", "logged_in")
)

const (
	AggregateTypeUser = "user"
	SourceAuthService = "forum-auth"
)

// Sign-in methods reported in UserLoggedInData.
const (
	MethodPassword = "password"
)

// UserRegisteredData is the payload of forum.user.registered.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Provider string `json:"provider"`
}

// UserLoggedInData is the payload of forum.user.logged_in. Method is
// "password" or the identity provider name.
type UserLoggedInData struct {
	ID     string `json:"id"`
	Method string `json:"method"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes account events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka is usually a *pkgkafka.Producer.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered announces a newly created account.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Provider: user.Provider,
	})
}

// PublishUserLoggedIn announces a successful sign-in.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.User, method string) error {
	return p.publish(ctx, TopicUserLoggedIn, user.ID, UserLoggedInData{ID: user.ID, Method: method})
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)
	return nil
}
