package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/config"
)

var ErrNotConnected = errors.New("nats connection not established")

type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("waste-ninja-" + cfg.InstanceID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NatsURL, err)
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", subject, err)
	}

	return s.conn.Publish(subject, payload)
}

func (s *Service) IsConnected() bool {
	return s != nil && s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		s.conn.Close()
		return nil
	}

	// Drain is asynchronous; wait for it or give up with the context.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for s.conn.IsDraining() {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
