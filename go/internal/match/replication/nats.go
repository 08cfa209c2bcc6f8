package replication

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "match.state"

// NATSBus replicates snapshots over core NATS, one subject per match.
// Core NATS keeps per-publisher ordering, which is all LWW merging needs.
type NATSBus struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSBus(nc *nats.Conn, subjectPrefix string) *NATSBus {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &NATSBus{nc: nc, prefix: subjectPrefix}
}

func (b *NATSBus) subject(matchID string) string {
	return fmt.Sprintf("%s.%s", b.prefix, matchID)
}

func (b *NATSBus) Publish(_ context.Context, matchID string, data []byte) error {
	if err := b.nc.Publish(b.subject(matchID), data); err != nil {
		return fmt.Errorf("publish snapshot for match %s: %w", matchID, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(matchID string, handler func(data []byte)) (Subscription, error) {
	sub, err := b.nc.Subscribe(b.subject(matchID), func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to match %s: %w", matchID, err)
	}
	return sub, nil
}
