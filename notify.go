package sbmcp

import (
	"context"
	"fmt"

	"github.com/leeb003/supabase-mcp/internal/validate"
)

// StartChangeListener holds a dedicated connection LISTENing on the
// configured Postgres channel and forwards every NOTIFY payload to the
// broadcast hub. This covers table changes made outside this server
// (database triggers calling pg_notify), complementing the change events
// the engine publishes for its own mutations.
//
// Blocks until ctx is cancelled; returns nil on cancellation, or the
// connection error that ended the loop. Reconnecting is the caller's
// choice — the listener itself never retries.
func (s *SupabaseMcp) StartChangeListener(ctx context.Context) error {
	channel := s.config.Events.Channel
	if channel == "" {
		return fmt.Errorf("change listener: events.channel is not configured")
	}
	// LISTEN takes the channel name as an identifier, not a bind parameter.
	if err := validate.Identifier(channel); err != nil {
		return fmt.Errorf("change listener: %w", err)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("change listener: failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf(`LISTEN %q`, channel)); err != nil {
		return fmt.Errorf("change listener: LISTEN failed: %w", err)
	}
	s.logger.Info().Str("channel", channel).Msg("change listener started")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info().Str("channel", channel).Msg("change listener stopped")
				return nil
			}
			return fmt.Errorf("change listener: %w", err)
		}
		seq := s.hub.Publish([]byte(notification.Payload))
		s.logger.Debug().
			Uint64("seq", seq).
			Str("channel", notification.Channel).
			Int("payload_bytes", len(notification.Payload)).
			Msg("notify forwarded")
	}
}
