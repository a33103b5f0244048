package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storekit/storekit/pkg/kv"
	"github.com/storekit/storekit/pkg/logger"
	gw "github.com/storekit/storekit/pkg/realtime"
)

const lastSeenKeyPrefix = "presence:last_seen:"

// LastSeen records when a user was last connected, so presence queries can
// answer "seen 5 minutes ago" for users who are currently offline. Entries
// expire on their own; a stale or missing record simply reads as unknown.
type LastSeen struct {
	store kv.Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewLastSeen creates a recorder over any key-value backend. A zero ttl
// defaults to 30 days.
func NewLastSeen(store kv.Store, ttl time.Duration, log *slog.Logger) *LastSeen {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &LastSeen{store: store, ttl: ttl, log: log}
}

// Touch stamps the user as seen now. Recording is best-effort: a backend
// hiccup is logged, never surfaced to the connection path.
func (l *LastSeen) Touch(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := l.store.Set(ctx, lastSeenKeyPrefix+userID, []byte(stamp), l.ttl); err != nil {
		l.log.Warn("failed to record last seen",
			logger.UserID(userID),
			logger.Error(err))
	}
}

// Get returns when the user was last seen. ok is false when there is no
// record or it has expired.
func (l *LastSeen) Get(ctx context.Context, userID string) (time.Time, bool, error) {
	raw, err := l.store.Get(ctx, lastSeenKeyPrefix+userID)
	if errors.Is(err, kv.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	at, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt last seen record for %s: %w", userID, err)
	}
	return at, true, nil
}

// Hook returns a gateway connect/disconnect hook stamping authenticated
// identities. The same hook serves both sides: any transition proves the
// user was just online.
func (l *LastSeen) Hook() func(*gw.Conn) {
	return func(c *gw.Conn) {
		identity := c.Identity()
		if identity.IsAnonymous() {
			return
		}
		l.Touch(context.Background(), identity.ID)
	}
}
