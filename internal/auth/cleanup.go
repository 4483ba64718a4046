package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/bmorante2012/CleanStream/internal/database"
)

// PurgeExpiredTokens deletes refresh tokens that expired or were revoked
// more than a week ago. They are useless for auth but linger in the table.
func PurgeExpiredTokens(ctx context.Context, db database.DBTX) {
	tag, err := db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < now() - interval '7 days'`)
	if err != nil {
		slog.Error("auth: failed to purge expired tokens", "error", err)
		return
	}
	if tag.RowsAffected() > 0 {
		slog.Info("auth: purged expired refresh tokens", "count", tag.RowsAffected())
	}
}

func StartTokenCleanupLoop(ctx context.Context, db database.DBTX, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("auth: token cleanup shutting down")
				return
			case <-ticker.C:
				PurgeExpiredTokens(ctx, db)
			}
		}
	}()
}
