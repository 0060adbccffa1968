// Package tasks contains the periodic sync jobs: each task walks a roster of
// healthy accounts (or a set of regions), pulls current facts from ESI and
// reconciles them into storage by natural key. A failure for one account
// never aborts the run for the rest.
package tasks

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
	"github.com/eve-companion/internal/syncerr"
)

// TokenSource yields access tokens for roster characters. A credential
// failure from AccessToken is terminal for that character until re-login.
type TokenSource interface {
	AccessToken(ctx context.Context, character *models.Character) (string, error)
	Invalidate(ctx context.Context, characterID int64)
}

// HealthMarker flips a character out of the healthy roster.
type HealthMarker interface {
	MarkSSOInvalid(ctx context.Context, characterID int64) error
}

// Notifier delivers a message to a user out of band.
type Notifier interface {
	NotifyUser(ctx context.Context, discordUserID, message string) error
}

// handleAccountError classifies a per-account failure. Credential failures
// mark the account unhealthy so subsequent runs stop touching it; everything
// else is logged and the account is retried on the next run. Always returns
// without error so the caller can continue with the rest of the roster.
func handleAccountError(ctx context.Context, health HealthMarker, tokens TokenSource, characterID int64, err error) {
	logger := logging.FromContext(ctx).WithField("character_id", characterID)

	if syncerr.IsCredential(err) {
		logger.WithError(err).Warn("Credential failure, marking account unhealthy")
		if tokens != nil {
			tokens.Invalidate(ctx, characterID)
		}
		if markErr := health.MarkSSOInvalid(ctx, characterID); markErr != nil {
			logger.WithError(markErr).Error("Failed to mark account unhealthy")
		}
		return
	}

	logger.WithError(err).Warn("Account sync failed, will retry next run")
}

// runSummary aggregates per-account outcomes into the job result. The run
// itself succeeded as a loop; a non-nil return only surfaces the failure
// count in job status.
func runSummary(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d accounts failed", failed, total)
}
