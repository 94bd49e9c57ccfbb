package main

import (
	"context"
	"fmt"

	"github.com/samrat-shrestha/toptracks/internal/repositories"
	"github.com/samrat-shrestha/toptracks/internal/shared"
	"github.com/urfave/cli/v3"
)

// SessionsPrune deletes expired rows from the sqlite session table.
func (r *Runner) SessionsPrune(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	if config.Session.Backend != shared.SessionBackendSQLite {
		return fmt.Errorf("%w: prune only applies to the sqlite session backend, got %q", shared.ErrInvalidConfig, config.Session.Backend)
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := repositories.NewSessionRepository(db).DeleteExpired(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("expired sessions removed", "count", removed)
	return r.writePlain("✓ Removed %d expired sessions\n", removed)
}
