package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthCheck logs into every target and fetches a write token, reporting each target separately.
func (r *Runner) AuthCheck(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	creds, err := r.credentials(ctx, config)
	if err != nil {
		return err
	}

	failed := 0
	for _, target := range r.targets(config, r.client(config)) {
		logger := shared.WithLogger(r.logger, "target", target.Mapping.Name, "endpoint", target.Wiki.Endpoint())

		sess, err := target.Wiki.Login(ctx, creds)
		if err == nil {
			_, err = target.Wiki.CSRFToken(ctx, sess)
		}
		if err != nil {
			failed++
			logger.Error("authentication failed", "error", err)
			r.writePlain("✗ %s (%s): %v\n", target.Mapping.Name, target.Wiki.Endpoint(), err)
			continue
		}

		logger.Info("authenticated", "user", sess.User)
		r.writePlain("✓ %s (%s) as %s\n", target.Mapping.Name, target.Wiki.Endpoint(), sess.User)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d targets rejected the credentials", shared.ErrAuthFailed, failed, len(config.Targets))
	}
	return nil
}
