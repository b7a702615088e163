package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/services"
	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// selectWiki resolves the --wiki flag to a client and, for targets, the title mapping.
func (r *Runner) selectWiki(config *shared.Config, name string) (*services.WikiService, *models.TargetMapping, error) {
	client := r.client(config)
	if name == "" || name == "source" {
		return r.wiki(config, client, config.Source.Endpoint()), nil, nil
	}

	target, ok := config.Target(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown wiki %q", shared.ErrInvalidArgument, name)
	}
	mapping := models.TargetMapping{Name: target.DisplayName(), SlugMap: target.SlugMap}
	return r.wiki(config, client, target.Endpoint()), &mapping, nil
}

// PagesList prints every main-namespace title of a wiki.
func (r *Runner) PagesList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	wiki, _, err := r.selectWiki(config, cmd.String("wiki"))
	if err != nil {
		return err
	}

	r.logger.Info("listing pages", "endpoint", wiki.Endpoint())
	titles, err := wiki.ListPages(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(titles, true)
	}

	for _, title := range titles {
		if err := r.writePlain("%s\n", title); err != nil {
			return err
		}
	}
	r.logger.Info("listed pages", "endpoint", wiki.Endpoint(), "count", len(titles))
	return nil
}

// PagesGet prints the latest wikitext of a page.
//
// On a target wiki the title is translated through the slug map, as the synchronizer would, unless --raw-title is set.
func (r *Runner) PagesGet(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	wiki, mapping, err := r.selectWiki(config, cmd.String("wiki"))
	if err != nil {
		return err
	}
	if mapping != nil && !cmd.Bool("raw-title") {
		title = mapping.Resolve(title)
	}

	lookup, err := wiki.PageContent(ctx, title)
	if err != nil {
		return err
	}
	if !lookup.Exists {
		return fmt.Errorf("%w: page %q on %s", shared.ErrNotFound, title, wiki.Endpoint())
	}

	return r.writePlain("%s\n", lookup.Content)
}
