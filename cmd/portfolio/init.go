package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/atomicfile"
	"github.com/R-Vicente/signal-and-noise/internal/config"
)

const (
	initConfigFile  = "portfolio.toml"
	initExampleFile = "example-project.md"
	initFileMode    = 0o644
)

const starterConfig = `[site]
title = "Projects"
tagline = "Things I have built"
# base_url = "https://example.com/portfolio/"

content_dir = "projects"
output = "public"

# Slugs listed here come first; the rest follow by date, newest first.
order = ["example-project"]

[categories]
example-project = ["software"]

[[filters]]
label = "All"
value = "all"

[[filters]]
label = "Software"
value = "software"

[[filters]]
label = "Hardware"
value = "hardware"

[display]
description_length = 150
card_tags = 3

[server]
addr = ":8080"
cache_ttl = "5m"

# [sources.telescope]
# type = "url"
# url = "https://raw.githubusercontent.com/example/telescope/main/README.md"
# slug = "telescope"
`

const starterProject = `---
title: Example Project
date: 2024-01-01
tags: [Go, Markdown]
featured_image: https://placehold.co/800x600
---

# Example Project

This is an example project document. The first paragraph becomes the
short description shown on the project card.

## Highlights

- Written in **markdown** with a frontmatter header
- Rendered to a card and a detail page
`

func newInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter portfolio.toml and an example project",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory to initialize",
				Value: ".",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing files",
			},
		},
		Action: initAction,
	}
}

func initAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	force := cmd.Bool("force")

	files := []struct {
		path    string
		content string
	}{
		{path: filepath.Join(dir, initConfigFile), content: starterConfig},
		{path: filepath.Join(dir, config.DefaultContentDir, initExampleFile), content: starterProject},
	}

	if !force {
		for _, f := range files {
			if _, err := os.Stat(f.path); err == nil {
				return oops.
					Code("ALREADY_EXISTS").
					With("path", f.path).
					Hint("Use --force to overwrite").
					Errorf("%s already exists", f.path)
			} else if !errors.Is(err, os.ErrNotExist) {
				return oops.Wrapf(err, "checking %s", f.path)
			}
		}
	}

	for _, f := range files {
		if err := atomicfile.Write(f.path, []byte(f.content), initFileMode); err != nil {
			return oops.
				Code("WRITE_FAILED").
				With("path", f.path).
				Wrapf(err, "writing %s", f.path)
		}
		_, _ = fmt.Fprintf(stdout(cmd), "created %s\n", f.path)
	}

	return nil
}
