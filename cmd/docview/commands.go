package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/docview/internal"
	"github.com/starford/docview/internal/clipboard"
	"github.com/starford/docview/internal/mcpserver"
	"github.com/starford/docview/internal/render"
)

var errNoDocumentID = errors.New("document id is required")

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json)",
		Value:   string(render.FormatText),
	}
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Show a document with its summary, content and query history",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:  "tab",
				Usage: "Part of the view to show (all, summary, document, history)",
				Value: string(render.TabAll),
			},
			&cli.StringFlag{
				Name:  "expand",
				Usage: "History index whose answer is shown",
			},
		},
		Action: runView,
	}
}

func runView(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return errNoDocumentID
	}
	format, err := render.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	tab, err := parseTab(cmd.String("tab"))
	if err != nil {
		return err
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	out := stdout(cmd)
	view := c.newView(out, nil)

	openErr := view.Open(ctx, cmd.Args().First())
	if openErr == nil && cmd.String("expand") != "" {
		i, err := strconv.Atoi(cmd.String("expand"))
		if err != nil {
			return fmt.Errorf("invalid --expand %q: %w", cmd.String("expand"), err)
		}
		view.Session().ToggleExpanded(i)
	}
	if err := render.WriteView(out, view.Loader().State(), view.Session().Snapshot(), tab, format); err != nil {
		return err
	}
	return openErr
}

func parseTab(s string) (render.Tab, error) {
	switch t := render.Tab(strings.ToLower(s)); t {
	case "", render.TabAll:
		return render.TabAll, nil
	case render.TabSummary, render.TabDocument, render.TabHistory:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q (want all, summary, document or history)", s)
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question about a document",
		ArgsUsage: "<id> <question...>",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return errors.New("usage: docview ask <id> <question...>")
			}
			format, err := render.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			out := stdout(cmd)
			view := c.newView(out, nil)
			if err := view.Open(ctx, cmd.Args().First()); err != nil {
				return err
			}

			question := strings.Join(cmd.Args().Tail(), " ")
			q, err := view.Session().Submit(ctx, question)
			if err != nil {
				return err
			}
			if q == nil {
				return errors.New("question is empty")
			}
			if format == render.FormatJSON {
				return render.WriteView(out, view.Loader().State(), view.Session().Snapshot(), render.TabHistory, format)
			}
			render.WriteAnswer(out, *q)
			return nil
		},
	}
}

func shellCommand() *cli.Command {
	return &cli.Command{
		Name:      "shell",
		Usage:     "Open a document interactively and ask questions about it",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return errNoDocumentID
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			out := stdout(cmd)
			view := c.newView(out, clipboard.NewOSC52(out))
			return newShell(view, stdin(cmd), out).Run(ctx, cmd.Args().First())
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Store the bearer token used for the document service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token (read from stdin when omitted)",
				Sources: cli.EnvVars("DOCVIEW_TOKEN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			token := cmd.String("token")
			if token == "" {
				fmt.Fprintf(os.Stderr, "Token (from %s): ", c.cfg.Login.URL)
				line, err := bufio.NewReader(stdin(cmd)).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return errors.New("token is empty")
			}
			if err := c.creds.SetToken(token); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "Token saved to %s\n", c.creds.Path())
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Remove the stored bearer token",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.creds.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(stdout(cmd), "Logged out")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local fixture document service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "fixtures",
				Usage:   "Seed file with documents and canned answers",
				Sources: cli.EnvVars("DOCVIEW_FIXTURES_PATH"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if v := cmd.String("fixtures"); v != "" {
				cfg.Fixtures.Path = v
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the document view as MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			// stdout belongs to the protocol; expiry notices go to stderr.
			view := c.newView(os.Stderr, nil)
			return mcpserver.New(view, version).ServeStdio()
		},
	}
}
