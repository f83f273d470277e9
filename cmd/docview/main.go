package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "docview",
		Usage:   "View documents, their AI summaries and ask questions about them",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("DOCVIEW_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Document service base URL",
				Sources: cli.EnvVars("DOCVIEW_API_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "token-file",
				Usage:   "Path of the stored bearer token",
				Sources: cli.EnvVars("DOCVIEW_TOKEN_FILE"),
			},
			&cli.StringFlag{
				Name:    "login-url",
				Usage:   "Where to log in again when the session expires",
				Sources: cli.EnvVars("DOCVIEW_LOGIN_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("DOCVIEW_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			viewCommand(),
			askCommand(),
			shellCommand(),
			loginCommand(),
			logoutCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
