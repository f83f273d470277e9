package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/docview/internal"
	"github.com/starford/docview/internal/credential"
	"github.com/starford/docview/internal/docapi"
	"github.com/starford/docview/internal/docview"
	pkgconfig "github.com/starford/docview/pkg/config"
)

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	root := cmd.Root()
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(root.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := root.String("base-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := root.String("token-file"); v != "" {
		cfg.Credentials.Path = v
	}
	if v := root.String("login-url"); v != "" {
		cfg.Login.URL = v
	}
	if v := root.String("log-level"); v != "" {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", v, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// stdout returns the writer commands render to.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stdin(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

// loginPrompt is the Navigator used on the terminal: it cannot open the
// login page itself, so it tells the user where to go.
type loginPrompt struct {
	out io.Writer
}

func (p loginPrompt) Navigate(_ context.Context, target string) {
	fmt.Fprintf(p.out, "Your session has expired. Log in at %s and run `docview login`.\n", target)
}

// client bundles what every document command needs.
type client struct {
	cfg    *internal.Config
	logger *slog.Logger
	creds  *credential.FileStore
	api    *docapi.Client
}

func newClient(cmd *cli.Command) (*client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	// Logs go to stderr; stdout carries the rendered view.
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	creds, err := credential.NewFileStore(cfg.Credentials.Path)
	if err != nil {
		return nil, err
	}
	api := docapi.New(cfg.API.BaseURL, creds,
		docapi.WithLogger(logger),
		docapi.WithTimeout(cfg.API.Timeout))
	return &client{cfg: cfg, logger: logger, creds: creds, api: api}, nil
}

// newView builds a View whose session-expired path clears the token file and
// prints the login URL to notify.
func (c *client) newView(notify io.Writer, clip docview.Clipboard) *docview.View {
	expired := docview.ExpireSession(c.creds, loginPrompt{out: notify}, c.cfg.Login.URL, c.logger)
	loader := docview.NewLoader(c.api,
		docview.WithSessionExpired(expired),
		docview.WithLoaderLogger(c.logger))
	return docview.NewView(loader, docview.NewSession(c.api, c.logger), clip, c.logger)
}
