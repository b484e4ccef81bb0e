package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/sechat/sechat/internal/cookies"
	"github.com/sechat/sechat/pkg/chatlib"
	"github.com/sechat/sechat/pkg/credstore"
	"github.com/sechat/sechat/pkg/logger"
)

// configDir is where sechat keeps its fallback credential files.
func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sechat")
}

// newLogger builds the logger for a command invocation: console output
// with --verbose, a file with --log-file, both fanned out together.
func newLogger(ctx *cli.Context) logger.Logger {
	var backends []logger.Logger
	if ctx.Bool("verbose") {
		backends = append(backends, logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}
	if path := ctx.String("log-file"); path != "" {
		fl, err := logger.NewFileLogger(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sechat: %s\n", err.Error())
		} else {
			backends = append(backends, fl)
		}
	}
	switch len(backends) {
	case 0:
		return logger.NewNopLogger()
	case 1:
		return backends[0]
	}
	return logger.NewMultiLogger(backends...)
}

// resolveCredentials finds the email/password for a host. Flags and
// environment win; a .env file in the working directory is loaded
// first so either can come from there; the keyring is the fallback.
func resolveCredentials(ctx *cli.Context, host string) (chatlib.Config, error) {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	cfg := chatlib.Config{
		Host:     host,
		Email:    ctx.String("email"),
		Password: ctx.String("password"),
		Timeout:  DEF_TIMEOUT,
	}
	if cfg.Email == "" {
		cfg.Email = os.Getenv(envEmail)
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv(envPassword)
	}
	if cfg.Email != "" && cfg.Password != "" {
		return cfg, nil
	}

	stored, err := credstore.New(configDir()).Load(host)
	if err != nil {
		return cfg, fmt.Errorf("no credentials for %s: pass --email/--password, set %s/%s, or run `sechat login`", host, envEmail, envPassword)
	}
	if cfg.Email == "" {
		cfg.Email = stored.Email
	}
	if cfg.Password == "" {
		cfg.Password = stored.Password
	}
	return cfg, nil
}

// newClient builds a logged-in client for a command. When --cookies
// points at a browser cookie store (or "auto"), the jar is seeded from
// it before login.
func newClient(c *cli.Context, cctx context.Context) (*chatlib.Client, error) {
	host := c.String("host")
	cfg, err := resolveCredentials(c, host)
	if err != nil {
		return nil, err
	}
	lg := newLogger(c)
	cfg.Logger = lg

	client, err := chatlib.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if storePath := c.String("cookies"); storePath != "" {
		browser := "unknown"
		if storePath == "auto" {
			storePath, browser, err = cookies.AutoDetect()
			if err != nil {
				return nil, err
			}
		}
		source, err := cookies.Seed(client.Jar(), afero.NewOsFs(), storePath, host, lg)
		if err != nil {
			return nil, fmt.Errorf("seeding cookies: %w", err)
		}
		if source.Browser != "" {
			browser = source.Browser
		}
		lg.Info("seeded %d cookies from %s store", client.Jar().Len(), browser)
	}

	if err := client.Login(cctx); err != nil {
		return nil, err
	}
	return client, nil
}
