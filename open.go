package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/electr1fy0/scribe/client"
	"github.com/electr1fy0/scribe/config"
	"github.com/electr1fy0/scribe/storage"
)

const passphraseEnv = "SCRIBE_PASSPHRASE"

func needsPassphrase(c *config.Config) bool {
	return c.Backend == config.BackendFile && c.Encrypt
}

// openRepository builds the configured backend. passphrase is only used by
// the encrypted file backend.
func openRepository(ctx context.Context, c *config.Config, passphrase string, log zerolog.Logger) (storage.Repository, error) {
	switch c.Backend {
	case config.BackendFile:
		return openFileStore(ctx, c, passphrase)
	case config.BackendSQLite:
		if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return storage.OpenSQLite(ctx, filepath.Join(c.DataDir, storage.DefaultSQLiteName))
	case config.BackendPostgres:
		return storage.OpenPostgres(ctx, c.PostgresDSN)
	case config.BackendRemote:
		return client.Dial(ctx, c.RemoteURL, c.Token, log)
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

func openFileStore(ctx context.Context, c *config.Config, passphrase string) (*storage.FileStore, error) {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	var opts []storage.FileOption
	if c.Encrypt {
		if passphrase == "" {
			return nil, errors.New("encrypted notebook needs a passphrase")
		}
		opts = append(opts, storage.WithPassphrase(passphrase))
	}
	fs := storage.NewFileStore(filepath.Join(c.DataDir, storage.DefaultFileName), opts...)
	if err := fs.Unlock(ctx); err != nil {
		return nil, err
	}
	return fs, nil
}

// openHeadless opens the repository for the non-interactive commands,
// reading the passphrase from SCRIBE_PASSPHRASE or the terminal.
func openHeadless(ctx context.Context, log zerolog.Logger) (storage.Repository, func(), error) {
	var pass string
	if needsPassphrase(cfg) {
		p, err := readPassphrase()
		if err != nil {
			return nil, nil, err
		}
		pass = p
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	repo, err := openRepository(ctx, cfg, pass, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if c, ok := repo.(storage.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("close repository")
			}
		}
	}
	return repo, closeFn, nil
}

func readPassphrase() (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("encrypted notebook: set %s or run in a terminal", passphraseEnv)
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}
