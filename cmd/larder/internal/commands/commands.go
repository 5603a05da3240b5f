package commands

import (
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/database"
)

type Globals struct {
	Version string
}

// dbFlags selects the database for commands that run outside the server.
type dbFlags struct {
	Path string `name:"db" help:"SQLite database path" env:"LARDER_DB_PATH" default:"larder.db"`
}

func (f dbFlags) open() (*sql.DB, error) {
	return database.Open(f.Path)
}

type tokenFlags struct {
	Secret string        `name:"jwt-secret" help:"JWT signing secret" required:"" env:"LARDER_JWT_SECRET"`
	TTL    time.Duration `name:"ttl" help:"Token lifetime" env:"LARDER_TOKEN_TTL" default:"168h"`
}

func (f tokenFlags) tokens() *auth.Tokens {
	return auth.NewTokens(f.Secret, f.TTL)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
