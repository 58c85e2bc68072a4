package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/persistence/file"
	"github.com/dukex/flowgraph/pkg/persistence/postgresql"
)

var ErrUnsupportedDatabase = errors.New("unsupported database url")

// NewPersistence selects the persistence backend from the scheme of databaseURL.
// A bare path is treated as a file:// url.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "file":
		return file.NewPersistence(databaseURL), nil
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
