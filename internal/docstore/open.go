package docstore

import (
	"context"
	"fmt"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
	pebblestore "github.com/delimatsuo/headhunter-sub005/internal/storage/pebble"
	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// Open returns the backend selected by cfg.Docstore.Backend. The local
// backend needs db; the Firestore backend ignores it.
func Open(ctx context.Context, cfg config.Config, db *pebblestore.DB, logger log.Logger) (Store, error) {
	switch cfg.Docstore.Backend {
	case "", "firestore":
		return OpenFirestore(ctx, FirestoreOptions{
			Project:         cfg.Project,
			Database:        cfg.Database,
			CredentialsFile: cfg.Docstore.CredentialsFile,
			EmulatorHost:    cfg.Docstore.EmulatorHost,
			Logger:          logger,
		})
	case "local":
		if db == nil {
			return nil, fmt.Errorf("docstore: local backend needs a data directory")
		}
		return NewLocal(db), nil
	default:
		return nil, fmt.Errorf("docstore: unknown backend %q", cfg.Docstore.Backend)
	}
}
