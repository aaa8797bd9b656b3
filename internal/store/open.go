package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tres-passos/marketplace/internal/config"
)

// Open returns the Store selected by cfg.Driver. SQLite databases are
// migrated on open.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		st, err := NewPostgres(ctx, cfg.DatabaseURL, cfg.Pool)
		if err != nil {
			return nil, err
		}
		zap.L().Info("store: connected", zap.String("driver", "postgres"))
		return st, nil
	case "sqlite":
		st, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Info("store: connected", zap.String("driver", "sqlite"), zap.String("dsn", cfg.DatabaseURL))
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
