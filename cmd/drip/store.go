package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fwojciec/drip"
	dripjson "github.com/fwojciec/drip/json"
	"github.com/fwojciec/drip/sqlite"
)

// openStore opens the configured conversation store. The returned closer
// releases it.
func openStore(cfg StoreConfig) (drip.ConversationStore, io.Closer, error) {
	switch cfg.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store directory: %w", err)
		}
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "json":
		return dripjson.NewStore(cfg.Path), io.NopCloser(nil), nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
