package common

import (
	"context"

	"resumind/internal/errors"
	"resumind/internal/store"
)

// CommandConfig is assumed to be defined elsewhere in the common package.

// StoreOperationFunc is a generic signature for a read against the session store.
type StoreOperationFunc[Output any] func(context.Context, store.Store) (Output, error)

// RunStoreCommand encapsulates the common logic for store-backed CLI commands:
// open the store, run the operation, route the result through the output handler.
func RunStoreCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	storePath string,
	operation StoreOperationFunc[Output],
) error {
	sessionStore, err := store.NewSQLite(storePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessionStore.Close(); err != nil && logger != nil {
			logger.Warn("Failed to close session store", "error", err)
		}
	}()

	result, err := operation(ctx, sessionStore)
	if err != nil {
		return err
	}

	outputHandler := NewOutputHandler(logger)
	return outputHandler.HandleOutput(result, cmdConfig)
}
