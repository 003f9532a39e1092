package pgutils

import (
	"database/sql"
	"fmt"
)

// AcquireActorLock takes a transaction-scoped advisory lock keyed by the
// actor id. It serializes spend-path balance checks for one actor without
// locking any rows; the lock releases on commit or rollback.
func AcquireActorLock(tx *sql.Tx, actorID string) error {
	_, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, actorID)
	if err != nil {
		return fmt.Errorf("advisory lock for %q: %w", actorID, err)
	}

	return nil
}
