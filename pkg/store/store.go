// Package store implements the relational persistence layer on pgx. Each
// entity gets its own file; all stores share the pool owned by
// database.Client. Row-absence is reported as ErrNotFound and translated to
// the service-level taxonomy by callers.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that no row matched the query.
var ErrNotFound = errors.New("store: not found")

// Store bundles the per-entity stores over one shared pool.
type Store struct {
	Tenants    *TenantStore
	Assistants *AssistantStore
	Threads    *ThreadStore
	Memories   *MemoryStore
	Jobs       *JobStore
	Runs       *RunStore
}

// New creates all entity stores over the given pool. The caller owns the
// pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Tenants:    &TenantStore{pool: pool},
		Assistants: &AssistantStore{pool: pool},
		Threads:    &ThreadStore{pool: pool},
		Memories:   &MemoryStore{pool: pool},
		Jobs:       &JobStore{pool: pool},
		Runs:       &RunStore{pool: pool},
	}
}
