// Package postgres binds §6.4's ConfigStore interface to Postgres,
// storing the deployed MatcherConfig and in-progress drafts as JSONB
// columns. It is one possible binding, not a redesign of the
// draft/store format, which remains the caller's concern.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"

	"github.com/tornadohq/tornado/internal/configstore"
	dbpostgres "github.com/tornadohq/tornado/internal/database/postgres"
	"github.com/tornadohq/tornado/internal/matcherconfig"
)

// draftCacheSize bounds the in-memory L1 draft cache. Drafts are small
// and short-lived, so a modest size comfortably covers a typical set of
// concurrently-edited drafts without unbounded growth.
const draftCacheSize = 128

// Store implements configstore.Store against a Postgres connection pool.
// GetDraft reads are fronted by an in-memory LRU cache, since the editor
// UI this binding serves re-fetches the same draft repeatedly while a
// user edits it.
type Store struct {
	pool   dbpostgres.Connection
	retry  *dbpostgres.RetryExecutor
	logger *slog.Logger

	drafts *lru.Cache[string, configstore.Draft]
}

// New constructs a Store. pool must already be connected.
func New(pool dbpostgres.Connection, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	drafts, err := lru.New[string, configstore.Draft](draftCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which draftCacheSize never is.
		panic(fmt.Sprintf("configstore/postgres: draft cache: %v", err))
	}
	return &Store{
		pool:   pool,
		retry:  dbpostgres.NewRetryExecutor(dbpostgres.DefaultRetryConfig(), logger),
		logger: logger,
		drafts: drafts,
	}
}

var _ configstore.Store = (*Store)(nil)

// GetConfig returns the currently deployed MatcherConfig, or
// dbpostgres.ErrNoDeployedConfig if nothing has ever been deployed.
func (s *Store) GetConfig(ctx context.Context) (*matcherconfig.Node, error) {
	var raw []byte
	err := s.retry.Execute(ctx, func() error {
		row := s.pool.QueryRow(ctx, `SELECT config FROM deployed_config WHERE id = 1`)
		err := row.Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return dbpostgres.ErrNoDeployedConfig
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return matcherconfig.ParseJSON(raw)
}

// GetDrafts lists every draft id, oldest first.
func (s *Store) GetDrafts(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.retry.Execute(ctx, func() error {
		ids = nil
		rows, err := s.pool.Query(ctx, `SELECT id FROM draft ORDER BY updated_at`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// GetDraft returns one draft by id, or dbpostgres.ErrDraftNotFound.
func (s *Store) GetDraft(ctx context.Context, id string) (configstore.Draft, error) {
	if d, ok := s.drafts.Get(id); ok {
		return d, nil
	}

	var d configstore.Draft
	var raw []byte
	var updatedAt time.Time

	err := s.retry.Execute(ctx, func() error {
		row := s.pool.QueryRow(ctx, `SELECT id, owner, config, updated_at FROM draft WHERE id = $1`, id)
		err := row.Scan(&d.ID, &d.Owner, &raw, &updatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return dbpostgres.ErrDraftNotFound
		}
		return err
	})
	if err != nil {
		return configstore.Draft{}, err
	}

	config, err := matcherconfig.ParseJSON(raw)
	if err != nil {
		return configstore.Draft{}, fmt.Errorf("configstore/postgres: decode draft %q: %w", id, err)
	}
	d.Config = config
	d.UpdatedAt = updatedAt.Unix()
	s.drafts.Add(id, d)
	return d, nil
}

// CreateDraft starts a new draft owned by owner, seeded from the
// currently deployed config (or an empty ruleset when none exists),
// returning the new draft's id.
func (s *Store) CreateDraft(ctx context.Context, owner string) (string, error) {
	seed, err := s.GetConfig(ctx)
	if err != nil {
		if !errors.Is(err, dbpostgres.ErrNoDeployedConfig) {
			return "", err
		}
		seed = &matcherconfig.Node{Kind: matcherconfig.KindRuleset, Name: "root"}
	}

	raw, err := marshalConfig(seed)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	err = s.retry.Execute(ctx, func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO draft (id, owner, config, updated_at) VALUES ($1, $2, $3, now())`,
			id, owner, raw)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateDraft overwrites draft id's config, scoped to owner so one
// user cannot silently clobber another's in-progress draft.
func (s *Store) UpdateDraft(ctx context.Context, id, owner string, config *matcherconfig.Node) error {
	raw, err := marshalConfig(config)
	if err != nil {
		return err
	}

	err = s.retry.Execute(ctx, func() error {
		tag, err := s.pool.Exec(ctx,
			`UPDATE draft SET config = $1, updated_at = now() WHERE id = $2 AND owner = $3`,
			raw, id, owner)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return dbpostgres.ErrDraftNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.drafts.Remove(id)
	return nil
}

// DeployDraft promotes draft id's config to the deployed config inside
// a transaction, returning the newly deployed config. The draft row is
// left in place: deploying does not discard a draft.
func (s *Store) DeployDraft(ctx context.Context, id string) (*matcherconfig.Node, error) {
	draft, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := marshalConfig(draft.Config)
	if err != nil {
		return nil, err
	}

	err = s.retry.Execute(ctx, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx, `
			INSERT INTO deployed_config (id, config, deployed_at) VALUES (1, $1, now())
			ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config, deployed_at = EXCLUDED.deployed_at`,
			raw)
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	s.drafts.Remove(id)
	s.logger.Info("configstore/postgres: deployed draft", "draft_id", id)
	return draft.Config, nil
}

// DeleteDraft discards draft id without deploying it.
func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	err := s.retry.Execute(ctx, func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM draft WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return dbpostgres.ErrDraftNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.drafts.Remove(id)
	return nil
}

func marshalConfig(n *matcherconfig.Node) ([]byte, error) {
	raw, err := n.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("configstore/postgres: encode config: %w", err)
	}
	return raw, nil
}
