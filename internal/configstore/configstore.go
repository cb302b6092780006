// Package configstore defines §6.4's ConfigStore interface: the engine's
// only collaborator for reading and managing MatcherConfig drafts. The
// store's persistence format is explicitly out of scope for the core
// (§1); internal/configstore/postgres provides one binding.
package configstore

import (
	"context"

	"github.com/tornadohq/tornado/internal/matcherconfig"
)

// Draft is a MatcherConfig in progress, identified by ID and owned by a
// user until deployed. It carries no version number.
type Draft struct {
	ID        string
	Owner     string
	Config    *matcherconfig.Node
	UpdatedAt int64
}

// Store is §6.4's external ConfigStore interface.
type Store interface {
	// GetConfig returns the currently deployed MatcherConfig.
	GetConfig(ctx context.Context) (*matcherconfig.Node, error)
	// GetDrafts lists every draft id.
	GetDrafts(ctx context.Context) ([]string, error)
	// GetDraft returns one draft by id.
	GetDraft(ctx context.Context, id string) (Draft, error)
	// CreateDraft starts a new draft owned by user, returning its id.
	CreateDraft(ctx context.Context, owner string) (string, error)
	// UpdateDraft overwrites a draft's config.
	UpdateDraft(ctx context.Context, id, owner string, config *matcherconfig.Node) error
	// DeployDraft promotes a draft to the deployed config, returning it.
	DeployDraft(ctx context.Context, id string) (*matcherconfig.Node, error)
	// DeleteDraft discards a draft without deploying it.
	DeleteDraft(ctx context.Context, id string) error
}
