// Package directory resolves player identities for matchmaking.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

// Directory reads identity snapshots from storage
type Directory struct {
	storage storage.Storage
}

// New creates a Directory
func New(storage storage.Storage) *Directory {
	return &Directory{storage: storage}
}

// Lookup returns the current identity for id
func (d *Directory) Lookup(ctx context.Context, id model.PlayerID) (model.Identity, error) {
	identity, err := d.storage.GetIdentity(ctx, id)
	if err != nil {
		return model.Identity{}, unavailable(string(id), err)
	}
	return *identity, nil
}

// LookupByNick returns the identity owning nick
func (d *Directory) LookupByNick(ctx context.Context, nick string) (model.Identity, error) {
	identity, err := d.storage.GetIdentityByNick(ctx, nick)
	if err != nil {
		return model.Identity{}, unavailable(nick, err)
	}
	return *identity, nil
}

func unavailable(ref string, err error) error {
	if errors.Is(err, model.ErrPlayerNotFound) {
		return fmt.Errorf("%s: %w", ref, model.ErrIdentityUnavailable)
	}
	return fmt.Errorf("lookup %s: %w", ref, err)
}
