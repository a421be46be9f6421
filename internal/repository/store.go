package repository

import (
	"context"

	"sudohumans/api/internal/docstore"
)

// Store is the slice of the document store the repositories depend on.
// *docstore.Client satisfies it.
type Store interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string) error
	Collection(name string) docstore.Collection
}
