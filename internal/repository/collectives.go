package repository

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"sudohumans/api/internal/config"
	"sudohumans/api/internal/docstore"
	"sudohumans/api/internal/models"
)

const collectivesCollection = "collectives"

type Collectives struct {
	coll docstore.Collection
}

func NewCollectives(store Store) *Collectives {
	return &Collectives{coll: store.Collection(collectivesCollection)}
}

// BootstrapCollectives creates the collectives collection, its index, and the
// default collective when the collection is absent. Idempotent across
// restarts.
func BootstrapCollectives(ctx context.Context, store Store, cfg *config.AppConfig, log zerolog.Logger) (*Collectives, error) {
	names, err := store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	if slices.Contains(names, collectivesCollection) {
		return NewCollectives(store), nil
	}

	if err := store.CreateCollection(ctx, collectivesCollection); err != nil {
		return nil, err
	}
	coll := store.Collection(collectivesCollection)
	if err := coll.CreateIndex(ctx, docstore.Index{Fields: []string{"_id", "name"}, Name: "id-name-index"}); err != nil {
		return nil, err
	}

	seed := models.Collective{
		Name:    cfg.DefaultCollective.Name,
		Members: []string{cfg.DefaultUser.Username},
		Admins:  []string{cfg.DefaultUser.Username},
	}
	doc, err := toDocument(seed)
	if err != nil {
		return nil, err
	}
	if _, err := coll.Insert(ctx, doc, ""); err != nil {
		return nil, err
	}
	log.Info().Str("name", seed.Name).Msg("seeded default collective")

	return &Collectives{coll: coll}, nil
}

func (r *Collectives) Insert(ctx context.Context, doc bson.M) (docstore.Result, error) {
	return r.coll.Insert(ctx, doc, "")
}

func (r *Collectives) Update(ctx context.Context, id, rev string, doc bson.M) (docstore.Result, error) {
	replacement := bson.M{}
	for k, v := range doc {
		replacement[k] = v
	}
	replacement["_id"] = id
	return r.coll.Insert(ctx, replacement, rev)
}

func (r *Collectives) Get(ctx context.Context, id string) (bson.M, error) {
	return r.coll.Get(ctx, id)
}

func (r *Collectives) List(ctx context.Context) ([]bson.M, error) {
	return r.coll.List(ctx)
}

func (r *Collectives) Delete(ctx context.Context, id, rev string) (docstore.Result, error) {
	return r.coll.Destroy(ctx, id, rev)
}

func (r *Collectives) Count(ctx context.Context) (int64, error) {
	return r.coll.Count(ctx)
}
