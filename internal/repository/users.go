package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"sudohumans/api/internal/config"
	"sudohumans/api/internal/docstore"
	"sudohumans/api/internal/models"
	"sudohumans/api/internal/security"
)

const usersCollection = "users"

// DateLayout is the day-granularity stamp used on created/updated fields.
const DateLayout = "2006-01-02"

var ErrUserNotFound = errors.New("user not found")

type Users struct {
	coll docstore.Collection
}

func NewUsers(store Store) *Users {
	return &Users{coll: store.Collection(usersCollection)}
}

// BootstrapUsers creates the users collection, its indexes, and the default
// admin account, but only when the collection does not exist yet. Running it
// against an already bootstrapped store is a no-op.
func BootstrapUsers(ctx context.Context, store Store, cfg *config.AppConfig, log zerolog.Logger) (*Users, error) {
	names, err := store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	if slices.Contains(names, usersCollection) {
		return NewUsers(store), nil
	}

	if err := store.CreateCollection(ctx, usersCollection); err != nil {
		return nil, err
	}
	coll := store.Collection(usersCollection)
	if err := coll.CreateIndex(ctx, docstore.Index{Fields: []string{"_id"}, Name: "user-by-id"}); err != nil {
		return nil, err
	}
	if err := coll.CreateIndex(ctx, docstore.Index{Fields: []string{"username"}, Name: "user-by-username"}); err != nil {
		return nil, err
	}

	salt, err := security.NewSalt()
	if err != nil {
		return nil, err
	}
	now := time.Now().Format(DateLayout)
	admin := models.User{
		Username:    cfg.DefaultUser.Username,
		Email:       cfg.DefaultUser.Email,
		Visibility:  cfg.DefaultUser.Visibility,
		Collectives: []string{cfg.DefaultCollective.Name},
		Pronouns:    cfg.DefaultUser.Pronouns,
		FullName:    cfg.DefaultUser.FullName,
		CreatedAt:   now,
		UpdatedAt:   now,
		Hash:        security.HashPassword(salt, cfg.DefaultUser.Password),
		Salt:        fmt.Sprintf("%x", salt),
	}
	doc, err := toDocument(admin)
	if err != nil {
		return nil, err
	}
	if _, err := coll.Insert(ctx, doc, ""); err != nil {
		return nil, err
	}
	log.Info().Str("username", admin.Username).Msg("seeded default admin user")

	return &Users{coll: coll}, nil
}

func (r *Users) Insert(ctx context.Context, doc bson.M) (docstore.Result, error) {
	return r.coll.Insert(ctx, doc, "")
}

func (r *Users) Update(ctx context.Context, id, rev string, doc bson.M) (docstore.Result, error) {
	replacement := bson.M{}
	for k, v := range doc {
		replacement[k] = v
	}
	replacement["_id"] = id
	return r.coll.Insert(ctx, replacement, rev)
}

func (r *Users) Get(ctx context.Context, id string) (bson.M, error) {
	return r.coll.Get(ctx, id)
}

// ListPublic returns every user projected down to the safe field subset; hash
// and salt never leave the store through this path.
func (r *Users) ListPublic(ctx context.Context) ([]bson.M, error) {
	return r.coll.Find(ctx, bson.M{}, models.PublicUserFields)
}

func (r *Users) Delete(ctx context.Context, id, rev string) (docstore.Result, error) {
	return r.coll.Destroy(ctx, id, rev)
}

func (r *Users) FindByUsername(ctx context.Context, username string) (models.User, error) {
	docs, err := r.coll.Find(ctx, bson.M{"username": bson.M{"$eq": username}}, nil)
	if err != nil {
		return models.User{}, err
	}
	if len(docs) == 0 {
		return models.User{}, ErrUserNotFound
	}
	var user models.User
	if err := fromDocument(docs[0], &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// FieldInUse reports whether any user document already carries value in the
// given field. It never excludes a particular document from the match.
func (r *Users) FieldInUse(ctx context.Context, field, value string) (bool, error) {
	docs, err := r.coll.Find(ctx, bson.M{field: bson.M{"$eq": value}}, []string{"_id"})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func (r *Users) Count(ctx context.Context) (int64, error) {
	return r.coll.Count(ctx)
}

func toDocument(v any) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

func fromDocument(doc bson.M, out any) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := bson.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
