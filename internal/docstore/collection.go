package docstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/ksuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const revField = "rev"

// Collection is a handle on one named collection. Every document it stores
// carries a revision token; mutations must present the current token and a
// stale one is rejected as a conflict.
type Collection interface {
	Name() string
	CreateIndex(ctx context.Context, idx Index) error
	Insert(ctx context.Context, doc bson.M, rev string) (Result, error)
	Get(ctx context.Context, id string) (bson.M, error)
	Find(ctx context.Context, selector bson.M, fields []string) ([]bson.M, error)
	List(ctx context.Context) ([]bson.M, error)
	Destroy(ctx context.Context, id, rev string) (Result, error)
	Count(ctx context.Context) (int64, error)
}

type collection struct {
	name string
	coll *mongo.Collection
}

func (c *collection) Name() string { return c.name }

// Index describes a secondary index over one or more document fields.
type Index struct {
	Fields []string
	Name   string
}

func (c *collection) CreateIndex(ctx context.Context, idx Index) error {
	keys := bson.D{}
	for _, f := range idx.Fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	model := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(idx.Name),
	}
	if _, err := c.coll.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create index %s on %s: %w", idx.Name, c.name, err)
	}
	return nil
}

// Result is the acknowledgement returned for a successful mutation.
type Result struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// Insert stores doc. With an empty rev it creates a new document, assigning an
// identifier and an initial revision. With a rev it replaces the document that
// currently carries that exact revision; presenting a stale revision yields a
// 409 conflict.
func (c *collection) Insert(ctx context.Context, doc bson.M, rev string) (Result, error) {
	stored := bson.M{}
	for k, v := range doc {
		stored[k] = v
	}

	if rev == "" {
		id, _ := stored["_id"].(string)
		if id == "" {
			id = ksuid.New().String()
		}
		stored["_id"] = id
		stored[revField] = newRev(1)
		if _, err := c.coll.InsertOne(ctx, stored); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return Result{}, conflict()
			}
			return Result{}, fmt.Errorf("insert into %s: %w", c.name, err)
		}
		return Result{OK: true, ID: id, Rev: stored[revField].(string)}, nil
	}

	id, _ := stored["_id"].(string)
	if id == "" {
		return Result{}, conflict()
	}
	next, err := bumpRev(rev)
	if err != nil {
		return Result{}, conflict()
	}
	stored[revField] = next

	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id, revField: rev}, stored)
	if err != nil {
		return Result{}, fmt.Errorf("replace in %s: %w", c.name, err)
	}
	if res.MatchedCount == 0 {
		// Either the document moved past the presented revision or it never
		// existed; both read as a conflict, matching the store contract.
		return Result{}, conflict()
	}
	return Result{OK: true, ID: id, Rev: next}, nil
}

// Get fetches a document by identifier.
func (c *collection) Get(ctx context.Context, id string) (bson.M, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, notFound("document " + id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", id, c.name, err)
	}
	return doc, nil
}

// Find returns the documents matching selector. A non-empty fields list
// projects each document down to exactly those fields.
func (c *collection) Find(ctx context.Context, selector bson.M, fields []string) ([]bson.M, error) {
	opts := options.Find()
	if len(fields) > 0 {
		proj := bson.M{"_id": 0}
		for _, f := range fields {
			proj[f] = 1
		}
		opts.SetProjection(proj)
	}

	cur, err := c.coll.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}
	defer cur.Close(ctx)

	docs := []bson.M{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}
	return docs, nil
}

// List returns every document in the collection.
func (c *collection) List(ctx context.Context) ([]bson.M, error) {
	return c.Find(ctx, bson.M{}, nil)
}

// Destroy deletes the document with the given identifier and current
// revision. A stale revision yields a 409, an unknown identifier a 404.
func (c *collection) Destroy(ctx context.Context, id, rev string) (Result, error) {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id, revField: rev})
	if err != nil {
		return Result{}, fmt.Errorf("destroy %s in %s: %w", id, c.name, err)
	}
	if res.DeletedCount == 0 {
		// The delete and this count are not atomic: a concurrent writer can
		// remove or replace the document in between, so the 404/409 split
		// reflects the state at count time, not at delete time.
		n, err := c.coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return Result{}, fmt.Errorf("destroy %s in %s: %w", id, c.name, err)
		}
		if n > 0 {
			return Result{}, conflict()
		}
		return Result{}, notFound("document " + id)
	}
	return Result{OK: true, ID: id, Rev: rev}, nil
}

func (c *collection) Count(ctx context.Context) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

// Revision tokens follow the "generation-suffix" form. The generation is
// bumped on every successful replace so a reader holding the old token
// conflicts on its next write.
func newRev(generation int) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return strconv.Itoa(generation) + "-" + hex.EncodeToString(buf)
}

func bumpRev(rev string) (string, error) {
	gen, _, ok := strings.Cut(rev, "-")
	if !ok {
		return "", fmt.Errorf("malformed revision %q", rev)
	}
	n, err := strconv.Atoi(gen)
	if err != nil {
		return "", fmt.Errorf("malformed revision %q", rev)
	}
	return newRev(n + 1), nil
}
