package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"sudohumans/api/internal/config"
	"sudohumans/api/internal/docstore"
	"sudohumans/api/internal/models"
	"sudohumans/api/internal/security"
	"sudohumans/api/internal/service"
)

// memStore is an in-memory stand-in for a docstore-backed repository. It
// implements both UserStore and CollectiveStore and counts mutating calls so
// tests can assert a request never reached the store.
type memStore struct {
	docs      map[string]bson.M
	mutations int
	reads     int
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]bson.M{}}
}

func (m *memStore) put(doc bson.M) string {
	id := fmt.Sprintf("doc-%d", len(m.docs)+1)
	stored := bson.M{"_id": id, "rev": "1-seed"}
	for k, v := range doc {
		stored[k] = v
	}
	m.docs[id] = stored
	return id
}

func (m *memStore) Insert(_ context.Context, doc bson.M) (docstore.Result, error) {
	m.mutations++
	id := m.put(doc)
	return docstore.Result{OK: true, ID: id, Rev: m.docs[id]["rev"].(string)}, nil
}

func (m *memStore) Update(_ context.Context, id, rev string, doc bson.M) (docstore.Result, error) {
	m.mutations++
	cur, ok := m.docs[id]
	if !ok || cur["rev"] != rev {
		return docstore.Result{}, &docstore.StatusError{Code: http.StatusConflict, Description: "Document update conflict."}
	}
	next := "2-bumped"
	stored := bson.M{"_id": id, "rev": next}
	for k, v := range doc {
		if k == "_id" || k == "rev" {
			continue
		}
		stored[k] = v
	}
	m.docs[id] = stored
	return docstore.Result{OK: true, ID: id, Rev: next}, nil
}

func (m *memStore) Get(_ context.Context, id string) (bson.M, error) {
	m.reads++
	doc, ok := m.docs[id]
	if !ok {
		return nil, &docstore.StatusError{Code: http.StatusNotFound, Description: "document " + id + " not found"}
	}
	out := bson.M{}
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) List(_ context.Context) ([]bson.M, error) {
	m.reads++
	out := []bson.M{}
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (m *memStore) ListPublic(_ context.Context) ([]bson.M, error) {
	m.reads++
	out := []bson.M{}
	for _, doc := range m.docs {
		proj := bson.M{}
		for _, f := range models.PublicUserFields {
			if v, ok := doc[f]; ok {
				proj[f] = v
			}
		}
		out = append(out, proj)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id, rev string) (docstore.Result, error) {
	m.mutations++
	cur, ok := m.docs[id]
	if !ok {
		return docstore.Result{}, &docstore.StatusError{Code: http.StatusNotFound, Description: "document " + id + " not found"}
	}
	if cur["rev"] != rev {
		return docstore.Result{}, &docstore.StatusError{Code: http.StatusConflict, Description: "Document update conflict."}
	}
	delete(m.docs, id)
	return docstore.Result{OK: true, ID: id, Rev: rev}, nil
}

func (m *memStore) FieldInUse(_ context.Context, field, value string) (bool, error) {
	for _, doc := range m.docs {
		if doc[field] == value {
			return true, nil
		}
	}
	return false, nil
}

type fakeAuth struct {
	token string
	err   error
}

func (f fakeAuth) Login(context.Context, string, string) (string, error) {
	return f.token, f.err
}

const testJWTSecret = "handlers-secret"

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret: testJWTSecret,
			JWTExpiry: time.Hour,
		},
		DefaultUser:       config.DefaultUser{Username: "admin"},
		DefaultCollective: config.DefaultCollective{Name: "Sudo Room"},
	}
}

func newTestRouter(users UserStore, collectives CollectiveStore, auth Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := HandlerSet{
		log:         zerolog.Nop(),
		cfg:         testAppConfig(),
		auth:        auth,
		users:       users,
		collectives: collectives,
	}

	engine := gin.New()
	h.Register(engine.Group("/api"))
	return engine
}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := security.GenerateToken(testJWTSecret, models.User{ID: "a1", Username: "admin"}, time.Hour)
	require.NoError(t, err)
	return tok
}

func doJSON(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validSignup() map[string]any {
	return map[string]any{
		"username":    "marcy",
		"password":    "secret1",
		"email":       "marcy@example.com",
		"visibility":  "everyone",
		"collectives": []string{"Sudo Room"},
		"pronouns":    "They/Them",
		"fullName":    "Marcy Park",
	}
}

func TestCreateUser_ShortUsername(t *testing.T) {
	t.Parallel()

	users := newMemStore()
	r := newTestRouter(users, newMemStore(), fakeAuth{})

	body := validSignup()
	body["username"] = "ab"
	body["fullName"] = "Ann Lee"

	w := doJSON(r, http.MethodPost, "/api/v1/users", body, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/problem+json"))

	var resp struct {
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "username", resp.Errors[0].Field)
	assert.Equal(t, "username is too short.", resp.Errors[0].Message)
	assert.Zero(t, users.mutations, "invalid signup must not hit the store")
}

func TestCreateUser_NeverStoresPlaintextPassword(t *testing.T) {
	t.Parallel()

	users := newMemStore()
	r := newTestRouter(users, newMemStore(), fakeAuth{})

	w := doJSON(r, http.MethodPost, "/api/v1/users", validSignup(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, users.docs, 1)
	for _, doc := range users.docs {
		_, hasPassword := doc["password"]
		assert.False(t, hasPassword, "stored document carries the plaintext password")
		assert.NotEmpty(t, doc["hash"])
		assert.NotEmpty(t, doc["salt"])
		assert.NotEmpty(t, doc["createdAt"])
		assert.NotEmpty(t, doc["updatedAt"])
	}

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["_id"])
	assert.NotEmpty(t, resp["rev"])
	assert.NotContains(t, resp, "hash")
	assert.NotContains(t, resp, "salt")
	assert.NotContains(t, resp, "password")
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	t.Parallel()

	users := newMemStore()
	users.put(bson.M{"username": "marcy", "email": "other@example.com"})
	r := newTestRouter(users, newMemStore(), fakeAuth{})

	w := doJSON(r, http.MethodPost, "/api/v1/users", validSignup(), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username already in use.")
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(newMemStore(), newMemStore(), fakeAuth{token: "signed-token"})

		w := doJSON(r, http.MethodPost, "/api/v1/authenticate", map[string]any{
			"username": "marcy",
			"password": "secret1",
		}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "signed-token", resp["token"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(newMemStore(), newMemStore(), fakeAuth{err: service.ErrInvalidCredentials})

		w := doJSON(r, http.MethodPost, "/api/v1/authenticate", map[string]any{
			"username": "marcy",
			"password": "wrong",
		}, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "not authorized")
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(newMemStore(), newMemStore(), fakeAuth{token: "unused"})

		w := doJSON(r, http.MethodPost, "/api/v1/authenticate", map[string]any{}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Name is required.")
		assert.Contains(t, w.Body.String(), "Password is required.")
	})
}

func TestListUsers_RequiresAdmin(t *testing.T) {
	t.Parallel()

	users := newMemStore()
	users.put(bson.M{"username": "marcy", "email": "marcy@example.com", "hash": "h", "salt": "s"})

	t.Run("no token", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(users, newMemStore(), fakeAuth{})

		w := doJSON(r, http.MethodGet, "/api/v1/users", nil, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), "marcy", "user fields leaked on a denied request")
	})

	t.Run("non-admin token", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(users, newMemStore(), fakeAuth{})

		tok, err := security.GenerateToken(testJWTSecret, models.User{ID: "u2", Username: "marcy"}, time.Hour)
		require.NoError(t, err)

		w := doJSON(r, http.MethodGet, "/api/v1/users", nil, map[string]string{
			"Authorization": "Bearer " + tok,
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), "marcy@example.com")
	})

	t.Run("admin token", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(users, newMemStore(), fakeAuth{})

		w := doJSON(r, http.MethodGet, "/api/v1/users", nil, map[string]string{
			"Authorization": "Bearer " + adminToken(t),
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "marcy")
		assert.NotContains(t, w.Body.String(), `"hash"`)
		assert.NotContains(t, w.Body.String(), `"salt"`)
	})
}

func TestGetUser_StripsSecrets(t *testing.T) {
	t.Parallel()

	users := newMemStore()
	id := users.put(bson.M{"username": "marcy", "hash": "deadbeef", "salt": "cafe"})
	r := newTestRouter(users, newMemStore(), fakeAuth{})

	w := doJSON(r, http.MethodGet, "/api/v1/users/"+id, nil, map[string]string{
		"Authorization": "Bearer " + adminToken(t),
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "deadbeef")
	assert.NotContains(t, w.Body.String(), "cafe")
	assert.Contains(t, w.Body.String(), "marcy")
}

func TestUpdateUser_RevDiscipline(t *testing.T) {
	t.Parallel()

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()
		users := newMemStore()
		id := users.put(bson.M{"username": "marcy"})
		r := newTestRouter(users, newMemStore(), fakeAuth{})

		w := doJSON(r, http.MethodPut, "/api/v1/users/"+id, map[string]any{"username": "marcy2"}, map[string]string{
			"Authorization": "Bearer " + adminToken(t),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "rev header required")
		assert.Zero(t, users.mutations, "missing rev must never reach the store")
	})

	t.Run("stale rev", func(t *testing.T) {
		t.Parallel()
		users := newMemStore()
		id := users.put(bson.M{"username": "marcy"})
		r := newTestRouter(users, newMemStore(), fakeAuth{})

		w := doJSON(r, http.MethodPut, "/api/v1/users/"+id, map[string]any{"username": "marcy2"}, map[string]string{
			"Authorization":  "Bearer " + adminToken(t),
			"x-document-rev": "0-stale",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Document update conflict.")
	})

	t.Run("current rev", func(t *testing.T) {
		t.Parallel()
		users := newMemStore()
		id := users.put(bson.M{"username": "marcy"})
		r := newTestRouter(users, newMemStore(), fakeAuth{})

		w := doJSON(r, http.MethodPut, "/api/v1/users/"+id, map[string]any{"username": "marcy2"}, map[string]string{
			"Authorization":  "Bearer " + adminToken(t),
			"x-document-rev": "1-seed",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "marcy2", users.docs[id]["username"])
	})
}

func TestDeleteUser_RevDiscipline(t *testing.T) {
	t.Parallel()

	users := newMemStore()
	id := users.put(bson.M{"username": "marcy"})
	r := newTestRouter(users, newMemStore(), fakeAuth{})

	w := doJSON(r, http.MethodDelete, "/api/v1/users/"+id, nil, map[string]string{
		"Authorization": "Bearer " + adminToken(t),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, users.mutations)

	w = doJSON(r, http.MethodDelete, "/api/v1/users/"+id, nil, map[string]string{
		"Authorization":  "Bearer " + adminToken(t),
		"x-document-rev": "1-seed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, users.docs)
}

func TestCollectives(t *testing.T) {
	t.Parallel()

	t.Run("create valid", func(t *testing.T) {
		t.Parallel()
		collectives := newMemStore()
		r := newTestRouter(newMemStore(), collectives, fakeAuth{})

		w := doJSON(r, http.MethodPost, "/api/v1/collectives", map[string]any{"name": "Omni Commons"}, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Omni Commons", resp["name"])
		assert.NotEmpty(t, resp["_id"])
		assert.NotEmpty(t, resp["rev"])
	})

	t.Run("create short name", func(t *testing.T) {
		t.Parallel()
		collectives := newMemStore()
		r := newTestRouter(newMemStore(), collectives, fakeAuth{})

		w := doJSON(r, http.MethodPost, "/api/v1/collectives", map[string]any{"name": "ab"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Name is too short.")
		assert.Zero(t, collectives.mutations)
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(newMemStore(), newMemStore(), fakeAuth{})

		w := doJSON(r, http.MethodGet, "/api/v1/collectives/nope", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Collective ID Not Found")
	})

	t.Run("update stale rev", func(t *testing.T) {
		t.Parallel()
		collectives := newMemStore()
		id := collectives.put(bson.M{"name": "Sudo Room"})
		r := newTestRouter(newMemStore(), collectives, fakeAuth{})

		w := doJSON(r, http.MethodPut, "/api/v1/collectives/"+id, map[string]any{"name": "Sudo Room 2"}, map[string]string{
			"x-document-rev": "0-stale",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Document update conflict.")
	})

	t.Run("delete missing rev", func(t *testing.T) {
		t.Parallel()
		collectives := newMemStore()
		id := collectives.put(bson.M{"name": "Sudo Room"})
		r := newTestRouter(newMemStore(), collectives, fakeAuth{})

		w := doJSON(r, http.MethodDelete, "/api/v1/collectives/"+id, nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, collectives.mutations)
	})

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		collectives := newMemStore()
		collectives.put(bson.M{"name": "Sudo Room"})
		collectives.put(bson.M{"name": "Omni Commons"})
		r := newTestRouter(newMemStore(), collectives, fakeAuth{})

		w := doJSON(r, http.MethodGet, "/api/v1/collectives", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp, 2)
	})
}
