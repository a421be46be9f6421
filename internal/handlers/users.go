package handlers

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"sudohumans/api/internal/models"
	"sudohumans/api/internal/repository"
	"sudohumans/api/internal/security"
	"sudohumans/api/internal/validation"
)

// CreateUser handles signup. The stored document carries a hex salt and a
// derived hash; the plaintext password never reaches the store.
func (h HandlerSet) CreateUser(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	errs := validation.Apply(ctx, body,
		validation.Field("username",
			validation.Required("username is required."),
			validation.MinLen(3, "username is too short."),
			validation.MaxLen(16, "username is too long."),
			validation.Unique(func(ctx context.Context, value string) (bool, error) {
				return h.users.FieldInUse(ctx, "username", value)
			}, "username already in use."),
		),
		validation.Field("password",
			validation.Required("password is required."),
			validation.MinLen(6, "password is too short."),
		),
		validation.Field("email",
			validation.Required("email is required."),
			validation.Email("email must valid address."),
			validation.Unique(func(ctx context.Context, value string) (bool, error) {
				return h.users.FieldInUse(ctx, "email", value)
			}, "email already in use."),
		),
		validation.Field("visibility",
			validation.Required("visibility is required."),
			validation.OneOf(models.Visibilities, "visibility must be 'everyone', 'accounts' or 'members'"),
		),
		validation.Field("collectives",
			validation.Required("collectives are required."),
			validation.MinItems(1, "collectives must not be empty."),
			validation.EachString("each collective must be a string"),
		),
		validation.Field("pronouns",
			validation.Required("pronouns are required."),
			validation.OneOf(models.PronounOptions, "pronouns must be 'He/Him', 'She/Her' or 'They/Them'"),
		),
		validation.Field("fullName",
			validation.Required("fullName is required."),
			validation.MinLen(3, "fullName is too short."),
			validation.MaxLen(30, "fullName is too long."),
		),
	)
	if len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	salt, err := security.NewSalt()
	if err != nil {
		problem(c, http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	password, _ := body["password"].(string)
	now := time.Now().Format(repository.DateLayout)

	doc := bson.M{}
	for k, v := range body {
		if k == "password" || k == "_id" || k == "rev" {
			continue
		}
		doc[k] = v
	}
	doc["createdAt"] = now
	doc["updatedAt"] = now
	doc["hash"] = security.HashPassword(salt, password)
	doc["salt"] = hex.EncodeToString(salt)

	res, err := h.users.Insert(ctx, doc)
	if err != nil {
		storeError(c, err, "users not found")
		return
	}

	created := createdDocument(doc, res)
	delete(created, "hash")
	delete(created, "salt")
	c.JSON(http.StatusOK, created)
}

// ListUsers returns every user projected to the safe field subset.
func (h HandlerSet) ListUsers(c *gin.Context) {
	docs, err := h.users.ListPublic(c.Request.Context())
	if err != nil {
		storeError(c, err, "users not found")
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h HandlerSet) GetUser(c *gin.Context) {
	doc, err := h.users.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		storeError(c, err, "User ID Not Found")
		return
	}
	delete(doc, "hash")
	delete(doc, "salt")
	c.JSON(http.StatusOK, doc)
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	rev, ok := requireRev(c)
	if !ok {
		return
	}
	body, ok := bindBody(c)
	if !ok {
		return
	}

	res, err := h.users.Update(c.Request.Context(), c.Param("userId"), rev, bson.M(body))
	if err != nil {
		storeError(c, err, "User ID Not Found")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	rev, ok := requireRev(c)
	if !ok {
		return
	}

	res, err := h.users.Delete(c.Request.Context(), c.Param("userId"), rev)
	if err != nil {
		storeError(c, err, "User ID Not Found")
		return
	}
	c.JSON(http.StatusOK, res)
}
