package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"sudohumans/api/internal/validation"
)

// CreateCollective validates the name and inserts the document as given.
func (h HandlerSet) CreateCollective(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}

	errs := validation.Apply(c.Request.Context(), body,
		validation.Field("name",
			validation.Required("Name is required."),
			validation.MinLen(3, "Name is too short."),
			validation.MaxLen(16, "Name is too long."),
		),
	)
	if len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	doc := bson.M{}
	for k, v := range body {
		if k == "_id" || k == "rev" {
			continue
		}
		doc[k] = v
	}

	res, err := h.collectives.Insert(c.Request.Context(), doc)
	if err != nil {
		storeError(c, err, "collectives not found")
		return
	}
	c.JSON(http.StatusOK, createdDocument(doc, res))
}

func (h HandlerSet) ListCollectives(c *gin.Context) {
	docs, err := h.collectives.List(c.Request.Context())
	if err != nil {
		storeError(c, err, "collectives not found")
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h HandlerSet) GetCollective(c *gin.Context) {
	doc, err := h.collectives.Get(c.Request.Context(), c.Param("collectiveId"))
	if err != nil {
		storeError(c, err, "Collective ID Not Found")
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h HandlerSet) UpdateCollective(c *gin.Context) {
	rev, ok := requireRev(c)
	if !ok {
		return
	}
	body, ok := bindBody(c)
	if !ok {
		return
	}

	res, err := h.collectives.Update(c.Request.Context(), c.Param("collectiveId"), rev, bson.M(body))
	if err != nil {
		storeError(c, err, "Collective ID Not Found")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h HandlerSet) DeleteCollective(c *gin.Context) {
	rev, ok := requireRev(c)
	if !ok {
		return
	}

	res, err := h.collectives.Delete(c.Request.Context(), c.Param("collectiveId"), rev)
	if err != nil {
		storeError(c, err, "Collective ID Not Found")
		return
	}
	c.JSON(http.StatusOK, res)
}
