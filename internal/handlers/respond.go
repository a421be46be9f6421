package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudohumans/api/internal/docstore"
	"sudohumans/api/internal/validation"
)

// Error responses go out as application/problem+json so clients can tell them
// apart from success bodies by content type alone.
const problemContentType = "application/problem+json"

const revHeader = "x-document-rev"

func problem(c *gin.Context, status int, body any) {
	c.Header("Content-Type", problemContentType)
	c.JSON(status, body)
}

func validationFailed(c *gin.Context, errs []validation.FieldError) {
	problem(c, http.StatusBadRequest, gin.H{"errors": errs})
}

func bindBody(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		problem(c, http.StatusBadRequest, gin.H{"errors": []validation.FieldError{
			{Field: "body", Message: "request body must be a JSON object."},
		}})
		return nil, false
	}
	return body, true
}

// requireRev pulls the revision token header off a mutating request. Its
// absence is a 400 before anything touches the store.
func requireRev(c *gin.Context) (string, bool) {
	rev := c.GetHeader(revHeader)
	if rev == "" {
		problem(c, http.StatusBadRequest, gin.H{"error": "rev header required"})
		return "", false
	}
	return rev, true
}

// createdDocument merges the store-assigned identifier and revision into the
// inserted document for the response body.
func createdDocument(doc map[string]any, res docstore.Result) map[string]any {
	out := make(map[string]any, len(doc)+2)
	for k, v := range doc {
		out[k] = v
	}
	out["_id"] = res.ID
	out["rev"] = res.Rev
	return out
}

func storeError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case docstore.IsNotFound(err):
		problem(c, http.StatusNotFound, gin.H{"error": notFoundMsg})
	case docstore.IsConflict(err):
		problem(c, http.StatusConflict, gin.H{"error": docstore.DescriptionOf(err)})
	default:
		problem(c, docstore.StatusOf(err), gin.H{"error": err.Error()})
	}
}
