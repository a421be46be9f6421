package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudohumans/api/internal/docs"
)

// Explorer serves the interactive API documentation.
func (h HandlerSet) Explorer(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docs.ExplorerPage))
}

func (h HandlerSet) ExplorerDocument(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", docs.OpenAPI)
}
