package handler

import (
	"fmt"
	"net/http"
	"strings"

	"wangsammo/backend/internal/blobstore"
	"wangsammo/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// ServeMemoryObjects serves attachments held by the in-memory store under
// /storage/:bucket/*path, so development URLs resolve.
func ServeMemoryObjects(store *blobstore.MemoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		bucket := blobstore.Bucket(c.Param("bucket"))
		obj, ok := store.Get(bucket, strings.TrimPrefix(c.Param("path"), "/"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		cacheControl := obj.CacheControl
		if cacheControl == "" {
			cacheControl = fmt.Sprintf("public, max-age=%d", config.UploadCacheAge)
		}
		c.Header("Cache-Control", cacheControl)
		c.Data(http.StatusOK, obj.ContentType, obj.Data)
	}
}
