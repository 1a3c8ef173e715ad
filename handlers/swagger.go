package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the store.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>jsonstash Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "jsonstash", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "string" } } },
      "Key": { "type": "object", "properties": { "key": { "type": "string", "example": "user_20240102_030405" } } },
      "Change": { "type": "object", "properties": { "path": {"type":"string"}, "kind": {"type":"string","enum":["added","removed","changed","type_changed"]}, "old": {}, "new": {} } }
    }
  },
  "paths": {
    "/api/v1/documents": {
      "get": { "summary": "List keys and prefix groups", "responses": { "200": { "description": "keys and groups" } } },
      "post": {
        "summary": "Store a JSON object under a generated key",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object" } } } },
        "responses": { "201": { "description": "stored", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Key" } } } }, "400": { "description": "invalid JSON" }, "413": { "description": "body too large" } }
      }
    },
    "/api/v1/documents/{key}": {
      "parameters": [ { "name": "key", "in": "path", "required": true, "schema": { "type": "string" } } ],
      "get": { "summary": "Fetch a stored document", "responses": { "200": { "description": "the document" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a document (idempotent)", "responses": { "204": { "description": "deleted or absent" } } }
    },
    "/api/v1/diff": {
      "get": {
        "summary": "Structural, array-order-insensitive diff of two documents",
        "parameters": [
          { "name": "a", "in": "query", "required": true, "schema": { "type": "string" } },
          { "name": "b", "in": "query", "required": true, "schema": { "type": "string" } }
        ],
        "responses": { "200": { "description": "changes" }, "400": { "description": "a or b missing" }, "404": { "description": "key not found" } }
      }
    },
    "/post-json": { "post": { "summary": "Store from the index form (json_data) or a JSON body", "responses": { "201": { "description": "stored (JSON body)" }, "303": { "description": "stored (form)" }, "400": { "description": "invalid JSON" } } } },
    "/delete-json/{key}": { "post": { "summary": "Delete from the index page", "responses": { "303": { "description": "redirect to /" } } } },
    "/compare": { "post": { "summary": "HTML diff page for form fields key_a and key_b", "responses": { "200": { "description": "diff page" }, "404": { "description": "key not found" } } } },
    "/{key}": { "get": { "summary": "Fetch a stored document", "responses": { "200": { "description": "the document" }, "404": { "description": "not found" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
