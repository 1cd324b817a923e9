// Package swagger serves the API reference for the report endpoints.
package swagger

import (
	"context"
	"net/http"
)

const (
	docsPath = "/api-docs"
	specPath = "/openapi.yaml"
)

// Register adds GET /api-docs, a ReDoc page, and GET /openapi.yaml, the
// embedded document it renders.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET "+docsPath, serve("text/html; charset=utf-8", []byte(redocPage)))
	mux.HandleFunc("GET "+specPath, serve("application/yaml; charset=utf-8", OpenAPI))
}

func serve(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(body)
	}
}

// redocPage pulls ReDoc from its CDN and points it at specPath.
const redocPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>dedidash API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('` + specPath + `', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
