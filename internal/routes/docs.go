package routes

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/baberlabs/chatr-sub000/internal/config"
)

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    body { margin: 0 auto; max-width: 960px; padding: 32px 20px; font-family: Georgia, serif; color: #132019; }
    h1 { margin: 0 0 8px; }
    p { color: #536258; line-height: 1.6; }
    pre { padding: 20px; overflow: auto; border-radius: 10px; background: #0f172a; color: #e2e8f0; font-size: 0.9rem; line-height: 1.5; }
    code { background: #eef1ed; padding: 1px 5px; border-radius: 4px; }
  </style>
</head>
<body>
  <h1>{{ .Title }}</h1>
  <p>The OpenAPI spec is served from the same origin at <code>/docs/openapi.yaml</code>.
     The realtime surface is a websocket at <code>/api/v1/ws</code> carrying
     <code>{event, data}</code> frames and is not described by OpenAPI.
     This page is exposed in development only. Loaded at {{ .LoadedAt }}.</p>
  <pre>{{ .Spec }}</pre>
</body>
</html>
`

const openAPISpec = `openapi: 3.0.3
info:
  title: chatr API
  description: One-on-one realtime chat. REST owns persistence; the websocket relays live events.
  version: 1.0.0
paths:
  /api/auth/register:
    post:
      summary: Create an account and return a session token
  /api/auth/login:
    post:
      summary: Authenticate and return a session token
  /api/auth/me:
    get:
      summary: Return the authenticated user
  /api/v1/users:
    get:
      summary: List all users except the caller
  /api/v1/users/profile:
    put:
      summary: Update display name and avatar
    delete:
      summary: Delete the account and its chats
  /api/v1/chats:
    get:
      summary: List the caller's chats, most recently active first
    post:
      summary: Create (or return the existing) chat with a partner
  /api/v1/chats/{id}/messages:
    get:
      summary: Page through a chat's messages in creation order
    post:
      summary: Persist a message and advance the chat's latest-message pointer
  /api/v1/messages/{id}:
    delete:
      summary: Delete an own message and recompute the chat's latest-message pointer
components:
  securitySchemes:
    bearerAuth:
      type: http
      scheme: bearer
      bearerFormat: JWT
security:
  - bearerAuth: []
`

type docsPageData struct {
	Title    string
	LoadedAt string
	Spec     string
}

// registerDocsRoutes exposes a read-only API reference in development. The
// spec is compiled into the binary; nothing is fetched from third parties.
func registerDocsRoutes(app fiber.Router, cfg *config.Config) error {
	if !cfg.IsDevelopment() {
		return nil
	}

	indexTemplate, err := template.New("docs-index").Parse(docsIndexHTML)
	if err != nil {
		return fmt.Errorf("parse docs template: %w", err)
	}

	pageData := docsPageData{
		Title:    "chatr API Docs",
		LoadedAt: time.Now().UTC().Format(time.RFC3339),
		Spec:     openAPISpec,
	}

	indexHandler := func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")

		var body bytes.Buffer
		if err := indexTemplate.Execute(&body, pageData); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render api docs")
		}

		return c.Status(fiber.StatusOK).Send(body.Bytes())
	}

	app.Get("/docs", indexHandler)
	app.Get("/docs/", indexHandler)
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, "application/yaml; charset=utf-8")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="openapi.yaml"`)
		return c.Status(fiber.StatusOK).SendString(openAPISpec)
	})

	return nil
}

func applyDocsBaseHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("X-Robots-Tag", "noindex, nofollow")
}
