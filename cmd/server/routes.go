package main

import (
	"log/slog"
	"net/http"
	"time"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/assistant"
	"go-site-builder/internal/auth"
	"go-site-builder/internal/catalog"
	"go-site-builder/internal/events"
	"go-site-builder/internal/metrics"
	"go-site-builder/internal/templating"
	"go-site-builder/internal/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// application holds the application-wide dependencies of the API server.
type application struct {
	logger     *slog.Logger
	workspaces *workspace.Registry
	catalog    *catalog.Catalog
	metrics    *metrics.Metrics
	verifier   *auth.Verifier
	assistant  assistant.Generator
	bus        events.Bus
	objects    assets.ObjectStore
	renderer   *templating.Engine
}

// routes sets up the HTTP router.
func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.metrics.Middleware)

	r.Get("/healthz", app.healthHandler)
	r.Handle("/metrics", app.metrics.Handler())
	if mem, ok := app.objects.(*assets.MemoryStore); ok {
		r.Get("/files/{bucket}/*", app.memoryFileHandler(mem))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(app.verifier, app.logger))

		// Event streams stay open; everything else is bounded.
		r.Get("/projects/{projectID}/events", app.projectEventsHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Library catalog
			r.Get("/library", app.libraryListHandler)
			r.Get("/library/categories", app.libraryCategoriesHandler)
			r.Post("/library", app.libraryCreateHandler)
			r.Put("/library/{itemID}", app.libraryUpdateHandler)
			r.Delete("/library/{itemID}", app.libraryDeleteHandler)

			// Starter templates
			r.Get("/templates", app.templateListHandler)
			r.Get("/templates/{templateID}", app.templateGetHandler)

			// Projects
			r.Get("/projects", app.projectListHandler)
			r.Post("/projects", app.projectCreateHandler)
			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Get("/", app.projectGetHandler)
				r.Patch("/", app.projectUpdateHandler)
				r.Delete("/", app.projectDeleteHandler)
				r.Post("/publish", app.projectPublishHandler)
				r.Delete("/publish", app.projectUnpublishHandler)

				r.Post("/assets", app.assetUploadHandler)
				r.Post("/assets/link", app.assetLinkHandler)
				r.Delete("/assets/{assetID}", app.assetDeleteHandler)

				r.Post("/pages", app.pageCreateHandler)
				r.Route("/pages/{pageID}", func(r chi.Router) {
					r.Get("/", app.pageGetHandler)
					r.Get("/preview", app.pagePreviewHandler)
					r.Patch("/", app.pageUpdateHandler)
					r.Delete("/", app.pageDeleteHandler)

					r.Post("/components", app.componentCreateHandler)
					r.Patch("/components/{componentID}", app.componentUpdateHandler)
					r.Delete("/components/{componentID}", app.componentDeleteHandler)
					r.Post("/components/{componentID}/move", app.componentMoveHandler)
				})
			})

			// Editor state of the caller's workspace
			r.Route("/editor", func(r chi.Router) {
				r.Get("/", app.editorStateHandler)
				r.Post("/select", app.editorSelectHandler)
				r.Post("/hover", app.editorHoverHandler)
				r.Post("/drag", app.editorDragHandler)
				r.Post("/zoom", app.editorZoomHandler)
				r.Post("/grid", app.editorToggleHandler)
				r.Post("/outlines", app.editorToggleHandler)
				r.Post("/preview", app.editorToggleHandler)
				r.Post("/responsive", app.editorResponsiveHandler)
				r.Post("/undo", app.editorUndoHandler)
				r.Post("/redo", app.editorRedoHandler)
			})

			r.Post("/assistant", app.assistantHandler)
		})
	})

	return r
}
