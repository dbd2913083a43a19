// Package server exposes the pipeline to the browser UI.
package server

import (
	"archive/zip"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"holiday_merch_forge/pipeline"
	"holiday_merch_forge/publisher"
)

//go:embed web/dist
var embeddedStatic embed.FS

// Publisher is the slice of the commerce client the server needs.
type Publisher interface {
	Publish(ctx context.Context, product *pipeline.FinalizedProduct) (string, error)
}

type Server struct {
	pipe     *pipeline.Pipeline
	pub      Publisher // nil when no commerce credential is configured
	store    *sessionStore
	validate *validator.Validate
	logger   *slog.Logger
	staticFS http.Handler
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*pipeline.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*pipeline.Session)}
}

func (s *sessionStore) set(sess *pipeline.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *sessionStore) get(id string) (*pipeline.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func New(pipe *pipeline.Pipeline, pub Publisher, logger *slog.Logger) (*Server, error) {
	if pipe == nil {
		return nil, errors.New("pipeline required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	sub, err := fs.Sub(embeddedStatic, "web/dist")
	if err != nil {
		return nil, err
	}
	return &Server{
		pipe:     pipe,
		pub:      pub,
		store:    newStore(),
		validate: validator.New(),
		logger:   logger,
		staticFS: http.FileServer(http.FS(sub)),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Post("/sessions", s.handleSessionCreate)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/designs", s.handleDesigns)
			r.Post("/finalize", s.handleFinalizeStart)
			r.Get("/finalize", s.handleFinalizePoll)
			r.Post("/products/{productID}/publish", s.handlePublish)
			r.Get("/download", s.handleDownload)
		})
	})
	r.NotFound(s.serveStatic)
	return r
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}
	if r.URL.Path == "/" {
		r.URL.Path = "/index.html"
	}
	s.staticFS.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// --- Handlers ---

// handleOptions serves the style and product enums so the UI stays in
// sync with the pipeline's single source of truth.
func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"styles":       pipeline.Styles,
		"productTypes": pipeline.ProductTypes,
	})
}

type sessionCreateReq struct {
	Theme       string `json:"theme" validate:"required"`
	Style       string `json:"style" validate:"required"`
	ProductType string `json:"productType" validate:"required"`
}

type sessionResp struct {
	SessionID string             `json:"session_id"`
	Theme     string             `json:"theme"`
	Style     pipeline.Style     `json:"style"`
	Concepts  []pipeline.Concept `json:"concepts"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateReq
	if !s.decodeValid(w, r, &req) {
		return
	}
	product, ok := pipeline.ParseProductType(req.ProductType)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown product type %q", req.ProductType))
		return
	}
	// Unrecognized styles are tolerated; design rendering falls back to
	// its default art direction.
	style := pipeline.Style(req.Style)

	concepts, err := s.pipe.Ideate(r.Context(), req.Theme, style, product)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	sess, err := pipeline.NewSession(req.Theme, style, product)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess.SetConcepts(concepts)
	s.store.set(sess)

	writeJSON(w, http.StatusOK, sessionResp{
		SessionID: sess.ID,
		Theme:     sess.Theme,
		Style:     sess.Style,
		Concepts:  sess.Concepts(),
	})
}

type designsReq struct {
	Titles []string `json:"titles" validate:"required,min=1"`
}

type designView struct {
	Index int            `json:"index"`
	Title string         `json:"title"`
	Style pipeline.Style `json:"style"`
	PNG   []byte         `json:"png"`
}

func (s *Server) handleDesigns(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req designsReq
	if !s.decodeValid(w, r, &req) {
		return
	}

	// Sequential by design: one remote call in flight at a time.
	for _, title := range req.Titles {
		concept, found := sess.ConceptByTitle(title)
		if !found {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown concept %q", title))
			return
		}
		asset, err := s.pipe.RenderDesign(r.Context(), concept, sess.Style)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		sess.AddDesign(asset)
	}

	designs := sess.Designs()
	views := make([]designView, len(designs))
	for i, d := range designs {
		views[i] = designView{Index: i, Title: d.Concept.Title, Style: d.Style, PNG: d.PNG}
	}
	writeJSON(w, http.StatusOK, map[string]any{"designs": views})
}

type finalizeReq struct {
	Selections []finalizeSelection `json:"selections" validate:"required,min=1"`
}

type finalizeSelection struct {
	DesignIndex int    `json:"designIndex"`
	ProductType string `json:"productType,omitempty"`
}

func (s *Server) handleFinalizeStart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req finalizeReq
	if !s.decodeValid(w, r, &req) {
		return
	}

	items := make([]pipeline.FinalizeItem, 0, len(req.Selections))
	for _, sel := range req.Selections {
		design, found := sess.Design(sel.DesignIndex)
		if !found {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("no design at index %d", sel.DesignIndex))
			return
		}
		product := sess.ProductType
		if sel.ProductType != "" {
			override, okPT := pipeline.ParseProductType(sel.ProductType)
			if !okPT {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown product type %q", sel.ProductType))
				return
			}
			product = override
		}
		items = append(items, pipeline.FinalizeItem{Design: design, ProductType: product})
	}

	total := len(items) * (1 + pipeline.MockupScenesPerDesign)
	if !sess.BeginFinalize(total) {
		s.writeError(w, http.StatusConflict, "a finalization batch is already running for this session")
		return
	}

	theme := sess.Theme
	go func() {
		// Detached from the request: once a batch starts it runs to
		// completion or failure; there is no cancel-in-flight.
		products, err := s.pipe.Finalize(context.Background(), items, theme, sess.UpdateProgress)
		sess.EndFinalize(products, err)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"total": total})
}

type productView struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	ProductType pipeline.ProductType `json:"productType"`
	Listing     pipeline.ListingCopy `json:"listing"`
	MockupCount int                  `json:"mockupCount"`
	PublishedID string               `json:"publishedId,omitempty"`
}

func (s *Server) handleFinalizePoll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	progress := sess.Progress()
	products := sess.Products()
	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = productView{
			ID:          p.ID,
			Title:       p.Concept.Title,
			ProductType: p.ProductType,
			Listing:     p.Listing,
			MockupCount: len(p.Mockups),
			PublishedID: p.PublishedID,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"progress": progress,
		"products": views,
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.pub == nil {
		s.writeError(w, http.StatusServiceUnavailable, publisher.ErrNoToken.Error())
		return
	}
	productID := chi.URLParam(r, "productID")

	// The publish stage has no idempotence guard of its own, so this
	// layer reserves the product before calling it. The reservation is
	// atomic with the published check: concurrent requests for the same
	// product get a conflict, not a duplicate listing.
	product, err := sess.BeginPublish(productID)
	switch {
	case errors.Is(err, pipeline.ErrUnknownProduct):
		s.writeError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, pipeline.ErrAlreadyPublished):
		s.writeError(w, http.StatusConflict, "product already published")
		return
	case errors.Is(err, pipeline.ErrPublishInFlight):
		s.writeError(w, http.StatusConflict, "a publish for this product is already running")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	publishedID, err := s.pub.Publish(r.Context(), product)
	if err != nil {
		sess.EndPublish(productID, "")
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	sess.EndPublish(productID, publishedID)
	writeJSON(w, http.StatusOK, map[string]string{"published_id": publishedID})
}

// handleDownload streams a zip of every finalized product's assets.
// Mockup filenames carry their gallery index; order matters there.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	products := sess.Products()
	if len(products) == 0 {
		s.writeError(w, http.StatusNotFound, "no finalized products to download")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="merch-forge-assets.zip"`)
	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, p := range products {
		dir := p.ID + "/"
		if err := writeZipFile(zw, dir+"design.png", p.Design.PNG); err != nil {
			s.logger.Error("zip write failed", "error", err)
			return
		}
		for i, m := range p.Mockups {
			name := fmt.Sprintf("%smockups/%02d-%s.png", dir, i+1, m.Scene)
			if err := writeZipFile(zw, name, m.PNG); err != nil {
				s.logger.Error("zip write failed", "error", err)
				return
			}
		}
		listing, err := json.MarshalIndent(p.Listing, "", "  ")
		if err != nil {
			s.logger.Error("listing marshal failed", "error", err)
			return
		}
		if err := writeZipFile(zw, dir+"listing.json", listing); err != nil {
			s.logger.Error("zip write failed", "error", err)
			return
		}
	}
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// --- Helpers ---

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*pipeline.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.store.get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	if status >= 500 {
		s.logger.Error("request failed", "status", status, "error", msg)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
