package pipeline

import (
	"errors"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Publish reservation outcomes.
var (
	ErrUnknownProduct   = errors.New("unknown product")
	ErrAlreadyPublished = errors.New("product already published")
	ErrPublishInFlight  = errors.New("a publish for this product is already running")
)

// FinalizeProgress is a snapshot of a running or finished finalization
// batch, safe to hand to a polling caller.
type FinalizeProgress struct {
	Running bool   `json:"running"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// Session holds all state for one browser session: the inputs, the
// generated concepts and designs, and the finalized products. Only one
// flow mutates a session at a time; the server serializes finalization
// per session via the running flag.
type Session struct {
	ID          string
	Theme       string
	Style       Style
	ProductType ProductType

	mu         sync.Mutex
	concepts   []Concept
	designs    []*DesignAsset
	products   map[string]*FinalizedProduct
	order      []string
	progress   FinalizeProgress
	publishing map[string]bool
}

// NewSession creates an empty session for the given inputs.
func NewSession(theme string, style Style, product ProductType) (*Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	return &Session{
		ID:          "sess-" + id,
		Theme:       theme,
		Style:       style,
		ProductType: product,
		products:    make(map[string]*FinalizedProduct),
		publishing:  make(map[string]bool),
	}, nil
}

func (s *Session) SetConcepts(concepts []Concept) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts = concepts
}

func (s *Session) Concepts() []Concept {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Concept(nil), s.concepts...)
}

// ConceptByTitle resolves a user selection back to a concept. Titles
// are unique within a batch by provider contract.
func (s *Session) ConceptByTitle(title string) (Concept, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.concepts {
		if c.Title == title {
			return c, true
		}
	}
	return Concept{}, false
}

func (s *Session) AddDesign(d *DesignAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.designs = append(s.designs, d)
}

func (s *Session) Design(index int) (*DesignAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.designs) {
		return nil, false
	}
	return s.designs[index], true
}

func (s *Session) Designs() []*DesignAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*DesignAsset(nil), s.designs...)
}

// BeginFinalize marks a batch as running. It reports false if a batch
// is already in flight, which is how overlapping batches are refused.
func (s *Session) BeginFinalize(total int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress.Running {
		return false
	}
	s.progress = FinalizeProgress{Running: true, Total: total}
	return true
}

func (s *Session) UpdateProgress(done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Done = done
	s.progress.Total = total
}

// EndFinalize stores the batch result and clears the running flag. On
// failure the products slice is nil and only the message is kept.
func (s *Session) EndFinalize(products []*FinalizedProduct, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Running = false
	if err != nil {
		s.progress.Error = err.Error()
		return
	}
	for _, p := range products {
		s.products[p.ID] = p
		s.order = append(s.order, p.ID)
	}
}

func (s *Session) Progress() FinalizeProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Product returns a snapshot of one finalized product. Snapshots are
// taken under the lock because PublishedID may be written by a
// concurrent publish.
func (s *Session) Product(id string) (*FinalizedProduct, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, false
	}
	snapshot := *p
	return &snapshot, true
}

// Products returns snapshots of the finalized products in creation
// order.
func (s *Session) Products() []*FinalizedProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FinalizedProduct, 0, len(s.order))
	for _, id := range s.order {
		snapshot := *s.products[id]
		out = append(out, &snapshot)
	}
	return out
}

// BeginPublish reserves a product for a single publish attempt, looked
// up by its stable generated id rather than by title. The check and the
// reservation happen under one lock so two concurrent requests cannot
// both observe an unpublished product. Callers must pair it with
// EndPublish.
func (s *Session) BeginPublish(productID string) (*FinalizedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
	}
	if p.PublishedID != "" {
		return nil, ErrAlreadyPublished
	}
	if s.publishing[productID] {
		return nil, ErrPublishInFlight
	}
	s.publishing[productID] = true
	snapshot := *p
	return &snapshot, nil
}

// EndPublish releases the reservation taken by BeginPublish. A
// non-empty publishedID is attached to the product; an empty one means
// the attempt failed and the product may be published again.
func (s *Session) EndPublish(productID, publishedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.publishing, productID)
	if publishedID == "" {
		return
	}
	if p, ok := s.products[productID]; ok {
		p.PublishedID = publishedID
	}
}
