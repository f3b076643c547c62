package api

import (
	"github.com/slidemarks/viewer/internal/service"
)

// SlideInfo contains information about a slide for the API response.
type SlideInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SlideRegistry holds marker services for all configured slides.
type SlideRegistry struct {
	services     map[string]*service.MarkerService
	defaultSlide string
	slideOrder   []string
	title        string
}

// NewSlideRegistry creates a new slide registry.
func NewSlideRegistry(defaultSlide string, order []string, title string) *SlideRegistry {
	return &SlideRegistry{
		services:     make(map[string]*service.MarkerService),
		defaultSlide: defaultSlide,
		slideOrder:   order,
		title:        title,
	}
}

// Register adds a marker service for a slide.
func (r *SlideRegistry) Register(slideID string, svc *service.MarkerService) {
	r.services[slideID] = svc
}

// Get returns the marker service for a slide, or nil if not found.
func (r *SlideRegistry) Get(slideID string) *service.MarkerService {
	return r.services[slideID]
}

// Default returns the default slide's marker service.
func (r *SlideRegistry) Default() *service.MarkerService {
	return r.services[r.defaultSlide]
}

// DefaultSlideID returns the default slide ID.
func (r *SlideRegistry) DefaultSlideID() string {
	return r.defaultSlide
}

// SlideIDs returns all slide IDs in config order.
func (r *SlideRegistry) SlideIDs() []string {
	return r.slideOrder
}

// Title returns the configured site title.
func (r *SlideRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "Slide markers"
}

// Slides returns slide info for all registered slides.
func (r *SlideRegistry) Slides() []SlideInfo {
	infos := make([]SlideInfo, 0, len(r.slideOrder))
	for _, id := range r.slideOrder {
		svc := r.services[id]
		if svc == nil {
			continue
		}
		infos = append(infos, SlideInfo{ID: id, Title: svc.Title()})
	}
	return infos
}

// Close releases every registered service.
func (r *SlideRegistry) Close() {
	for _, svc := range r.services {
		svc.Close()
	}
}
