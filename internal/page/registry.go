package page

import (
	"sync"
)

// DefaultStoryPageType is the page type imports create unless configured
// otherwise.
const DefaultStoryPageType = "webstories.StoryPage"

// PageType describes a page type that can hold an imported story.
type PageType struct {
	Name        string
	Description string
}

// Registry is the explicit list of story page types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]PageType
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]PageType),
	}
}

// DefaultRegistry holds the built-in story page type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(PageType{Name: DefaultStoryPageType, Description: "Web story"})
	return r
}

func (r *Registry) Register(pageType PageType) error {
	if pageType.Name == "" {
		return &RegistryError{Cause: ErrCauseEmptyTypeName}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[pageType.Name]; exists {
		return &RegistryError{Message: pageType.Name, Cause: ErrCauseDuplicateType}
	}
	r.types[pageType.Name] = pageType
	r.order = append(r.order, pageType.Name)
	return nil
}

func (r *Registry) Lookup(name string) (PageType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pageType, ok := r.types[name]
	if !ok {
		return PageType{}, &RegistryError{Message: name, Cause: ErrCauseUnknownType}
	}
	return pageType, nil
}

func (r *Registry) IsStoryPage(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// Names returns registered type names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
