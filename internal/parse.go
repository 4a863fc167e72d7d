package internal

import (
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// Parser casts decoded responses into entities.
type Parser struct {
	registry *entity.Registry
}

// NewParser creates a parser over registry. A nil registry means entity.DefaultRegistry.
func NewParser(registry *entity.Registry) *Parser {
	if registry == nil {
		registry = entity.DefaultRegistry
	}
	return &Parser{registry: registry}
}

// Registry returns the schema registry the parser casts against.
func (p *Parser) Registry() *entity.Registry {
	return p.registry
}

// Parse casts the response value against t. Paginated collections receive the response's
// cursors, which are mirrored onto their boundary elements.
func (p *Parser) Parse(resp *Response, t *entity.Type) any {
	if resp == nil {
		return nil
	}
	v := p.registry.Cast(t, resp.Value)
	if l, ok := v.(*entity.List); ok {
		l.SetCursors(resp.Next, resp.Prev)
	}
	return v
}

// ParseEntity is Parse for endpoints returning a single entity. A response that is not an
// object yields nil.
func (p *Parser) ParseEntity(resp *Response, t *entity.Type) *entity.Entity {
	e, _ := p.Parse(resp, t).(*entity.Entity)
	return e
}

// ParseList is Parse for endpoints returning a paginated collection. A response that is not
// an array yields an empty list.
func (p *Parser) ParseList(resp *Response, t *entity.Type) *entity.List {
	if l, ok := p.Parse(resp, t).(*entity.List); ok {
		return l
	}
	return &entity.List{Type: t}
}
