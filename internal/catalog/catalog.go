// Package catalog holds the process-wide registry of domain specialists.
// Each specialist is a prompt plus a tool allow-list and an iteration
// budget; the engine itself is uniform across domains.
package catalog

import (
	"fmt"
	"sync"
)

// Domain is the closed set of specialist roles.
type Domain string

const (
	DomainPlanner   Domain = "planner"
	DomainCoder     Domain = "coder"
	DomainReviewer  Domain = "reviewer"
	DomainSecurity  Domain = "security"
	DomainTesting   Domain = "testing"
	DomainDocs      Domain = "docs"
	DomainPerf      Domain = "perf"
	DomainAPI       Domain = "api"
	DomainMigration Domain = "migration"
	DomainDB        Domain = "db"
	DomainDevOps    Domain = "devops"
	DomainArchitect Domain = "architect"
	DomainFrontend  Domain = "frontend"
	DomainBackend   Domain = "backend"
	DomainCustom    Domain = "custom"
)

// KnownDomains lists every built-in domain in registration order.
func KnownDomains() []Domain {
	return []Domain{
		DomainPlanner, DomainCoder, DomainReviewer, DomainSecurity,
		DomainTesting, DomainDocs, DomainPerf, DomainAPI, DomainMigration,
		DomainDB, DomainDevOps, DomainArchitect, DomainFrontend, DomainBackend,
	}
}

// IsKnownDomain reports whether d is one of the built-in domains.
func IsKnownDomain(d Domain) bool {
	for _, known := range KnownDomains() {
		if d == known {
			return true
		}
	}
	return d == DomainCustom
}

// Spec describes one specialist agent.
type Spec struct {
	ID                string
	DisplayName       string
	Domain            Domain
	Instructions      string
	AllowedTools      map[string]bool // empty means all tools
	MaxIterations     int
	RequiresWorkspace bool
	Priority          int
	TokenBudget       int
}

// Catalog is a single-writer / many-reader spec registry.
type Catalog struct {
	mu    sync.RWMutex
	specs map[string]Spec
	order []string
}

// New returns a catalog seeded with the built-in specialists.
func New() *Catalog {
	c := &Catalog{specs: make(map[string]Spec)}
	c.reset()
	return c
}

func (c *Catalog) reset() {
	c.specs = make(map[string]Spec)
	c.order = nil
	for _, spec := range builtinSpecs() {
		c.specs[spec.ID] = spec
		c.order = append(c.order, spec.ID)
	}
}

// Register adds or replaces a spec. User-defined specs may extend the
// built-ins with the custom domain.
func (c *Catalog) Register(spec Spec) error {
	if spec.ID == "" {
		return fmt.Errorf("spec id must not be empty")
	}
	if !IsKnownDomain(spec.Domain) {
		return fmt.Errorf("unknown domain: %s", spec.Domain)
	}
	if spec.MaxIterations <= 0 {
		spec.MaxIterations = 10
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.specs[spec.ID]; !exists {
		c.order = append(c.order, spec.ID)
	}
	c.specs[spec.ID] = spec
	return nil
}

// Unregister removes a spec by id.
func (c *Catalog) Unregister(specID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.specs[specID]; !exists {
		return
	}
	delete(c.specs, specID)
	for i, existing := range c.order {
		if existing == specID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Reset restores the built-in specs only.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Get looks up a spec by id.
func (c *Catalog) Get(specID string) (Spec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.specs[specID]
	return spec, ok
}

// ForDomain returns the first spec registered for the domain. Built-ins are
// inserted in a fixed order, so the answer is deterministic.
func (c *Catalog) ForDomain(domain Domain) (Spec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, specID := range c.order {
		if spec, ok := c.specs[specID]; ok && spec.Domain == domain {
			return spec, true
		}
	}
	return Spec{}, false
}

// All returns every spec in registration order.
func (c *Catalog) All() []Spec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Spec, 0, len(c.order))
	for _, specID := range c.order {
		if spec, ok := c.specs[specID]; ok {
			out = append(out, spec)
		}
	}
	return out
}
