// Package registry maps node types to the factories that build their strategies.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
)

// ErrUnsupportedNodeType is returned when no factory is registered for a node type.
var ErrUnsupportedNodeType = errors.New("unsupported node type")

// Registry holds node factories keyed by node type.
type Registry struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	factories map[models.NodeType]protocol.NodeFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[models.NodeType]protocol.NodeFactory),
	}
}

// RegisterNode registers a factory, replacing any previous factory of the same type.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[factory.Type()]; exists {
		r.logger.Warn("Replacing node factory", "type", factory.Type())
	}

	r.factories[factory.Type()] = factory
}

// CreateNode builds the strategy for a workflow node.
func (r *Registry) CreateNode(ctx context.Context, node *models.Node) (protocol.Node, error) {
	r.mu.RLock()
	factory, ok := r.factories[node.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNodeType, node.Type)
	}

	return factory.Create(ctx, node)
}

// Factory returns the factory registered for a node type.
func (r *Registry) Factory(nodeType models.NodeType) (protocol.NodeFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[nodeType]

	return factory, ok
}

// Types returns the registered node types in sorted order.
func (r *Registry) Types() []models.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.NodeType, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}

	slices.Sort(types)

	return types
}

// Factories returns every registered factory, ordered by type.
func (r *Registry) Factories() []protocol.NodeFactory {
	types := r.Types()

	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.NodeFactory, 0, len(types))
	for _, nodeType := range types {
		factories = append(factories, r.factories[nodeType])
	}

	return factories
}

// Schemas returns the data schema of every registered factory, keyed by node type.
func (r *Registry) Schemas() map[models.NodeType]map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make(map[models.NodeType]map[string]any, len(r.factories))
	for nodeType, factory := range r.factories {
		schemas[nodeType] = factory.Schema()
	}

	return schemas
}

// HealthCheck reports whether factories are registered for every supported node type.
func (r *Registry) HealthCheck(_ context.Context) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string

	for _, nodeType := range models.NodeTypes {
		if _, ok := r.factories[nodeType]; !ok {
			missing = append(missing, string(nodeType))
		}
	}

	if len(missing) > 0 {
		return fmt.Sprintf("missing node factories: %v", missing), false
	}

	return fmt.Sprintf("%d node types registered", len(r.factories)), true
}
