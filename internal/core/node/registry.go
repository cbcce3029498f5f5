package node

import (
	"errors"
	"fmt"
	"slices"

	"azulnodes/internal/core/domain"
	"azulnodes/internal/core/port"

	"github.com/rs/zerolog/log"
)

// Registry maps node class names to nodes. It is filled once at start-up and only read afterwards.
type Registry struct {
	nodes map[string]port.Node
}

func (r *Registry) Register(node port.Node) {
	if r.nodes == nil {
		r.nodes = make(map[string]port.Node)
	}

	log.Info().
		Str("node", node.GetName()).
		Str("displayName", node.Schema().DisplayName).
		Msg("adding node to registry")
	r.nodes[node.GetName()] = node
}

func (r *Registry) Get(name string) (port.Node, error) {
	log.Debug().Str("node", name).Msg("fetching node from registry")

	if r.nodes == nil {
		err := errors.New("can't fetch node, registry not initialized")
		return nil, err
	}

	n, ok := r.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, name)
	}

	return n, nil
}

func (r *Registry) ListNodes() []string {
	keys := make([]string, 0, len(r.nodes))

	for k := range r.nodes {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// DisplayNames returns the UI name of every registered node keyed by class name.
func (r *Registry) DisplayNames() map[string]string {
	names := make(map[string]string, len(r.nodes))

	for k, n := range r.nodes {
		names[k] = n.Schema().DisplayName
	}

	return names
}

// Schemas returns the schemas of all registered nodes ordered by class name.
func (r *Registry) Schemas() []domain.NodeSchema {
	schemas := make([]domain.NodeSchema, 0, len(r.nodes))

	for _, name := range r.ListNodes() {
		schemas = append(schemas, r.nodes[name].Schema())
	}

	return schemas
}
