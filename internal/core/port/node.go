package port

import (
	"context"

	"azulnodes/internal/core/domain"
)

type Node interface {
	// Execute runs the node's entry point with resolved inputs.
	Execute(ctx context.Context, inputs domain.Inputs) (*domain.NodeOutput, error)
	// Schema returns the declarative input and output description consumed by the graph executor.
	Schema() domain.NodeSchema
	// GetName retrieves the class name the node is registered under.
	GetName() string
}

type NodeRegistry interface {
	// Register adds a node to the registry.
	Register(node Node)
	// Get retrieves a registered Node by class name or returns an error if not found.
	Get(name string) (Node, error)
	// ListNodes returns the class names of all registered nodes.
	ListNodes() []string
}
