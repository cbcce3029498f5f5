package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"azulnodes/internal/adapters/file"
	"azulnodes/internal/core/domain"
	"azulnodes/internal/core/port"

	"github.com/rs/zerolog/log"
)

type Node struct {
	nodeRegistry port.NodeRegistry
	timeout      time.Duration
}

func NewNode(nodeRegistry port.NodeRegistry, timeout time.Duration) *Node {
	return &Node{nodeRegistry: nodeRegistry, timeout: timeout}
}

type nodeRequest struct {
	Node   string                     `json:"node"`
	Inputs map[string]json.RawMessage `json:"inputs"`
}

// imageSource is one image of an IMAGE input: inline pixel data, a local path or a URL.
type imageSource struct {
	domain.Image
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Handle reads a single node request from r, executes it and writes the node output to w as JSON.
func (n *Node) Handle(ctx context.Context, r io.Reader, w io.Writer) error {
	var req nodeRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("error decoding request: %w", err)
	}

	l := log.With().Str("node", req.Node).Logger()
	l.Debug().Int("inputs", len(req.Inputs)).Msg("received node request")

	node, err := n.nodeRegistry.Get(req.Node)
	if err != nil {
		l.Debug().Msg("no such node")
		return fmt.Errorf("no handler for node: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	inputs, err := decodeInputs(ctx, node.Schema(), req.Inputs)
	if err != nil {
		return err
	}

	out, err := node.Execute(ctx, inputs)
	if err != nil {
		l.Err(err).Msg("failed to execute node")
		return fmt.Errorf("error executing %s: %w", req.Node, err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("error encoding node output: %w", err)
	}

	return nil
}

func decodeInputs(ctx context.Context, schema domain.NodeSchema,
	raw map[string]json.RawMessage) (domain.Inputs, error) {
	inputs := make(domain.Inputs, len(raw))

	for _, field := range schema.Required {
		msg, ok := raw[field.Name]
		if !ok {
			continue
		}

		v, err := decodeValue(ctx, field.Type, msg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, field.Name, err)
		}

		inputs[field.Name] = v
	}

	for name := range raw {
		if _, ok := inputs[name]; !ok {
			log.Debug().Str("node", schema.Name).Str("input", name).Msg("ignoring unknown input")
		}
	}

	return inputs, nil
}

func decodeValue(ctx context.Context, t domain.IOType, msg json.RawMessage) (any, error) {
	switch t {
	case domain.TypeImage:
		var sources []imageSource
		if err := json.Unmarshal(msg, &sources); err != nil {
			return nil, err
		}
		return loadImages(ctx, sources)
	case domain.TypeConditioning:
		var c []domain.Conditioning
		if err := json.Unmarshal(msg, &c); err != nil {
			return nil, err
		}
		return c, nil
	case domain.TypeString, domain.TypeCombo:
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, err
		}
		return s, nil
	case domain.TypeInt, domain.TypeFloat:
		var f float64
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported input type %s", t)
	}
}

func loadImages(ctx context.Context, sources []imageSource) ([]domain.Image, error) {
	images := make([]domain.Image, 0, len(sources))

	for i, src := range sources {
		var img domain.Image
		var err error

		switch {
		case src.Path != "":
			img, err = file.ReadImage(src.Path)
		case src.URL != "":
			img, err = file.FetchImage(ctx, src.URL)
		default:
			img = src.Image
		}

		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}

		images = append(images, img)
	}

	return images, nil
}
