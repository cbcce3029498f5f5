package port

import (
	"io"

	"azulnodes/internal/core/domain"
)

type PathAllocator interface {
	// Allocate resolves a filename prefix into an output folder, base filename and the next free counter.
	Allocate(prefix string, width, height int) (*domain.SavePath, error)
}

type FileWriter interface {
	// WriteFile creates path from the content produced by write. Nothing is left at path if write fails.
	WriteFile(path string, write func(w io.Writer) error) error
}
