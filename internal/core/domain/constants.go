package domain

import "errors"

var (
	ErrEmptyBatch             = errors.New("empty image batch")
	ErrInvalidImage           = errors.New("invalid image")
	ErrInvalidTensor          = errors.New("invalid tensor")
	ErrOutsideOutputDir       = errors.New("saving image outside the output folder is not allowed")
	ErrUnsupportedSubsampling = errors.New("unsupported chroma subsampling")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNodeNotFound           = errors.New("node not found")
)

const Category = "Azul's Scripts"
