package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"azulnodes/internal/core/domain"

	"github.com/rs/zerolog/log"
)

// OutputAllocator hands out numbered file names below an output directory, continuing after the
// highest counter already present for a prefix.
type OutputAllocator struct {
	outputDir string
	now       func() time.Time
}

func NewOutputAllocator(outputDir string) (*OutputAllocator, error) {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}

	return &OutputAllocator{outputDir: abs, now: time.Now}, nil
}

func (o *OutputAllocator) OutputDir() string {
	return o.outputDir
}

func (o *OutputAllocator) Allocate(prefix string, width, height int) (*domain.SavePath, error) {
	if strings.Contains(prefix, "%") {
		prefix = o.expandVars(prefix, width, height)
	}

	normalized := filepath.Clean(prefix)
	subfolder := filepath.Dir(normalized)
	if subfolder == "." {
		subfolder = ""
	}
	filename := filepath.Base(normalized)

	folder := filepath.Join(o.outputDir, subfolder)

	rel, err := filepath.Rel(o.outputDir, folder)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		log.Error().Str("prefix", prefix).Str("folder", folder).Msg("refusing to save outside output folder")
		return nil, domain.ErrOutsideOutputDir
	}

	counter, err := nextCounter(folder, filename)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("folder", folder).
		Str("filename", filename).
		Int("counter", counter).
		Msg("allocated output path")

	return &domain.SavePath{
		Folder:    folder,
		Filename:  filename,
		Counter:   counter,
		Subfolder: filepath.ToSlash(subfolder),
		Prefix:    prefix,
	}, nil
}

func (o *OutputAllocator) expandVars(prefix string, width, height int) string {
	now := o.now()

	r := strings.NewReplacer(
		"%width%", strconv.Itoa(width),
		"%height%", strconv.Itoa(height),
		"%year%", strconv.Itoa(now.Year()),
		"%month%", fmt.Sprintf("%02d", int(now.Month())),
		"%day%", fmt.Sprintf("%02d", now.Day()),
		"%hour%", fmt.Sprintf("%02d", now.Hour()),
		"%minute%", fmt.Sprintf("%02d", now.Minute()),
		"%second%", fmt.Sprintf("%02d", now.Second()),
	)

	return r.Replace(prefix)
}

// nextCounter returns one past the highest counter used by files named
// <filename>_[<batch>_]<counter>_.<ext> in folder, creating folder when it does not exist.
func nextCounter(folder, filename string) (int, error) {
	entries, err := os.ReadDir(folder)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return 0, fmt.Errorf("error creating output folder %w", err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error reading output folder %w", err)
	}

	base := strings.ReplaceAll(regexp.QuoteMeta(filename), "%batch_num%", `\d+`)
	re, err := regexp.Compile(`(?i)^` + base + `_(?:\d+_)?(\d+)_`)
	if err != nil {
		return 0, fmt.Errorf("invalid filename prefix %w", err)
	}

	highest := 0
	for _, entry := range entries {
		m := re.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}

		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		highest = max(highest, n)
	}

	return highest + 1, nil
}
