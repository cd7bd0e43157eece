// Package id issues prefixed identifiers for candidates and scheduler runs.
package id

import (
	"strconv"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	CandidatePrefix = "cd"
	RunPrefix       = "sr"

	// lowercase only, so ids stay readable in CLI tables and file names
	alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	defaultSize = 16
)

// Generator implements ports.IDGenerator.
type Generator struct {
	size     int
	fallback atomic.Uint64
}

func New() *Generator {
	return &Generator{size: defaultSize}
}

// WithSize returns a generator producing size random characters per id.
func WithSize(size int) *Generator {
	if size <= 0 {
		size = defaultSize
	}
	return &Generator{size: size}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.Generate(alphabet, g.size)
	if err != nil {
		// crypto/rand failed; keep ids unique within the process
		return prefix + "_local" + strconv.FormatUint(g.fallback.Add(1), 10)
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateCandidateID() string {
	return g.generate(CandidatePrefix)
}

func (g *Generator) GenerateRunID() string {
	return g.generate(RunPrefix)
}
