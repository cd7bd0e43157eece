// Package language describes the node classes of a target language: which
// properties they carry and how expensive they are on each measured system.
package language

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
)

// Property is a semantic trait of a node class.
type Property string

const (
	PropertyControlFlow Property = "control-flow"
	PropertyLoop        Property = "loop"
	PropertyBranch      Property = "branch"
	// PropertyAPI marks glue nodes (roots, wrappers) that carry no cost of their own.
	PropertyAPI Property = "api"
)

// ClassInfo describes one node class.
type ClassInfo struct {
	Name       string     `yaml:"name"`
	Properties []Property `yaml:"properties,omitempty"`
	// Weights is the measured cost of one execution per system.
	Weights map[string]float64 `yaml:"weights,omitempty"`
}

func (c *ClassInfo) HasProperty(p Property) bool {
	for _, have := range c.Properties {
		if have == p {
			return true
		}
	}
	return false
}

// Information is the class catalogue of one language.
type Information struct {
	Language      string       `yaml:"language"`
	PrimarySystem string       `yaml:"primary_system"`
	Classes       []*ClassInfo `yaml:"classes"`

	byName map[string]*ClassInfo
}

// New indexes the given classes.
func New(languageID, primarySystem string, classes ...*ClassInfo) *Information {
	info := &Information{Language: languageID, PrimarySystem: primarySystem, Classes: classes}
	info.index()
	return info
}

// Load reads a language description from YAML.
func Load(r io.Reader) (*Information, error) {
	var info Information
	if err := yaml.NewDecoder(r).Decode(&info); err != nil {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, fmt.Sprintf("failed to parse language information: %v", err))
	}
	if info.Language == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "language information has no language id")
	}
	seen := make(map[string]struct{}, len(info.Classes))
	for _, c := range info.Classes {
		if c == nil || c.Name == "" {
			return nil, domain.NewDomainError(domain.ErrInvalidInput, "language class without name")
		}
		if _, dup := seen[c.Name]; dup {
			return nil, domain.NewDomainError(domain.ErrInvalidInput, "duplicate language class "+c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	info.index()
	return &info, nil
}

// LoadFile reads a language description from a YAML file.
func LoadFile(path string) (*Information, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open language file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (i *Information) index() {
	i.byName = make(map[string]*ClassInfo, len(i.Classes))
	for _, c := range i.Classes {
		i.byName[c.Name] = c
	}
}

// Class looks up the class of a node kind.
func (i *Information) Class(kind string) (*ClassInfo, bool) {
	c, ok := i.byName[kind]
	return c, ok
}

// HasProperty reports whether nodes of kind carry p. Unknown kinds carry nothing.
func (i *Information) HasProperty(kind string, p Property) bool {
	c, ok := i.byName[kind]
	return ok && c.HasProperty(p)
}

// CyclomaticComplexity counts the control-flow nodes of tree.
func (i *Information) CyclomaticComplexity(tree ast.Node) int {
	count := 0
	ast.Walk(tree, func(_ string, n ast.Node) {
		if i.HasProperty(n.Kind(), PropertyControlFlow) {
			count++
		}
	})
	return count
}
