package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
)

// problemFile is the YAML form of a problem. Test inputs and expected
// outputs are plain YAML scalars; expected_kind decides how a
// one-character string is read.
type problemFile struct {
	Language    string            `yaml:"language"`
	Code        string            `yaml:"code"`
	CodeFile    string            `yaml:"code_file"`
	EntryPoint  string            `yaml:"entry_point"`
	Function    string            `yaml:"function"`
	SearchSpace string            `yaml:"search_space"`
	Creation    map[string]string `yaml:"creation"`
	Repeats     int               `yaml:"repeats"`
	Timeout     time.Duration     `yaml:"timeout"`
	Tests       []testFile        `yaml:"tests"`
}

type testFile struct {
	ID           string           `yaml:"id"`
	Inputs       []any            `yaml:"inputs"`
	Expected     any              `yaml:"expected"`
	ExpectedKind models.ValueKind `yaml:"expected_kind"`
}

// LoadProblem reads a problem definition. A relative code_file is resolved
// against the problem file's directory.
func LoadProblem(path string) (*models.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open problem %s: %w", path, err)
	}
	defer f.Close()

	p, err := ReadProblem(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", path, err)
	}
	return p, nil
}

// ReadProblem parses a problem definition from r.
func ReadProblem(r io.Reader, baseDir string) (*models.Problem, error) {
	var pf problemFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "parse problem: "+err.Error())
	}

	if pf.CodeFile != "" {
		if pf.Code != "" {
			return nil, domain.NewDomainError(domain.ErrInvalidInput, "code and code_file are mutually exclusive")
		}
		codePath := pf.CodeFile
		if !filepath.IsAbs(codePath) && baseDir != "" {
			codePath = filepath.Join(baseDir, codePath)
		}
		code, err := os.ReadFile(codePath)
		if err != nil {
			return nil, fmt.Errorf("read code file: %w", err)
		}
		pf.Code = string(code)
	}

	switch {
	case pf.Language == "":
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "language is required")
	case pf.Code == "":
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "code is required")
	case pf.Function == "":
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "function is required")
	case len(pf.Tests) == 0:
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "at least one test is required")
	case pf.Repeats < 0:
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "repeats must not be negative")
	case pf.Timeout < 0:
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "timeout must not be negative")
	}

	tests := make([]*models.TestCase, len(pf.Tests))
	for i, t := range pf.Tests {
		if t.ExpectedKind != "" && !t.ExpectedKind.Valid() {
			return nil, domain.NewDomainError(domain.ErrInvalidInput, fmt.Sprintf("test %d: unknown expected_kind %q", i, t.ExpectedKind))
		}
		tc := &models.TestCase{
			ID:           t.ID,
			Inputs:       make([]*models.Value, len(t.Inputs)),
			Expected:     models.ValueOf(t.Expected, t.ExpectedKind),
			ExpectedKind: t.ExpectedKind,
		}
		for j, in := range t.Inputs {
			tc.Inputs[j] = models.ValueOf(in, "")
		}
		if tc.ExpectedKind == "" && tc.Expected != nil {
			tc.ExpectedKind = tc.Expected.Kind
		}
		tests[i] = tc
	}

	return models.NewProblem(models.Problem{
		Language:    pf.Language,
		Code:        pf.Code,
		EntryPoint:  pf.EntryPoint,
		Function:    pf.Function,
		SearchSpace: pf.SearchSpace,
		Creation:    pf.Creation,
		Repeats:     pf.Repeats,
		Timeout:     pf.Timeout,
		Tests:       tests,
	}), nil
}
