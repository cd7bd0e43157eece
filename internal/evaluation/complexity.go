package evaluation

import (
	"context"
	"fmt"
	"slices"

	"github.com/longregen/amaru/internal/ast"
	"github.com/longregen/amaru/internal/domain"
	"github.com/longregen/amaru/internal/domain/models"
	"github.com/longregen/amaru/internal/ports"
)

// AnnotateComplexity traces the original program on every test and returns
// a copy of problem whose tests carry node counts, specialisations and the
// set of executed nodes. The problem identity does not change.
func AnnotateComplexity(ctx context.Context, sess *Session, problem *models.Problem) (*models.Problem, error) {
	if problem == nil {
		return nil, domain.NewDomainError(domain.ErrMissingProblem, "cannot annotate complexity")
	}
	if sess == nil {
		return nil, domain.NewDomainError(domain.ErrExecutorUnavailable, "no executor session")
	}
	tracer, ok := sess.Executor.(ports.TracingExecutor)
	if !ok {
		return nil, domain.NewDomainError(domain.ErrExecutorUnavailable, "executor cannot trace")
	}

	tests := make([]*models.TestCase, len(problem.Tests))
	for i, tc := range problem.Tests {
		trace, err := tracer.Trace(ctx, ast.Origin(), tc.InputArgs())
		if err != nil {
			return nil, fmt.Errorf("failed to trace test %s: %w", tc.ID, err)
		}
		annotated := *tc
		annotated.NodeCount, annotated.Specializations, annotated.Nodes = 0, 0, nil
		if trace != nil {
			annotated.Specializations = trace.Specializations
			for key, count := range trace.Executions {
				if count > 0 {
					annotated.Nodes = append(annotated.Nodes, key)
				}
			}
			slices.Sort(annotated.Nodes)
			annotated.NodeCount = len(annotated.Nodes)
		}
		tests[i] = &annotated
	}

	derived := *problem
	derived.Tests = tests
	return models.NewProblem(derived), nil
}
