package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/longregen/amaru/internal/domain"
)

// statementTimeout bounds a statement whose caller set no deadline.
const statementTimeout = 30 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, statementTimeout)
}

// optionalID stores an unset candidate, problem or error text as NULL.
func optionalID(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func textOf(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func timeOf(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// lookupErr maps a missing row onto ErrNotFound and passes other errors through.
func lookupErr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewDomainError(domain.ErrNotFound, what+" not found")
	}
	return err
}

// decodeJSONB decodes a jsonb column. A NULL column leaves target untouched.
func decodeJSONB[T any](data []byte, target *T) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, target)
}
