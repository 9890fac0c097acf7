// Package postgres implements the catalog, pricing and order repositories
// on PostgreSQL through pgx.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}

// notFound maps pgx.ErrNoRows to the typed not-found error and wraps
// anything else.
func notFound(err error, resource, id, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(resource, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// unmarshalOptional decodes a nullable JSONB column into dst and reports
// whether there was a value.
func unmarshalOptional(data []byte, dst any) (bool, error) {
	if len(data) == 0 || string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is an ILIKE pattern matching text literally anywhere in a
// value. Use it with ESCAPE '\'.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

// whereClause joins conditions with AND, or returns "" when there are none.
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}
