package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrExtensionLookup means the directory query itself failed; the dependent
	// write must not be issued.
	ErrExtensionLookup = errors.New("extension lookup failed")
	// ErrInvalidExtension means the caller supplied something that is not an extension number.
	ErrInvalidExtension = errors.New("invalid extension")
)

// Unresolved is stored in place of the extension foreign key when the
// directory has no entry for the number.
var Unresolved = sql.NullInt64{}

// ExtensionResolver maps human-facing extension numbers to directory ids.
type ExtensionResolver struct {
	PG *sql.DB
}

func NewExtensionResolver(pg *sql.DB) *ExtensionResolver {
	return &ExtensionResolver{PG: pg}
}

// ParseExtensionNumber validates a caller-supplied extension. An empty value is
// allowed and resolves to Unresolved without a query.
func ParseExtensionNumber(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, err := strconv.ParseUint(s, 10, 32); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidExtension, s)
	}
	return s, nil
}

// ResolveExtension returns the directory id for number, Unresolved when the
// directory has no such entry, or an error wrapping ErrExtensionLookup.
func (r *ExtensionResolver) ResolveExtension(ctx context.Context, number string) (sql.NullInt64, error) {
	number, err := ParseExtensionNumber(number)
	if err != nil {
		return Unresolved, err
	}
	if number == "" {
		return Unresolved, nil
	}

	var id int64
	err = r.PG.QueryRowContext(ctx, `
		SELECT id FROM asterisk_extensions WHERE extension = $1
	`, number).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Unresolved, nil
		}
		return Unresolved, fmt.Errorf("%w: %v", ErrExtensionLookup, err)
	}

	return sql.NullInt64{Int64: id, Valid: true}, nil
}
