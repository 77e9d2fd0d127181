package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionResolver_ResolveExtension(t *testing.T) {
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	resolver := NewExtensionResolver(pg)
	ctx := context.Background()

	tests := []struct {
		name     string
		number   string
		mockFunc func()
		want     sql.NullInt64
		wantErr  error
	}{
		{
			name:   "known extension",
			number: "1234",
			mockFunc: func() {
				mock.ExpectQuery("SELECT id FROM asterisk_extensions WHERE extension = \\$1").
					WithArgs("1234").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))
			},
			want: sql.NullInt64{Int64: 77, Valid: true},
		},
		{
			name:   "unknown extension resolves to unresolved",
			number: "9999",
			mockFunc: func() {
				mock.ExpectQuery("SELECT id FROM asterisk_extensions").
					WithArgs("9999").
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			want: Unresolved,
		},
		{
			name:   "directory failure",
			number: "1234",
			mockFunc: func() {
				mock.ExpectQuery("SELECT id FROM asterisk_extensions").
					WithArgs("1234").
					WillReturnError(errors.New("too many connections"))
			},
			want:    Unresolved,
			wantErr: ErrExtensionLookup,
		},
		{
			name:     "empty extension skips the lookup",
			number:   "  ",
			mockFunc: func() {},
			want:     Unresolved,
		},
		{
			name:     "non-numeric extension",
			number:   "12a4",
			mockFunc: func() {},
			want:     Unresolved,
			wantErr:  ErrInvalidExtension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockFunc()
			got, err := resolver.ResolveExtension(ctx, tt.number)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
