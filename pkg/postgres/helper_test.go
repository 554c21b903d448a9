package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		fk     bool
		unique bool
		check  bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("boom")},
		{name: "fk", err: &pgconn.PgError{Code: "23503"}, fk: true},
		{name: "unique wrapped", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), unique: true},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, check: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsForeignKeyViolation(tt.err); got != tt.fk {
				t.Fatalf("IsForeignKeyViolation = %v, want %v", got, tt.fk)
			}
			if got := IsUniqueViolation(tt.err); got != tt.unique {
				t.Fatalf("IsUniqueViolation = %v, want %v", got, tt.unique)
			}
			if got := IsCheckViolation(tt.err); got != tt.check {
				t.Fatalf("IsCheckViolation = %v, want %v", got, tt.check)
			}
		})
	}
}
