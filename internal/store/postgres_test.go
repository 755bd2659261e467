package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	t.Run("NoRows", func(t *testing.T) {
		assert.ErrorIs(t, translate(sql.ErrNoRows), ErrNotFound)
	})

	t.Run("UniqueViolation", func(t *testing.T) {
		err := &pq.Error{Code: "23505"}
		assert.ErrorIs(t, translate(err), ErrDuplicate)
	})

	t.Run("ForeignKeyViolation", func(t *testing.T) {
		err := &pq.Error{Code: "23503"}
		assert.ErrorIs(t, translate(err), ErrInvalidReference)
	})

	t.Run("WrappedDriverError", func(t *testing.T) {
		wrapped := fmt.Errorf("record like: %w", &pq.Error{Code: "23505"})
		assert.ErrorIs(t, translate(wrapped), ErrDuplicate)
	})

	t.Run("OtherErrorsPassThrough", func(t *testing.T) {
		boom := errors.New("connection reset")
		assert.Equal(t, boom, translate(boom))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, translate(nil))
	})
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		name            string
		page, perPage   int
		wantPage, wantN int
	}{
		{"Defaults", 0, 0, 1, DefaultPerPage},
		{"NegativeInputs", -3, -5, 1, DefaultPerPage},
		{"PassThrough", 2, 25, 2, 25},
		{"CappedPerPage", 1, 5000, 1, MaxPerPage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, perPage := NormalizePage(tc.page, tc.perPage)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantN, perPage)
		})
	}
}
