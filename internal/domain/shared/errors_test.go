package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	t.Run("Is matches by code", func(t *testing.T) {
		err := fmt.Errorf("save payment: %w", NewConsistencyError("CONCURRENT_MODIFICATION", "stale"))
		assert.True(t, errors.Is(err, ErrConcurrencyConflict))
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("KindOf unwraps", func(t *testing.T) {
		assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("x: %w", ErrNotFound)))
		assert.Equal(t, KindValidation, KindOf(NewDomainError("BAD", "bad")))
		assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	})
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 0}.Normalize(0, 0)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)

	f = Filter{Page: 3, PageSize: 500}.Normalize(10, 50)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, 100, f.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 5, 1, 2)
	assert.Equal(t, 3, p.TotalPages)

	empty := NewPaginated([]int{}, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
