package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSortDir(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"  ASC  ", "ASC"},
		{"sideways", "DESC"},
		{"ASC; DROP TABLE due_payments;--", "DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeSortDir(tt.input))
		})
	}
}

func TestSortColumns_OrderBy(t *testing.T) {
	tests := []struct {
		name string
		key  string
		dir  string
		want string
	}{
		{"default column", "", "", "payment_date DESC, id DESC"},
		{"allowed column ascending", "amount", "asc", "amount ASC, id ASC"},
		{"whitespace is trimmed", " created_at ", "desc", "created_at DESC, id DESC"},
		{"unknown column falls back", "note", "asc", "payment_date ASC, id ASC"},
		{"injection falls back", "amount; DROP TABLE orders;--", "", "payment_date DESC, id DESC"},
		{"keys are case sensitive", "AMOUNT", "", "payment_date DESC, id DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, duePaymentSort.orderBy(tt.key, tt.dir, "payment_date"))
		})
	}
}
