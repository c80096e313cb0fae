package middleware

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moneyInput struct {
	Amount   string  `json:"amount" validate:"required,decimal_gt0"`
	Discount string  `json:"discount" validate:"omitempty,decimal_gte0"`
	Paid     *string `json:"paid" validate:"omitempty,decimal_gte0"`
}

func TestRegisterValidations(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidations(v))

	neg := "-1"
	zero := "0"
	tests := []struct {
		name   string
		input  moneyInput
		fields []string
	}{
		{"valid", moneyInput{Amount: "10.50", Discount: "0"}, nil},
		{"valid pointer", moneyInput{Amount: "1", Paid: &zero}, nil},
		{"zero amount", moneyInput{Amount: "0"}, []string{"amount"}},
		{"not a number", moneyInput{Amount: "ten"}, []string{"amount"}},
		{"missing amount", moneyInput{}, []string{"amount"}},
		{"negative discount", moneyInput{Amount: "5", Discount: "-0.01"}, []string{"discount"}},
		{"negative pointer", moneyInput{Amount: "5", Paid: &neg}, []string{"paid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			details := ValidationDetails(err)
			require.Len(t, details, len(tt.fields))
			for i, field := range tt.fields {
				assert.Equal(t, field, details[i].Field)
				assert.NotEqual(t, "Invalid value", details[i].Message)
			}
		})
	}
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
