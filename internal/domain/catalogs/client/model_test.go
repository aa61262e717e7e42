package client

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
)

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, apperror.CodeValidation, appErr.Code)
	field, _ := appErr.Details["field"].(string)
	return field
}

func TestClient_ReferencePersonRule(t *testing.T) {
	ctx := context.Background()

	org := NewClient(TypeOrganization, "Acme SARL", "+22890000000", "")
	assert.Equal(t, "referencePerson", fieldOf(t, org.Validate(ctx)))

	org.ReferencePerson = "   "
	assert.Equal(t, "referencePerson", fieldOf(t, org.Validate(ctx)))

	org.ReferencePerson = "K. Mensah"
	assert.NoError(t, org.Validate(ctx))

	individual := NewClient(TypeIndividual, "Ama", "+22891111111", "")
	assert.NoError(t, individual.Validate(ctx))
}

func TestClient_Validate(t *testing.T) {
	ctx := context.Background()

	cases := map[string]*Client{
		"type":  NewClient(Type("COMPANY"), "x", "1", ""),
		"name":  NewClient(TypeIndividual, " ", "1", ""),
		"phone": NewClient(TypeIndividual, "x", strings.Repeat("9", 21), ""),
	}
	for field, c := range cases {
		t.Run(field, func(t *testing.T) {
			assert.Equal(t, field, fieldOf(t, c.Validate(ctx)))
		})
	}

	noPhone := NewClient(TypeIndividual, "x", "", "")
	assert.Equal(t, "phone", fieldOf(t, noPhone.Validate(ctx)))
}
