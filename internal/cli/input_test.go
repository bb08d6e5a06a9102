package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/pkg/domain"
)

func TestReadRequest(t *testing.T) {
	t.Run("Bare patient", func(t *testing.T) {
		req, err := ReadRequestFile("testdata/patient.json", nil)
		require.NoError(t, err)
		assert.Empty(t, req.ID)
		assert.Equal(t, 28, req.Patient.Demographics.Age)
		assert.Equal(t, domain.SexFemale, req.Patient.Demographics.Sex)
		assert.True(t, req.Patient.Symptoms.Dysuria)
	})

	t.Run("Wrapped with id from stdin", func(t *testing.T) {
		in := strings.NewReader(`{"id": "a-1", "patient": {"demographics": {"age": 40, "sex": "male", "pregnancy_status": "no"}}}`)
		req, err := ReadRequestFile("-", in)
		require.NoError(t, err)
		assert.Equal(t, "a-1", req.ID)
		assert.Equal(t, domain.SexMale, req.Patient.Demographics.Sex)
	})

	t.Run("Unknown field rejected", func(t *testing.T) {
		_, err := ReadRequest(strings.NewReader(`{"symptoms": {"dysurea": true}}`))
		assert.ErrorContains(t, err, "dysurea")
	})

	t.Run("Not an object", func(t *testing.T) {
		_, err := ReadRequest(strings.NewReader(`[1, 2]`))
		assert.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := ReadRequestFile("testdata/missing.json", nil)
		assert.Error(t, err)
	})
}
