package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrors checks that err, translated by v, holds detail for field key.
func AssertErrors(t *testing.T, err error, key, detail string, v *Validator) {
	t.Helper()

	errs := v.ParseValidationErrors(err)
	for _, ve := range errs {
		if ve.Field == key {
			assert.Equal(t, detail, ve.Detail)
			return
		}
	}
	require.Failf(t, "missing validation error", "no error for %s in %v", key, errs)
}
