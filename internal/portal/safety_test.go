package portal

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The safe path must never be able to reach the portal's final submit
// button, even by accident. That isolation is structural: the selector and
// the only code that presses it live in finalsubmit.go and nowhere else.
// These tests pin the structure down at the source level, the strongest
// check available without a live portal.

var safePathFiles = []string{
	"client.go",
	"components.go",
	"supplier.go",
	"verify.go",
	"dates.go",
	"selectors.go",
	"artifacts.go",
	"errors.go",
	"context.go",
}

func TestSafePathNeverReferencesFinalSubmitButton(t *testing.T) {
	t.Parallel()

	for _, name := range safePathFiles {
		src, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.NotContains(t, string(src), "#btnSubmit", name)
		assert.NotContains(t, string(src), "finalSubmitButton", name)
	}
}

func TestFinalSubmitPathTargetsTheRealButton(t *testing.T) {
	t.Parallel()

	src, err := os.ReadFile("finalsubmit.go")
	require.NoError(t, err)
	assert.Contains(t, string(src), "#btnSubmit")
}
