package interactive

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoConfirmer(t *testing.T) {
	ok, err := NewConfirmer(true).Confirm("Submit?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLineConfirmer(t *testing.T) {
	var out bytes.Buffer
	c := LineConfirmer{In: strings.NewReader("yes\n"), Out: &out}

	ok, err := c.Confirm("Submit bond?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Submit bond?")
}

func TestHandleInterruptError(t *testing.T) {
	assert.ErrorIs(t, handleInterruptError(promptui.ErrInterrupt), ErrCancelled)
	assert.ErrorIs(t, handleInterruptError(promptui.ErrEOF), ErrCancelled)

	other := errors.New("boom")
	assert.Equal(t, other, handleInterruptError(other))
}
