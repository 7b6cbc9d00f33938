package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPassGenerator(t *testing.T) {
	assert.Equal(t, "test-pass", NewFixedPassGenerator("").Generate())

	gen := NewFixedPassGenerator("pass-1")
	assert.Equal(t, "pass-1", gen.Generate())
	assert.Equal(t, "pass-1", gen.Generate())
}
