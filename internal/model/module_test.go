package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModule(t *testing.T) {
	m, err := ParseModule("  Vehicle ")
	assert.NoError(t, err)
	assert.Equal(t, ModuleVehicle, m)

	_, err = ParseModule("trailer")
	assert.ErrorIs(t, err, ErrInvalidModule)

	_, err = ParseModule("")
	assert.ErrorIs(t, err, ErrInvalidModule)
}

func TestDisplayName(t *testing.T) {
	a := DocumentTypeAssignment{DocumentTypeID: "dt-1"}
	assert.Equal(t, "dt-1", a.DisplayName())

	a.DocumentType.Name = "Insurance"
	assert.Equal(t, "Insurance", a.DisplayName())
}
