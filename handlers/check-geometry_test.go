package handlers

import (
	"testing"

	"github.com/bsaid97/go-attribute-transfer/layers"
	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckGeometry(t *testing.T) {
	layer := layers.NewMemoryLayer("parcels", nil)
	layer.Add(mustWKT(t, "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))"))
	layer.Add(nil)
	layer.Add(mustWKT(t, "POLYGON ((0 0, 10 10, 10 0, 0 10, 0 0))"))

	issues := CheckGeometry(layer)
	require.Len(t, issues, 2)

	assert.Equal(t, Error{Ref: 1, ErrorMessage: "missing geometry"}, issues[0])
	assert.Equal(t, transfer.FeatureID(2), issues[1].Ref)
	assert.Contains(t, issues[1].ErrorMessage, "Self-intersection")
}

func TestCheckGeometry_Clean(t *testing.T) {
	layer := layers.NewMemoryLayer("parcels", nil)
	layer.Add(mustWKT(t, "POINT (1 1)"))

	issues := CheckGeometry(layer)
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
}
