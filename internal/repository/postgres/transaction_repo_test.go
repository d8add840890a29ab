package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMetadata(t *testing.T) {
	metadata, err := decodeMetadata([]byte(`{"purpose":"service_charge","invoice_id":"8c0f7c0a-0f3e-4a2b-9a6e-1f9a3b2c4d5e"}`))
	require.NoError(t, err)

	assert.Equal(t, "service_charge", metadata["purpose"])
}

func TestDecodeMetadata_EmptyColumn(t *testing.T) {
	metadata, err := decodeMetadata(nil)
	require.NoError(t, err)

	assert.Nil(t, metadata)
}

func TestDecodeMetadata_CorruptValue(t *testing.T) {
	_, err := decodeMetadata([]byte(`{"purpose":`))

	assert.Error(t, err)
}
