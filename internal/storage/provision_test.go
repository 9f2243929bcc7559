package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvisionedAccountID(t *testing.T) {
	assert.Equal(t, "ACC-00000000", ProvisionedAccountID(0))
	assert.Equal(t, "ACC-00012345", ProvisionedAccountID(12345))
}

func TestChunks(t *testing.T) {
	assert.Nil(t, Chunks(0, 10))
	assert.Equal(t, []Chunk{{0, 10}, {10, 20}, {20, 25}}, Chunks(25, 10))
	assert.Equal(t, []Chunk{{0, 3}}, Chunks(3, 10))
	assert.Len(t, Chunks(DefaultChunkSize+1, 0), 2)
}
