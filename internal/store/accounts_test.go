package store

import (
	"testing"

	"github.com/smartfarm-iot/apiserver/types"
	"github.com/stretchr/testify/assert"
)

func TestHeldByOther(t *testing.T) {
	self := types.Account{UID: "uid-1", Username: "rizki"}
	other := types.Account{UID: "uid-2", Username: "rizki"}

	assert.False(t, heldByOther(nil, "uid-1"))
	assert.False(t, heldByOther([]types.Account{self}, "uid-1"))
	assert.True(t, heldByOther([]types.Account{other}, "uid-1"))

	// The excluded account must not shadow a second holder fetched
	// behind it.
	assert.True(t, heldByOther([]types.Account{self, other}, "uid-1"))
}
