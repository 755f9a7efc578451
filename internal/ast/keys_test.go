package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeysByLength_LongestFirst(t *testing.T) {
	keys := KeysByLength()
	assert.Len(t, keys, len(Keys()))
	for i := 1; i < len(keys); i++ {
		assert.GreaterOrEqual(t, len(keys[i-1]), len(keys[i]),
			"%q must not come after the shorter %q", keys[i-1], keys[i])
	}
}

func TestKeysByLength_PrefixPairsOrdered(t *testing.T) {
	// Every key that is a prefix of another must sort after it.
	index := make(map[Key]int)
	for i, k := range KeysByLength() {
		index[k] = i
	}
	assert.Less(t, index[KeyMessagesAfter], index[KeyMessages])
	assert.Less(t, index[KeyMessagesBefore], index[KeyMessages])
	assert.Less(t, index[KeyLastFrom], index[KeyFrom])
	assert.Less(t, index[KeyReading], index[KeyRead])
}

func TestKnownKey(t *testing.T) {
	assert.True(t, KnownKey("from"))
	assert.True(t, KnownKey("messages_after"))
	assert.False(t, KnownKey("fro"))
	assert.False(t, KnownKey("FROM"))
}
