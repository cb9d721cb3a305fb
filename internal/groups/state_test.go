package groups

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardSet_JSON(t *testing.T) {
	s := NewCardSet("3", "00001", "", "2")
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["00001","00002","00003"]`, string(data))

	empty, err := json.Marshal(CardSet{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))

	var legacy CardSet
	require.NoError(t, json.Unmarshal([]byte(`{"1":true,"2":0,"3":1,"4":"yes"}`), &legacy))
	assert.Equal(t, []string{"00001", "00003", "00004"}, legacy.Sorted())

	var null CardSet
	require.NoError(t, json.Unmarshal([]byte(`null`), &null))
	assert.Equal(t, 0, null.Len())

	var bad CardSet
	assert.Error(t, json.Unmarshal([]byte(`12`), &bad))
}

func TestCardSet_Hash(t *testing.T) {
	a := NewCardSet("2", "1")
	b := NewCardSet("00001", "00002")
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, "00001,00002", a.Hash())

	c := a.Clone()
	c.Toggle("3")
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestDecodeState_Versions(t *testing.T) {
	st, err := decodeState(`{"order":["a"],"groups":{"a":{"name":"A","cards":[]}}}`)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, st.V)

	_, err = decodeState(`{"v":2}`)
	assert.Error(t, err)

	_, err = decodeState(`nope`)
	assert.Error(t, err)
}

func TestDefaultOfficialMeta(t *testing.T) {
	meta := DefaultOfficialMeta()
	assert.Positive(t, meta.Ver)
	assert.NotEmpty(t, meta.Cards)

	_, err := ParseOfficialMeta([]byte(`{"ver":0,"cards":[]}`))
	assert.Error(t, err)
}
