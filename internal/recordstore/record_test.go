package recordstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/ir"
)

func TestRecord_Get(t *testing.T) {
	r := Record{ID: 7, Fields: ir.NewObject(ir.P("name", ir.String("ada")))}

	assert.Equal(t, ir.Number(7), r.Get("id"))
	assert.Equal(t, ir.String("ada"), r.Get("name"))
	assert.Equal(t, ir.Null{}, r.Get("missing"))
}

func TestRecord_MarshalJSON(t *testing.T) {
	r := Record{ID: 3, Fields: ir.NewObject(
		ir.P("b", ir.String("x")),
		ir.P("a", ir.Number(1.5)),
		ir.P("blob", ir.Bytes("hi")),
	)}

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1.5,"b":"x","blob":"aGk=","id":3}`, string(data))
	assert.NotContains(t, r.Fields, "id", "marshalling must not mutate the record")
}

func TestRecord_MarshalJSONEmpty(t *testing.T) {
	data, err := Record{ID: 1}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(data))
}
