package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAutoCreates(t *testing.T) {
	r := NewRecorder()

	r.Append("orders", Row{Time: 1, Data: map[string]any{"orderID": int64(1)}})
	r.Append("orders", Row{Time: 2, Data: map[string]any{"orderID": int64(2)}})

	out := r.Export()
	require.Len(t, out["orders"], 2)
	assert.EqualValues(t, 1, out["orders"][0].Time)
	assert.Equal(t, int64(2), out["orders"][1].Data["orderID"])
}

func TestCreateLogIdempotent(t *testing.T) {
	r := NewRecorder()

	r.CreateLog("balances")
	r.Append("balances", Row{Time: 1})
	r.CreateLog("balances")

	out := r.Export()
	require.Len(t, out["balances"], 1)
	assert.Equal(t, []string{"balances"}, r.Keys())
}

func TestKeysInCreationOrder(t *testing.T) {
	r := NewRecorder()

	r.Append("orders", Row{})
	r.CreateLog("executions")
	r.Append("balances", Row{})
	r.Append("executions", Row{})

	assert.Equal(t, []string{"orders", "executions", "balances"}, r.Keys())
}

func TestExportIsACopy(t *testing.T) {
	r := NewRecorder()
	r.Append("orders", Row{Time: 1})

	out := r.Export()
	out["orders"][0].Time = 99
	out["orders"] = append(out["orders"], Row{Time: 2})

	again := r.Export()
	require.Len(t, again["orders"], 1)
	assert.EqualValues(t, 1, again["orders"][0].Time)
}
