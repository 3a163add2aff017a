package mq

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockUpdatedEnvelope(t *testing.T) {
	event := NewStockUpdated("item-1", 25)

	assert.Equal(t, EventStockUpdated, event.Event)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "item-1", event.Data.ItemID)
	assert.Equal(t, int64(25), event.Data.Quantity)
	assert.False(t, event.OccurredAt.IsZero())

	// 线上的 JSON 形态要带嵌套 data
	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event":"stock_updated"`)
	assert.Contains(t, string(body), `"data":{"itemId":"item-1","quantity":25}`)
}

func TestParseStockUpdatedNestedEnvelope(t *testing.T) {
	body := []byte(`{"event":"stock_updated","eventId":"abc-123","data":{"itemId":"item-7","quantity":12}}`)

	event, err := ParseStockUpdated(body)
	require.NoError(t, err)
	assert.Equal(t, "stock_updated", event.Event)
	assert.Equal(t, "abc-123", event.EventID)
	assert.Equal(t, "item-7", event.Data.ItemID)
	assert.Equal(t, int64(12), event.Data.Quantity)
}

// 旧格式把 itemId/quantity 平铺在顶层，也要能解析。
func TestParseStockUpdatedLegacyFlat(t *testing.T) {
	body := []byte(`{"itemId":"item-7","quantity":0}`)

	event, err := ParseStockUpdated(body)
	require.NoError(t, err)
	assert.Equal(t, EventStockUpdated, event.Event)
	assert.Empty(t, event.EventID)
	assert.Equal(t, "item-7", event.Data.ItemID)
	assert.Equal(t, int64(0), event.Data.Quantity)
}

func TestParseStockUpdatedPrefersNestedData(t *testing.T) {
	body := []byte(`{"data":{"itemId":"nested","quantity":5},"itemId":"flat","quantity":99}`)

	event, err := ParseStockUpdated(body)
	require.NoError(t, err)
	assert.Equal(t, "nested", event.Data.ItemID)
	assert.Equal(t, int64(5), event.Data.Quantity)
}

func TestParseStockUpdatedRejectsUnknownShapes(t *testing.T) {
	_, err := ParseStockUpdated([]byte(`{"hello":"world"}`))
	assert.ErrorIs(t, err, ErrUnknownEventShape)

	_, err = ParseStockUpdated([]byte(`not json at all`))
	assert.Error(t, err)

	_, err = ParseStockUpdated([]byte(`{"data":{"quantity":5}}`))
	assert.ErrorIs(t, err, ErrUnknownEventShape)
}
