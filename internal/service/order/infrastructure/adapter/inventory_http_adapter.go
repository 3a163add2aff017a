// internal/service/order/infrastructure/adapter/inventory_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"

	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

// InventoryHTTPAdapter 实现了 port.InventoryClient 接口。
// 库存服务的响应信封是 {message, data}，这里只取 data。
type InventoryHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewInventoryHTTPAdapter(client *httpclient.Client, baseURL string) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client, baseURL: baseURL}
}

type itemEnvelope struct {
	Message string           `json:"message"`
	Data    *port.RemoteItem `json:"data"`
}

func (a *InventoryHTTPAdapter) GetItem(ctx context.Context, itemID string) (*port.RemoteItem, error) {
	var envelope itemEnvelope
	url := fmt.Sprintf("%s/items/%s", a.baseURL, itemID)

	status, err := a.client.DoJSON(ctx, http.MethodGet, url, nil, &envelope)
	if err != nil {
		// 连接失败和超时都算上游不可用
		return nil, pkgerrors.Wrapf(domain.ErrUpstreamUnavailable, "get item: %v", err)
	}

	switch {
	case status == http.StatusOK && envelope.Data != nil:
		return envelope.Data, nil
	case status == http.StatusNotFound:
		return nil, domain.ErrItemNotFound
	default:
		return nil, pkgerrors.Wrapf(domain.ErrUpstreamUnavailable, "get item: unexpected status %d", status)
	}
}

func (a *InventoryHTTPAdapter) ReserveStock(ctx context.Context, itemID string, quantity int64) (*port.RemoteItem, error) {
	var envelope itemEnvelope
	url := fmt.Sprintf("%s/items/stock/%s/reserve", a.baseURL, itemID)
	body := map[string]int64{"quantity": quantity}

	status, err := a.client.DoJSON(ctx, http.MethodPost, url, body, &envelope)
	if err != nil {
		return nil, pkgerrors.Wrapf(domain.ErrUpstreamUnavailable, "reserve stock: %v", err)
	}

	switch {
	case status == http.StatusOK && envelope.Data != nil:
		return envelope.Data, nil
	case status == http.StatusNotFound:
		return nil, domain.ErrItemNotFound
	case status == http.StatusConflict:
		return nil, domain.ErrInsufficientStock
	default:
		return nil, pkgerrors.Wrapf(domain.ErrUpstreamUnavailable, "reserve stock: unexpected status %d", status)
	}
}
