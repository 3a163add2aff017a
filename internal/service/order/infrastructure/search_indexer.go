// internal/service/order/infrastructure/search_indexer.go
package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	pkgerrors "github.com/pkg/errors"

	"stockflow/internal/service/order/domain"
)

const stockLogsIndex = "stock-logs"

// ElasticsearchIndexer 实现 port.SearchIndexer，
// 把审计条目写进 stock-logs 索引供检索。调用方按尽力而为处理失败。
type ElasticsearchIndexer struct {
	client *elasticsearch.Client
}

func NewElasticsearchIndexer(url string) (*ElasticsearchIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create elasticsearch client")
	}
	return &ElasticsearchIndexer{client: client}, nil
}

func (i *ElasticsearchIndexer) IndexStockLog(ctx context.Context, log *domain.StockLog) error {
	doc := map[string]interface{}{
		"eventId":  log.EventID,
		"itemId":   log.ItemID,
		"quantity": log.Quantity,
		"event":    log.Event,
		"loggedAt": log.CreatedAt,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal stock log document")
	}

	res, err := i.client.Index(
		stockLogsIndex,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return pkgerrors.Wrap(err, "index stock log")
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index stock log: %s", res.Status())
	}
	return nil
}
