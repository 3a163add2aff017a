// internal/pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client 是一个可追踪、可注入的 JSON HTTP 客户端。
// 不在 http.Client 上设置全局 Timeout，超时完全由每次调用传入的 context 控制。
type Client struct {
	tracer     trace.Tracer
	httpClient *http.Client
}

// NewClient 创建一个新的客户端实例，连接池在实例内复用。
func NewClient(tracer trace.Tracer) *Client {
	return &Client{
		tracer: tracer,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// DoJSON 发送一个 JSON 请求并把 2xx 响应体解码到 out（out 可为 nil）。
// 返回 HTTP 状态码，调用方据此把 404/409 之类映射成领域错误。
// 非 2xx 不算传输错误：状态码原样返回，响应体丢弃。
func (c *Client) DoJSON(ctx context.Context, method, rawURL string, body, out interface{}) (int, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return 0, err
	}
	spanName := fmt.Sprintf("call-%s", strings.Split(parsedURL.Host, ":")[0])

	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			span.RecordError(err)
			return 0, err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", rawURL),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return 0, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			return resp.StatusCode, fmt.Errorf("decode response body: %w", err)
		}
		return resp.StatusCode, nil
	}

	// 把响应体读完，让连接可以复用
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, fmt.Sprintf("upstream returned %d", resp.StatusCode))
	}
	return resp.StatusCode, nil
}
