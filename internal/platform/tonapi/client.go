// Package tonapi is a REST client for the tonapi.io v2 HTTP API, used to
// verify incoming TON transfers by transaction comment.
package tonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// Client is the REST client for the TON HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new TON API client.
//
// baseURL is the API root, e.g. "https://tonapi.io". apiKey may be empty for
// unauthenticated access at reduced rate limits.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetAccountTransactions returns the most recent transactions of an account,
// newest first.
func (c *Client) GetAccountTransactions(ctx context.Context, account string, limit int) ([]Transaction, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := fmt.Sprintf("/v2/accounts/%s/transactions", url.PathEscape(account))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, fmt.Errorf("tonapi: get transactions for %s: %w", account, err)
	}

	var resp transactionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tonapi: decode transactions: %w", err)
	}

	return resp.Transactions, nil
}

// FindTransferByComment scans the account's recent transactions for a
// successful incoming transfer whose decoded comment contains the given
// token. It returns domain.ErrNotFound when no transaction matches.
func (c *Client) FindTransferByComment(ctx context.Context, account, token string, limit int) (Transaction, error) {
	txs, err := c.GetAccountTransactions(ctx, account, limit)
	if err != nil {
		return Transaction{}, err
	}

	for _, tx := range txs {
		if !tx.Success || tx.InMsg == nil {
			continue
		}
		if strings.Contains(tx.InMsg.DecodedBody.Text, token) {
			return tx, nil
		}
	}

	return Transaction{}, domain.ErrNotFound
}

func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("not found: %s: %w", apiErr.Error, domain.ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s: %w", apiErr.Error, domain.ErrRateLimited)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("HTTP %d: %s: %w", statusCode, apiErr.Error, domain.ErrExternalUnavailable)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Error)
	}
}
