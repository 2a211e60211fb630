package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
)

const dasPageLimit = 1000

// DASClient queries the digital asset indexer for assets held by an owner
type DASClient struct {
	endpoint string
	client   *http.Client
}

// NewDASClient creates an indexer client for endpoint
func NewDASClient(endpoint string, timeout time.Duration) *DASClient {
	return &DASClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type dasRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type dasError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type dasResponse struct {
	Result *struct {
		Items []dasAsset `json:"items"`
	} `json:"result"`
	Error *dasError `json:"error"`
}

type dasAsset struct {
	ID          string `json:"id"`
	Authorities []struct {
		Address string `json:"address"`
	} `json:"authorities"`
	Content *struct {
		JSONURI  *string `json:"json_uri"`
		Metadata *struct {
			Name   *string `json:"name"`
			Symbol *string `json:"symbol"`
		} `json:"metadata"`
	} `json:"content"`
	TokenInfo *core.TokenBalance `json:"token_info"`
}

// AssetsByOwner returns the first page of assets held by owner, fungible tokens included
func (c *DASClient) AssetsByOwner(ctx context.Context, owner string) ([]core.IndexedAsset, error) {
	payload, err := json.Marshal(dasRequest{
		JSONRPC: "2.0",
		ID:      "carbx",
		Method:  "getAssetsByOwner",
		Params: map[string]any{
			"ownerAddress": owner,
			"page":         1,
			"limit":        dasPageLimit,
			"displayOptions": map[string]bool{
				"showFungible":      true,
				"showNativeBalance": false,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal indexer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &core.RequestError{Method: http.MethodPost, Path: "getAssetsByOwner", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close indexer response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.RequestError{Method: http.MethodPost, Path: "getAssetsByOwner", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.RequestError{Method: http.MethodPost, Path: "getAssetsByOwner", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded dasResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode indexer response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("getAssetsByOwner: %d %s", decoded.Error.Code, decoded.Error.Message)
	}
	if decoded.Result == nil {
		return []core.IndexedAsset{}, nil
	}

	assets := make([]core.IndexedAsset, 0, len(decoded.Result.Items))
	for _, item := range decoded.Result.Items {
		asset := core.IndexedAsset{ID: item.ID, TokenInfo: item.TokenInfo}
		for _, authority := range item.Authorities {
			asset.Authorities = append(asset.Authorities, authority.Address)
		}
		if item.Content != nil {
			asset.JSONURI = item.Content.JSONURI
			if item.Content.Metadata != nil {
				asset.Name = item.Content.Metadata.Name
				asset.Symbol = item.Content.Metadata.Symbol
			}
		}
		assets = append(assets, asset)
	}

	logger.DebugCtx(ctx, "indexer assets fetched", zap.String("owner", owner), zap.Int("count", len(assets)))
	return assets, nil
}
