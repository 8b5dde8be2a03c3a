package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"energy_service/internal/domain/model"
)

// HTTPMLClient talks to the model server over JSON.
type HTTPMLClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPMLClient(endpoint string, timeout time.Duration) *HTTPMLClient {
	return &HTTPMLClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type MLRequest struct {
	Instances [][]float64 `json:"instances"`
}

type MLResponse struct {
	Predictions []float64 `json:"predictions"`
}

func (c *HTTPMLClient) Predict(ctx context.Context, features []float64) (float64, error) {
	body, err := json.Marshal(MLRequest{Instances: [][]float64{features}})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ML request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create ML request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ML service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ML service returned status: %d", resp.StatusCode)
	}

	var mlResp MLResponse
	if err := json.NewDecoder(resp.Body).Decode(&mlResp); err != nil {
		return 0, fmt.Errorf("failed to decode ML response: %w", err)
	}
	if len(mlResp.Predictions) != 1 {
		return 0, fmt.Errorf("ML service returned %d predictions for 1 instance", len(mlResp.Predictions))
	}

	return mlResp.Predictions[0], nil
}

func (c *HTTPMLClient) GetModelMetadata(ctx context.Context) (*model.ModelMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/metadata", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get model metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ML service returned error: %s", resp.Status)
	}

	var meta model.ModelMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &meta, nil
}
