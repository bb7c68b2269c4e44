package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BridgeImporter talks to the external migration bridge, the service with
// direct access to the source punishment database (litebans and friends).
type BridgeImporter struct {
	baseURL    string
	httpClient *http.Client
}

// NewBridgeImporter constructs a bridge-backed importer.
func NewBridgeImporter(baseURL string) *BridgeImporter {
	return &BridgeImporter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type buildExportResponse struct {
	Location     string `json:"location"`
	TotalRecords int    `json:"totalRecords"`
}

// BuildExport asks the bridge to dump the source system into a JSON export.
func (c *BridgeImporter) BuildExport(ctx context.Context, tenant, migrationType string) (Export, error) {
	payload, err := json.Marshal(map[string]string{"tenant": tenant, "type": migrationType})
	if err != nil {
		return Export{}, err
	}
	body, err := c.post(ctx, "/export", payload)
	if err != nil {
		return Export{}, err
	}
	var resp buildExportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Export{}, fmt.Errorf("decode export response: %w", err)
	}
	return Export{Location: resp.Location, TotalRecords: resp.TotalRecords}, nil
}

// Upload pushes the built export to the panel's ingest storage.
func (c *BridgeImporter) Upload(ctx context.Context, tenant string, exp Export) error {
	payload, err := json.Marshal(map[string]string{"tenant": tenant, "location": exp.Location})
	if err != nil {
		return err
	}
	_, err = c.post(ctx, "/upload", payload)
	return err
}

type processResponse struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// Process ingests the uploaded export into the panel's data store.
func (c *BridgeImporter) Process(ctx context.Context, tenant string, exp Export) (int, int, error) {
	payload, err := json.Marshal(map[string]string{"tenant": tenant, "location": exp.Location})
	if err != nil {
		return 0, 0, err
	}
	body, err := c.post(ctx, "/process", payload)
	if err != nil {
		return 0, 0, err
	}
	var resp processResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, 0, fmt.Errorf("decode process response: %w", err)
	}
	return resp.Processed, resp.Skipped, nil
}

func (c *BridgeImporter) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bridge %s returned status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var _ Importer = (*BridgeImporter)(nil)
