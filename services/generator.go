package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ethics-review-api/models"
)

// ArtifactSnapshot is the data record handed to the external document
// generator. The core owns what goes in; the generator owns the PDF
// byte layout.
type ArtifactSnapshot struct {
	Submission models.Submission `json:"submission"`
	Researcher models.User       `json:"researcher"`
	Reviews    []models.Review   `json:"reviews"`
}

// DocumentGenerator produces a PDF byte stream for one approval
// artifact kind from a submission snapshot.
type DocumentGenerator interface {
	Generate(ctx context.Context, kind models.DocumentType, snapshot ArtifactSnapshot) ([]byte, error)
}

// RenderServiceClient calls the external render service over HTTP. It
// POSTs the snapshot as JSON to /render/{kind} and expects PDF bytes
// back.
type RenderServiceClient struct {
	baseURL string
	client  *http.Client
}

func NewRenderServiceClient(baseURL string) *RenderServiceClient {
	return &RenderServiceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *RenderServiceClient) Generate(ctx context.Context, kind models.DocumentType, snapshot ArtifactSnapshot) ([]byte, error) {
	if !kind.IsArtifact() {
		return nil, fmt.Errorf("unsupported artifact kind %q", kind)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	url := fmt.Sprintf("%s/render/%s", c.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("render service returned %d: %s", resp.StatusCode, string(body))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered document: %w", err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("render service returned an empty document for %q", kind)
	}
	return pdf, nil
}
