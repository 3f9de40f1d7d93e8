package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fleetdocs/internal/model"
)

func (c *Client) DocumentContent(ctx context.Context, documentID string) (*model.FileContent, error) {
	return c.getContent(ctx, "/api/documents/"+url.PathEscape(documentID)+"/content", "document content")
}

func (c *Client) ArchivedContent(ctx context.Context, archivedID string) (*model.FileContent, error) {
	return c.getContent(ctx, "/api/archived-documents/"+url.PathEscape(archivedID)+"/content", "archived content")
}

func (c *Client) getContent(ctx context.Context, path, operation string) (*model.FileContent, error) {
	if c.restBase == "" {
		return nil, fmt.Errorf("%s: rest base url is not configured", operation)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restBase+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, formatHTTPError(operation, resp)
	}

	var w wireContent
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}
	return &model.FileContent{Filename: w.Filename, MimeType: w.MimeType, Content: w.Content}, nil
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%s status: %s", operation, resp.Status)
	}
	return fmt.Errorf("%s status: %s: %s", operation, resp.Status, msg)
}
