package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/machinebox/graphql"
	"golang.org/x/time/rate"

	"fleetdocs/internal/model"
	"fleetdocs/internal/resilience"
)

// Options configures a Client. Zero values disable the optional parts.
type Options struct {
	Token       string
	RESTBaseURL string
	HTTPClient  *http.Client
	Executor    *resilience.Executor
	Limiter     *rate.Limiter
}

// Client talks to the fleet GraphQL API and its REST preview endpoints.
// It is safe for concurrent use.
type Client struct {
	gql        *graphql.Client
	httpClient *http.Client
	restBase   string
	token      string
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

var (
	_ DocumentAPI = (*Client)(nil)
	_ ContentAPI  = (*Client)(nil)
)

func New(endpoint string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		gql:        graphql.NewClient(endpoint, graphql.WithHTTPClient(hc)),
		httpClient: hc,
		restBase:   strings.TrimRight(opts.RESTBaseURL, "/"),
		token:      opts.Token,
		executor:   opts.Executor,
		limiter:    opts.Limiter,
	}
}

func (c *Client) ListAssignments(ctx context.Context, module model.Module) ([]model.DocumentTypeAssignment, error) {
	var resp struct {
		DocumentTypeAssignments []wireAssignment `json:"documentTypeAssignments"`
	}
	if err := c.query(ctx, "documentTypeAssignments", queryAssignments, map[string]any{"module": module.String()}, &resp); err != nil {
		return nil, err
	}
	out := make([]model.DocumentTypeAssignment, 0, len(resp.DocumentTypeAssignments))
	for _, w := range resp.DocumentTypeAssignments {
		out = append(out, model.DocumentTypeAssignment{
			ID:             w.ID,
			DocumentTypeID: w.DocumentTypeID,
			Module:         model.Module(w.Module),
			Mandatory:      w.Mandatory,
			Active:         w.Active,
			DocumentType:   w.DocumentType.toModel(),
		})
	}
	return out, nil
}

func (c *Client) ListDocuments(ctx context.Context, module model.Module, entityID string) ([]model.DocumentRecord, error) {
	var resp struct {
		EntityDocuments []wireDocument `json:"entityDocuments"`
	}
	vars := map[string]any{"module": module.String(), "entityId": entityID}
	if err := c.query(ctx, "entityDocuments", queryDocuments, vars, &resp); err != nil {
		return nil, err
	}
	out := make([]model.DocumentRecord, 0, len(resp.EntityDocuments))
	for _, w := range resp.EntityDocuments {
		out = append(out, w.toModel())
	}
	return out, nil
}

func (c *Client) ListArchived(ctx context.Context, module model.Module, entityID string) ([]model.ArchivedDocumentRecord, error) {
	var resp struct {
		ArchivedDocuments []wireArchived `json:"archivedDocuments"`
	}
	vars := map[string]any{"module": module.String(), "entityId": entityID}
	if err := c.query(ctx, "archivedDocuments", queryArchived, vars, &resp); err != nil {
		return nil, err
	}
	out := make([]model.ArchivedDocumentRecord, 0, len(resp.ArchivedDocuments))
	for _, w := range resp.ArchivedDocuments {
		out = append(out, w.toModel())
	}
	return out, nil
}

func (c *Client) ListArchivedPage(ctx context.Context, q ArchiveQuery) (*model.Page[model.ArchivedDocumentRecord], error) {
	var resp struct {
		Page struct {
			Total int            `json:"total"`
			Items []wireArchived `json:"items"`
		} `json:"archivedDocumentsPage"`
	}
	vars := map[string]any{
		"module": q.Module.String(),
		"limit":  q.Limit,
		"offset": q.Offset,
	}
	if q.EntityID != "" {
		vars["entityId"] = q.EntityID
	}
	if err := c.query(ctx, "archivedDocumentsPage", queryArchivedPage, vars, &resp); err != nil {
		return nil, err
	}
	items := make([]model.ArchivedDocumentRecord, 0, len(resp.Page.Items))
	for _, w := range resp.Page.Items {
		items = append(items, w.toModel())
	}
	return &model.Page[model.ArchivedDocumentRecord]{Items: items, Total: resp.Page.Total}, nil
}

func (c *Client) SystemConfigValue(ctx context.Context, key string) (string, error) {
	var resp struct {
		SystemConfiguration *struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"systemConfiguration"`
	}
	if err := c.query(ctx, "systemConfiguration", querySystemConfig, map[string]any{"key": key}, &resp); err != nil {
		return "", err
	}
	if resp.SystemConfiguration == nil {
		return "", nil
	}
	return resp.SystemConfiguration.Value, nil
}

func (c *Client) Upload(ctx context.Context, in UploadInput) (*model.DocumentRecord, error) {
	var resp struct {
		UploadDocument *wireDocument `json:"uploadDocument"`
	}
	vars := map[string]any{"input": map[string]any{
		"module":         in.Module.String(),
		"entityId":       in.EntityID,
		"documentTypeId": in.DocumentTypeID,
		"filename":       in.Filename,
		"contentType":    in.ContentType,
		"content":        in.Content,
	}}
	if err := c.mutate(ctx, "uploadDocument", mutationUpload, vars, &resp); err != nil {
		return nil, err
	}
	if resp.UploadDocument == nil {
		return nil, fmt.Errorf("uploadDocument %s: %w", in.Filename, ErrRejected)
	}
	doc := resp.UploadDocument.toModel()
	return &doc, nil
}

func (c *Client) Delete(ctx context.Context, documentID string) error {
	var resp struct {
		OK bool `json:"deleteDocument"`
	}
	if err := c.mutate(ctx, "deleteDocument", mutationDelete, map[string]any{"id": documentID}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("deleteDocument %s: %w", documentID, ErrRejected)
	}
	return nil
}

func (c *Client) Archive(ctx context.Context, documentID string) error {
	var resp struct {
		OK bool `json:"archiveDocument"`
	}
	if err := c.mutate(ctx, "archiveDocument", mutationArchive, map[string]any{"id": documentID}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("archiveDocument %s: %w", documentID, ErrRejected)
	}
	return nil
}

func (c *Client) Restore(ctx context.Context, archivedID string) error {
	var resp struct {
		OK bool `json:"restoreArchivedDocument"`
	}
	if err := c.mutate(ctx, "restoreArchivedDocument", mutationRestore, map[string]any{"id": archivedID}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("restoreArchivedDocument %s: %w", archivedID, ErrRejected)
	}
	return nil
}

// query runs a read operation; transport failures are retried.
func (c *Client) query(ctx context.Context, op, q string, vars map[string]any, out any) error {
	return c.run(ctx, op, q, vars, out, resilience.Transient)
}

// mutate runs a write operation; it is never retried so uploads are not duplicated.
func (c *Client) mutate(ctx context.Context, op, q string, vars map[string]any, out any) error {
	return c.run(ctx, op, q, vars, out, resilience.NeverRetry)
}

func (c *Client) run(ctx context.Context, op, q string, vars map[string]any, out any, classify resilience.ErrorClassifier) error {
	call := func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		req := graphql.NewRequest(q)
		for k, v := range vars {
			req.Var(k, v)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		return c.gql.Run(ctx, req, out)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, resilience.Operation("graphql", op), call, classify)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return fmt.Errorf("graphql %s: %w", op, err)
	}
	return nil
}
