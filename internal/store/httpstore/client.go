// Package httpstore implements the content store against a Strapi-style
// REST API.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/mediamigrate/internal/common"
	"github.com/Veraticus/mediamigrate/internal/model"
)

// Config holds configuration options for the REST client.
type Config struct {
	BaseURL    string
	Token      string
	Collection string
	MediaField string
	TitleField string
	PageSize   int
	Timeout    time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:1337",
		Collection: "posts",
		MediaField: "image",
		TitleField: "titulo",
		PageSize:   100,
		Timeout:    30 * time.Second,
	}
}

// Client talks to the content store's REST API.
type Client struct {
	http *http.Client
	base *url.URL
	cfg  Config
}

// New creates a client. BaseURL must be an absolute http(s) URL.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.Collection == "" {
		cfg.Collection = def.Collection
	}
	if cfg.MediaField == "" {
		cfg.MediaField = def.MediaField
	}
	if cfg.TitleField == "" {
		cfg.TitleField = def.TitleField
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid store URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("store URL %q must be http or https: %w", cfg.BaseURL, common.ErrInvalidConfig)
	}

	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		base: base,
		cfg:  cfg,
	}, nil
}

// APIError is a non-2xx response from the content store.
type APIError struct {
	Body   string
	Status int
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("content store API error (status %d)", e.Status)
	}
	return fmt.Sprintf("content store API error (status %d): %s", e.Status, e.Body)
}

type fileResponse struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	DocumentID string `json:"documentId"`
	ID         int    `json:"id"`
}

func (f fileResponse) handle() model.AssetHandle {
	return model.AssetHandle{ID: strconv.Itoa(f.ID), Name: f.Name, URL: f.URL}
}

type listResponse struct {
	Data []map[string]json.RawMessage `json:"data"`
	Meta struct {
		Pagination struct {
			Page      int `json:"page"`
			PageCount int `json:"pageCount"`
			Total     int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

// FindRecords lists every entry of the collection, page by page.
func (c *Client) FindRecords(ctx context.Context) ([]model.ContentRecord, error) {
	var records []model.ContentRecord
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("fields[0]", c.cfg.TitleField)
		q.Set("fields[1]", "slug")
		q.Set("fields[2]", "createdAt")
		q.Set("populate["+c.cfg.MediaField+"][fields][0]", "name")
		q.Set("pagination[page]", strconv.Itoa(page))
		q.Set("pagination[pageSize]", strconv.Itoa(c.cfg.PageSize))

		var resp listResponse
		if err := c.doJSON(ctx, http.MethodGet, c.endpoint("api", c.cfg.Collection), q, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list %s page %d: %w", c.cfg.Collection, page, err)
		}

		for _, raw := range resp.Data {
			rec, err := c.decodeRecord(raw)
			if err != nil {
				slog.Warn("Skipping undecodable record", "collection", c.cfg.Collection, "error", err)
				continue
			}
			records = append(records, rec)
		}

		slog.Debug("Fetched record page",
			"collection", c.cfg.Collection,
			"page", page,
			"page_count", resp.Meta.Pagination.PageCount,
			"records", len(resp.Data))

		if len(resp.Data) == 0 || page >= resp.Meta.Pagination.PageCount {
			break
		}
	}
	return records, nil
}

// FindAssetByIdentity looks up an uploaded file by name.
func (c *Client) FindAssetByIdentity(ctx context.Context, key string) (*model.AssetHandle, error) {
	q := url.Values{}
	q.Set("filters[name][$eq]", key)

	var files []fileResponse
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("api", "upload", "files"), q, nil, &files); err != nil {
		return nil, fmt.Errorf("failed to look up asset %q: %w", key, err)
	}
	for _, f := range files {
		if f.Name == key {
			h := f.handle()
			return &h, nil
		}
	}
	return nil, nil
}

// UploadAsset stores a file through the upload endpoint. The stored name
// is the identity key so later lookups find it.
func (c *Client) UploadAsset(ctx context.Context, data []byte, fileName, mimeType string) (*model.AssetHandle, error) {
	key := model.IdentityKey(fileName)

	body, contentType, err := uploadForm(data, fileName, mimeType, key)
	if err != nil {
		return nil, &common.TransferError{FileName: fileName, Err: common.Permanent(err)}
	}

	var files []fileResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("api", "upload"), nil, body, contentType, &files); err != nil {
		return nil, &common.TransferError{FileName: fileName, Err: classify(err)}
	}
	if len(files) == 0 {
		return nil, &common.TransferError{FileName: fileName, Err: errors.New("upload response contained no files")}
	}

	h := files[0].handle()
	return &h, nil
}

// Associate sets the record's media field to the uploaded file. Records
// that are gone or already carry media are refused.
func (c *Client) Associate(ctx context.Context, recordID string, handle model.AssetHandle) error {
	fail := func(err error) error {
		return &common.AssociationError{RecordID: recordID, AssetID: handle.ID, Err: err}
	}

	current, err := c.getRecord(ctx, recordID)
	if err != nil {
		return fail(err)
	}
	if current.HasAssociatedMedia {
		return fail(common.ErrAlreadyAssociated)
	}

	var mediaRef any = handle.ID
	if n, convErr := strconv.Atoi(handle.ID); convErr == nil {
		mediaRef = n
	}
	payload := map[string]any{
		"data": map[string]any{
			c.cfg.MediaField: []any{mediaRef},
		},
	}
	if err := c.doJSON(ctx, http.MethodPut, c.endpoint("api", c.cfg.Collection, recordID), nil, payload, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return fail(common.ErrRecordNotFound)
		}
		return fail(err)
	}
	return nil
}

func (c *Client) getRecord(ctx context.Context, recordID string) (model.ContentRecord, error) {
	q := url.Values{}
	q.Set("populate["+c.cfg.MediaField+"][fields][0]", "name")

	var resp struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	err := c.doJSON(ctx, http.MethodGet, c.endpoint("api", c.cfg.Collection, recordID), q, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return model.ContentRecord{}, common.ErrRecordNotFound
		}
		return model.ContentRecord{}, err
	}
	if resp.Data == nil {
		return model.ContentRecord{}, common.ErrRecordNotFound
	}
	return c.decodeRecord(resp.Data)
}

// decodeRecord reads both flat entries and entries nested under
// "attributes".
func (c *Client) decodeRecord(raw map[string]json.RawMessage) (model.ContentRecord, error) {
	fields := raw
	if attrs, ok := raw["attributes"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(attrs, &nested); err == nil {
			fields = nested
		}
	}

	var rec model.ContentRecord
	var documentID string
	_ = json.Unmarshal(raw["documentId"], &documentID)
	if documentID != "" {
		rec.ID = documentID
	} else {
		var id json.Number
		if err := json.Unmarshal(raw["id"], &id); err != nil || id == "" {
			return model.ContentRecord{}, errors.New("record has no id")
		}
		rec.ID = id.String()
	}

	_ = json.Unmarshal(fields["slug"], &rec.Slug)
	if err := json.Unmarshal(fields[c.cfg.TitleField], &rec.Title); err != nil || rec.Title == "" {
		_ = json.Unmarshal(fields["title"], &rec.Title)
	}
	var created string
	if err := json.Unmarshal(fields["createdAt"], &created); err == nil && created != "" {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			rec.CreatedAt = t
		}
	}
	rec.HasAssociatedMedia = hasMedia(fields[c.cfg.MediaField])
	return rec, nil
}

// hasMedia reports whether a media field value is populated. Single media
// fields decode to an object, multiple media fields to an array, and v4
// style relations wrap either under "data".
func hasMedia(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		return json.Unmarshal(trimmed, &items) == nil && len(items) > 0
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return false
		}
		if inner, ok := obj["data"]; ok {
			return hasMedia(inner)
		}
		return len(obj) > 0
	default:
		return false
	}
}

func uploadForm(data []byte, fileName, mimeType, key string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, fileName))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	info, err := json.Marshal(map[string]string{
		"name":            key,
		"caption":         key,
		"alternativeText": "Imagem: " + key,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode file info: %w", err)
	}
	if err := w.WriteField("fileInfo", string(info)); err != nil {
		return nil, "", fmt.Errorf("failed to write file info: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// classify marks client errors other than rate limiting as permanent.
func classify(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Status == http.StatusRequestTimeout || apiErr.Status >= 500:
		return err
	default:
		return common.Permanent(err)
	}
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.base.String() + "/" + strings.Join(escaped, "/")
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	return c.do(ctx, method, endpoint, query, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, contentType string, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
