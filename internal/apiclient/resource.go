package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"tms-console/internal/domain"
	"tms-console/internal/resource"
)

// Resource is a Client bound to one entity schema. Every method issues
// exactly one HTTP call.
type Resource struct {
	client *Client
	schema *resource.Schema
}

// Resource binds c to s.
func (c *Client) Resource(s *resource.Schema) *Resource {
	return &Resource{client: c, schema: s}
}

// Schema returns the bound schema.
func (r *Resource) Schema() *resource.Schema { return r.schema }

// ImportSummary is the body of a successful bulk import.
type ImportSummary struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// List fetches one page of records. params is sent as-is after empty values
// are dropped; see domain.ListQuery.Params.
func (r *Resource) List(ctx context.Context, params url.Values) (domain.ListResult[resource.Record], error) {
	var out domain.ListResult[resource.Record]
	resp, err := r.client.Do(ctx, http.MethodGet, r.schema.BasePath, params, nil)
	if err != nil {
		return out, err
	}
	if err := CheckError(resp, false); err != nil {
		return out, err
	}
	body, err := ReadBody(resp)
	if err != nil {
		return out, err
	}

	var env struct {
		Data  []json.RawMessage `json:"data"`
		Total json.Number       `json:"total"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return out, domain.NewUnknownError(resp.StatusCode, "decode list response", err)
	}
	out.Data = make([]resource.Record, 0, len(env.Data))
	for _, raw := range env.Data {
		// Non-object rows map to an empty record with defaults.
		obj, _ := resource.DecodeObject(raw)
		out.Data = append(out.Data, resource.FromAPIResponse(r.schema, obj))
	}
	if env.Total != "" {
		if n, err := env.Total.Int64(); err == nil {
			out.Total = n
		}
	}
	return out, nil
}

// Get fetches a single record.
func (r *Resource) Get(ctx context.Context, id string) (resource.Record, error) {
	return r.recordCall(ctx, http.MethodGet, r.schema.BasePath+"/id/"+url.PathEscape(id), nil)
}

// Create posts a new record and returns it as stored by the backend.
func (r *Resource) Create(ctx context.Context, rec resource.Record) (resource.Record, error) {
	return r.recordCall(ctx, http.MethodPost, r.schema.BasePath, rec.Payload(r.schema))
}

// Update replaces the writable fields of record id.
func (r *Resource) Update(ctx context.Context, id string, rec resource.Record) (resource.Record, error) {
	return r.recordCall(ctx, http.MethodPut, r.itemPath(id), rec.Payload(r.schema))
}

// Deactivate soft-deletes record id.
func (r *Resource) Deactivate(ctx context.Context, id string) error {
	return r.emptyCall(ctx, http.MethodPatch, r.itemPath(id)+"/deactivate")
}

// Delete hard-deletes record id.
func (r *Resource) Delete(ctx context.Context, id string) error {
	return r.emptyCall(ctx, http.MethodDelete, r.itemPath(id))
}

// UploadFile attaches a file to fieldName of record id and returns the
// updated record.
func (r *Resource) UploadFile(ctx context.Context, id, fieldName, filename string, content io.Reader) (resource.Record, error) {
	body, contentType, err := multipartBody(filename, content, map[string]string{"urlfield_name": fieldName})
	if err != nil {
		return resource.Record{}, err
	}
	resp, err := r.client.send(ctx, request{
		Method:      http.MethodPost,
		Path:        r.itemPath(id) + "/upload",
		RawBody:     body,
		ContentType: contentType,
	})
	if err != nil {
		return resource.Record{}, err
	}
	return r.decodeRecord(resp)
}

// DownloadTemplate fetches the blank import spreadsheet.
func (r *Resource) DownloadTemplate(ctx context.Context) (Download, error) {
	return r.download(ctx, r.schema.BasePath+"/xlsxtemplate", nil, r.schema.TemplateFilename)
}

// Export fetches every record matching the sort and filters in params.
func (r *Resource) Export(ctx context.Context, params url.Values) (Download, error) {
	return r.download(ctx, r.schema.BasePath+"/export/xlsx", params, r.schema.ExportFilename)
}

// Import uploads a filled spreadsheet. Row failures come back as a
// KindImport *domain.APIError.
func (r *Resource) Import(ctx context.Context, filename string, content io.Reader) (ImportSummary, error) {
	var out ImportSummary
	body, contentType, err := multipartBody(filename, content, nil)
	if err != nil {
		return out, err
	}
	resp, err := r.client.send(ctx, request{
		Method:      http.MethodPost,
		Path:        r.schema.BasePath + "/import/xlsx",
		RawBody:     body,
		ContentType: contentType,
	})
	if err != nil {
		return out, err
	}
	if err := CheckError(resp, true); err != nil {
		return out, err
	}
	data, err := ReadBody(resp)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, domain.NewUnknownError(resp.StatusCode, "decode import response", err)
	}
	return out, nil
}

func (r *Resource) itemPath(id string) string {
	return r.schema.BasePath + "/" + url.PathEscape(id)
}

func (r *Resource) recordCall(ctx context.Context, method, path string, body any) (resource.Record, error) {
	resp, err := r.client.Do(ctx, method, path, nil, body)
	if err != nil {
		return resource.Record{}, err
	}
	return r.decodeRecord(resp)
}

func (r *Resource) decodeRecord(resp *http.Response) (resource.Record, error) {
	if err := CheckError(resp, false); err != nil {
		return resource.Record{}, err
	}
	data, err := ReadBody(resp)
	if err != nil {
		return resource.Record{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resource.New(r.schema), nil
	}
	obj, err := resource.DecodeObject(data)
	if err != nil {
		return resource.Record{}, domain.NewUnknownError(resp.StatusCode, "decode response", err)
	}
	// Some endpoints wrap the entity in {"data": {...}}.
	if inner, ok := obj["data"].(map[string]any); ok && obj["id"] == nil {
		obj = inner
	}
	return resource.FromAPIResponse(r.schema, obj), nil
}

func (r *Resource) emptyCall(ctx context.Context, method, path string) error {
	resp, err := r.client.Do(ctx, method, path, nil, nil)
	if err != nil {
		return err
	}
	if err := CheckError(resp, false); err != nil {
		return err
	}
	_, err = ReadBody(resp)
	return err
}

func multipartBody(filename string, content io.Reader, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", domain.NewUnknownError(0, "create form file", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", domain.NewUnknownError(0, fmt.Sprintf("read %s", filename), err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", domain.NewUnknownError(0, "write form field", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", domain.NewUnknownError(0, "close multipart body", err)
	}
	return &buf, w.FormDataContentType(), nil
}
