package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tms-console/internal/domain"
)

// capturedRequest holds details captured from an incoming HTTP request.
type capturedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    string
}

// requestRecorder is a thread-safe recorder for HTTP requests received by httptest servers.
type requestRecorder struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (r *requestRecorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, _ := io.ReadAll(req.Body)
	defer func() { _ = req.Body.Close() }()

	r.requests = append(r.requests, capturedRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.Query(),
		Headers: req.Header.Clone(),
		Body:    string(body),
	})
}

func (r *requestRecorder) last() capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return capturedRequest{}
	}
	return r.requests[len(r.requests)-1]
}

func (r *requestRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// isolateConfig points HOME and the config dir at a temp dir and clears the
// credential environment so no real profile leaks into a test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("TMS_CONFIG_DIR", filepath.Join(dir, ".tms"))
	for _, k := range []string{"TMS_HOST", "TMS_API_KEY", "TMS_TOKEN", "TMS_OUTPUT"} {
		t.Setenv(k, "")
	}
	return dir
}

// newTestRootCmd creates a fresh root command writing to out.
func newTestRootCmd(t *testing.T, out io.Writer) *cobra.Command {
	t.Helper()
	rootCmd := newRootCmd()
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	return rootCmd
}

// runCLI executes args against srv and returns stdout.
func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd := newTestRootCmd(t, &out)
	rootCmd.SetArgs(append([]string{"--host", srv.URL}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// jsonHandler returns an http.HandlerFunc that records the request and responds
// with the given status code and JSON body.
func jsonHandler(rec *requestRecorder, status int, respBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}
}

const tenantJSON = `{"id":101,"legal_name":"Acme Freight Pvt Ltd","city":"Pune","pincode":"411001","status":"APPROVED","active":true,"updated_at":"2024-03-05T10:30:00Z","updated_by":{"name":"Ops Desk"}}`

func TestCLI_ListSendsQuery(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"data":[`+tenantJSON+`],"total":41}`))
	defer srv.Close()

	out, err := runCLI(t, srv, "tenants", "list", "--page", "3", "--per-page", "20",
		"--sort-by", "legal_name", "--sort-order", "asc", "--filter", "city=Pune")
	require.NoError(t, err)

	req := rec.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/tenants", req.Path)
	assert.Equal(t, "3", req.Query.Get("page"))
	assert.Equal(t, "20", req.Query.Get("per_page"))
	assert.Equal(t, "legal_name", req.Query.Get("sort_by"))
	assert.Equal(t, "asc", req.Query.Get("sort_order"))
	assert.Equal(t, "Pune", req.Query.Get("city"))

	assert.Contains(t, out, "LEGAL NAME")
	assert.Contains(t, out, "Acme Freight Pvt Ltd")
	assert.Contains(t, out, "2024-03-05 10:30")
	assert.Contains(t, out, "Page 3 of 3, 41 rows")
}

func TestCLI_ListOutputModes(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"data":[`+tenantJSON+`],"total":1}`))
	defer srv.Close()

	t.Run("json", func(t *testing.T) {
		out, err := runCLI(t, srv, "-o", "json", "tenants", "list")
		require.NoError(t, err)

		var body struct {
			Data    []map[string]any `json:"data"`
			Total   int              `json:"total"`
			Page    int              `json:"page"`
			PerPage int              `json:"per_page"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "101", body.Data[0]["id"])
		assert.Equal(t, "Ops Desk", body.Data[0]["updated_by"])
		assert.Equal(t, 1, body.Total)
		assert.Equal(t, 1, body.Page)
		assert.Equal(t, domain.DefaultPageSize, body.PerPage)
	})

	t.Run("quiet", func(t *testing.T) {
		out, err := runCLI(t, srv, "-q", "tenants", "list")
		require.NoError(t, err)
		assert.Equal(t, "101\n", out)
	})
}

func TestCLI_ListRejectsBadFlags(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"data":[],"total":0}`))
	defer srv.Close()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"page zero", []string{"--page", "0"}, "--page"},
		{"unknown sort column", []string{"--sort-by", "password"}, "cannot sort"},
		{"bad direction", []string{"--sort-order", "up"}, "--sort-order"},
		{"unknown filter", []string{"--filter", "password=x"}, "unknown field"},
		{"malformed filter", []string{"--filter", "city"}, "expected key=value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, srv, append([]string{"tenants", "list"}, tc.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	assert.Zero(t, rec.count(), "invalid flags must not reach the backend")
}

func TestCLI_ErrorPropagation(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantSubstr string
		wantKind   domain.ErrorKind
	}{
		{
			name:       "HTTP 403 forbidden",
			status:     403,
			body:       `{"message":"access denied"}`,
			wantSubstr: "API error (HTTP 403): access denied",
			wantKind:   domain.KindField,
		},
		{
			name:       "HTTP 404 not found",
			status:     404,
			body:       `{"message":"tenant not found"}`,
			wantSubstr: "tenant not found",
			wantKind:   domain.KindField,
		},
		{
			name:       "HTTP 500 plain text",
			status:     500,
			body:       `upstream exploded`,
			wantSubstr: "upstream exploded",
			wantKind:   domain.KindUnknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolateConfig(t)
			rec := &requestRecorder{}
			srv := httptest.NewServer(jsonHandler(rec, tc.status, tc.body))
			defer srv.Close()

			_, err := runCLI(t, srv, "tenants", "get", "7")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantSubstr)

			apiErr, ok := domain.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantKind, apiErr.Kind)
			assert.Equal(t, tc.status, apiErr.HTTPStatus)
			assert.Equal(t, "/tenants/id/7", rec.last().Path)
		})
	}
}

func TestCLI_Get(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, tenantJSON))
	defer srv.Close()

	out, err := runCLI(t, srv, "tenant", "get", "101")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^ID +101$`, out)
	assert.Regexp(t, `(?m)^Legal Name +Acme Freight Pvt Ltd$`, out)
	assert.Regexp(t, `(?m)^GSTIN +-$`, out)
	assert.Regexp(t, `(?m)^Updated By +Ops Desk$`, out)
	assert.NotContains(t, out, "Created By", "absent audit fields are skipped")
}

func TestCLI_CreateValidatesBeforeSending(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 201, tenantJSON))
	defer srv.Close()

	_, err := runCLI(t, srv, "tenants", "create", "--set", "legal_name=Acme", "--set", "pincode=41")
	require.Error(t, err)

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindField, apiErr.Kind)
	assert.Equal(t, []string{"city", "pincode"}, apiErr.Fields())
	assert.Equal(t, []string{"Postal Code must be 6 digits"}, apiErr.FieldErrors["pincode"])
	assert.Zero(t, rec.count())
}

func TestCLI_CreateSendsPayload(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 201, tenantJSON))
	defer srv.Close()

	out, err := runCLI(t, srv, "--token", "tok-1", "tenants", "create",
		"--set", "legal_name=Acme Freight Pvt Ltd", "--set", "city=Pune", "--set", "pincode=411001", "--set", "active=false")
	require.NoError(t, err)

	req := rec.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/tenants", req.Path)
	assert.Equal(t, "Bearer tok-1", req.Headers.Get("Authorization"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &payload))
	assert.Equal(t, "Acme Freight Pvt Ltd", payload["legal_name"])
	assert.Equal(t, "APPROVED", payload["status"], "defaults fill unset fields")
	assert.Equal(t, false, payload["active"])
	assert.NotContains(t, payload, "id")
	assert.NotContains(t, payload, "logo_url", "upload fields are not part of the payload")

	assert.Contains(t, out, "Tenant 101 created.")
}

func TestCLI_CreateRejectsBadSets(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 201, tenantJSON))
	defer srv.Close()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing", nil, "nothing to save"},
		{"unknown field", []string{"--set", "colour=red"}, `no field "colour"`},
		{"upload field", []string{"--set", "logo_url=x.png"}, "use the upload command"},
		{"bad bool", []string{"--set", "active=maybe"}, "not a boolean"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, srv, append([]string{"tenants", "create"}, tc.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	assert.Zero(t, rec.count())
}

func TestCLI_CreateDryRunFromFile(t *testing.T) {
	dir := isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 201, tenantJSON))
	defer srv.Close()

	path := filepath.Join(dir, "tenant.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":9,"legal_name":"From File","city":"Pune","pincode":"411001"}`), 0o600))

	out, err := runCLI(t, srv, "tenants", "create", "-f", path, "--set", "city=Mumbai", "--dry-run")
	require.NoError(t, err)
	assert.Zero(t, rec.count(), "dry run must not call the backend")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "From File", payload["legal_name"])
	assert.Equal(t, "Mumbai", payload["city"], "--set wins over --file")
	assert.NotContains(t, payload, "id")
}

func TestCLI_UpdateMergesIntoCurrentRecord(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, tenantJSON))
	defer srv.Close()

	out, err := runCLI(t, srv, "tenants", "update", "101", "--set", "city=Nashik")
	require.NoError(t, err)

	require.Equal(t, 2, rec.count())
	req := rec.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/tenants/101", req.Path)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &payload))
	assert.Equal(t, "Nashik", payload["city"])
	assert.Equal(t, "Acme Freight Pvt Ltd", payload["legal_name"], "unchanged fields come from the fetched record")
	assert.Contains(t, out, "Tenant 101 updated.")
}

func TestCLI_DeleteAndDeactivate(t *testing.T) {
	isolateConfig(t)

	t.Run("delete with --yes", func(t *testing.T) {
		rec := &requestRecorder{}
		srv := httptest.NewServer(jsonHandler(rec, 204, ""))
		defer srv.Close()

		out, err := runCLI(t, srv, "tenants", "delete", "2", "--yes")
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, rec.last().Method)
		assert.Equal(t, "/tenants/2", rec.last().Path)
		assert.Equal(t, "Tenant 2 deleted.\n", out)
	})

	t.Run("deactivate json", func(t *testing.T) {
		rec := &requestRecorder{}
		srv := httptest.NewServer(jsonHandler(rec, 200, `{}`))
		defer srv.Close()

		out, err := runCLI(t, srv, "-o", "json", "tenants", "deactivate", "2", "-y")
		require.NoError(t, err)
		assert.Equal(t, http.MethodPatch, rec.last().Method)
		assert.Equal(t, "/tenants/2/deactivate", rec.last().Path)
		assert.JSONEq(t, `{"status":"deactivated","id":"2"}`, out)
	})
}

func TestCLI_DeleteConfirmation(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 204, ""))
	defer srv.Close()

	run := func(in io.Reader) error {
		var out bytes.Buffer
		rootCmd := newTestRootCmd(t, &out)
		rootCmd.SetIn(in)
		rootCmd.SetArgs([]string{"--host", srv.URL, "tenants", "delete", "5"})
		return rootCmd.Execute()
	}

	t.Run("declined", func(t *testing.T) {
		err := run(strings.NewReader("n\n"))
		require.ErrorIs(t, err, errAborted)
		assert.Zero(t, rec.count())
	})

	t.Run("non-terminal file refuses", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stdin")
		require.NoError(t, os.WriteFile(path, []byte("y\n"), 0o600))
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()

		err = run(f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "without --yes")
		assert.Zero(t, rec.count())
	})

	t.Run("accepted", func(t *testing.T) {
		require.NoError(t, run(strings.NewReader("yes\n")))
		assert.Equal(t, 1, rec.count())
	})
}

func TestCLI_ExportWritesFile(t *testing.T) {
	dir := isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="tenants-2024.xlsx"`)
		_, _ = w.Write([]byte("PK\x03\x04sheet"))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "tenants", "export", "--filter", "city=Pune", "--out", dir)
	require.NoError(t, err)

	req := rec.last()
	assert.Equal(t, "/tenants/export/xlsx", req.Path)
	assert.Equal(t, "Pune", req.Query.Get("city"))
	assert.Empty(t, req.Query.Get("page"), "exports are not paginated")

	data, err := os.ReadFile(filepath.Join(dir, "tenants-2024.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04sheet", string(data))
	assert.Contains(t, out, "tenants-2024.xlsx (9 bytes)")
}

func TestCLI_TemplateToStdout(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		_, _ = w.Write([]byte("template-bytes"))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "tenants", "template", "--out", "-")
	require.NoError(t, err)
	assert.Equal(t, "/tenants/xlsxtemplate", rec.last().Path)
	assert.Equal(t, "template-bytes", out)
}

func TestCLI_ImportRowErrors(t *testing.T) {
	dir := isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 422,
		`{"message":"Import failed","data":{"errors":[{"row":2,"message":"GSTIN is invalid"},"row 5: city is required"]}}`))
	defer srv.Close()

	path := filepath.Join(dir, "tenants.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("sheet"), 0o600))

	_, err := runCLI(t, srv, "tenants", "import", path)
	require.Error(t, err)

	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindImport, apiErr.Kind)
	assert.Equal(t, []string{"row 2: GSTIN is invalid", "row 5: city is required"}, apiErr.ImportErrors)

	req := rec.last()
	assert.Equal(t, "/tenants/import/xlsx", req.Path)
	assert.True(t, strings.HasPrefix(req.Headers.Get("Content-Type"), "multipart/form-data"))
	assert.Contains(t, req.Body, `filename="tenants.xlsx"`)
}

func TestCLI_ImportSuccess(t *testing.T) {
	dir := isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"message":"12 tenants imported","data":{"created":10,"updated":2}}`))
	defer srv.Close()

	path := filepath.Join(dir, "tenants.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("sheet"), 0o600))

	out, err := runCLI(t, srv, "tenants", "import", path)
	require.NoError(t, err)
	assert.Equal(t, "12 tenants imported\ncreated: 10\nupdated: 2\n", out)
}

func TestCLI_Upload(t *testing.T) {
	dir := isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"id":101,"legal_name":"Acme","logo_url":"https://cdn.example.com/logo.png"}`))
	defer srv.Close()

	path := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	out, err := runCLI(t, srv, "tenants", "upload", "101", "logo_url", path)
	require.NoError(t, err)

	req := rec.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/tenants/101/upload", req.Path)
	assert.Contains(t, req.Body, `name="urlfield_name"`)
	assert.Contains(t, req.Body, "logo_url")
	assert.Contains(t, out, "Logo uploaded: https://cdn.example.com/logo.png")

	_, err = runCLI(t, srv, "tenants", "upload", "101", "gstin", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an upload field")
}

func TestCLI_CredentialPrecedence(t *testing.T) {
	isolateConfig(t)
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"data":[],"total":0}`))
	defer srv.Close()

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://profile.invalid", APIKey: "profile-key"},
		},
	}))

	t.Run("flag host wins over profile, profile key used", func(t *testing.T) {
		_, err := runCLI(t, srv, "tenants", "list")
		require.NoError(t, err)
		assert.Equal(t, "profile-key", rec.last().Headers.Get("X-API-Key"))
	})

	t.Run("env wins over profile", func(t *testing.T) {
		t.Setenv("TMS_API_KEY", "env-key")
		_, err := runCLI(t, srv, "tenants", "list")
		require.NoError(t, err)
		assert.Equal(t, "env-key", rec.last().Headers.Get("X-API-Key"))
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("TMS_API_KEY", "env-key")
		_, err := runCLI(t, srv, "--api-key", "flag-key", "tenants", "list")
		require.NoError(t, err)
		assert.Equal(t, "flag-key", rec.last().Headers.Get("X-API-Key"))
	})

	t.Run("token wins over api key", func(t *testing.T) {
		_, err := runCLI(t, srv, "--token", "tok", "tenants", "list")
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok", rec.last().Headers.Get("Authorization"))
		assert.Empty(t, rec.last().Headers.Get("X-API-Key"))
	})
}

func TestReportError(t *testing.T) {
	fieldErr := domain.NewFieldError(422, "invalid tenant", map[string][]string{
		"pincode": {"Postal Code must be 6 digits"},
	})

	t.Run("text", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		reportError(&stdout, &stderr, "table", fieldErr)
		assert.Empty(t, stdout.String())
		assert.Equal(t, "Error: API error (HTTP 422): invalid tenant\n  - pincode: Postal Code must be 6 digits\n", stderr.String())
	})

	t.Run("json", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		reportError(&stdout, &stderr, "json", fieldErr)
		assert.Empty(t, stderr.String())

		var obj map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &obj))
		assert.Equal(t, "field", obj["kind"])
		assert.EqualValues(t, 422, obj["http_status"])
		assert.Contains(t, obj, "field_errors")
		assert.NotContains(t, obj, "import_errors")
	})

	t.Run("plain error", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		reportError(&stdout, &stderr, "json", errors.New("boom"))
		assert.JSONEq(t, `{"error":"boom"}`, stdout.String())
	})
}

func TestSchemasCmd(t *testing.T) {
	isolateConfig(t)

	var out bytes.Buffer
	rootCmd := newTestRootCmd(t, &out)
	rootCmd.SetArgs([]string{"schemas"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "MODULE")
	assert.Contains(t, out.String(), "tenants")
	assert.Contains(t, out.String(), "logo_url")

	out.Reset()
	rootCmd = newTestRootCmd(t, &out)
	rootCmd.SetArgs([]string{"-o", "json", "schemas", "tenant"})
	require.NoError(t, rootCmd.Execute())

	var body struct {
		Plural string           `json:"plural"`
		Fields []map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "tenants", body.Plural)
	require.NotEmpty(t, body.Fields)
	assert.Equal(t, "legal_name", body.Fields[0]["name"])
	assert.Equal(t, true, body.Fields[0]["required"])

	rootCmd = newTestRootCmd(t, &out)
	rootCmd.SetArgs([]string{"schemas", "invoices"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown module")
}

func TestResourceCommandsFollowSchema(t *testing.T) {
	isolateConfig(t)
	rootCmd := newRootCmd()

	tenants, _, err := rootCmd.Find([]string{"tenants"})
	require.NoError(t, err)
	names := map[string]bool{}
	for _, c := range tenants.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"list", "get", "create", "update", "delete", "deactivate", "template", "export", "import", "upload", "browse"} {
		assert.True(t, names[want], "tenants should have %s", want)
	}

	alias, _, err := rootCmd.Find([]string{"tenant", "list"})
	require.NoError(t, err)
	assert.Equal(t, "list", alias.Name())
}
