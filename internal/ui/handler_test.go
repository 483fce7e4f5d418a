package ui

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tms-console/internal/apiclient"
	"tms-console/internal/domain"
	"tms-console/internal/middleware"
	"tms-console/internal/resource"
)

const (
	testCSRF  = "test-csrf-token"
	testToken = "opaque-token"
	testStamp = int64(1700000000123)
	photoURL  = "https://cdn.example.com/users/5/photo.png"
)

type backendCall struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type callLog struct {
	mu    sync.Mutex
	calls []backendCall
}

func (l *callLog) add(c backendCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func (l *callLog) find(method, path string) (backendCall, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.Method == method && c.Path == path {
			return c, true
		}
	}
	return backendCall{}, false
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// fakeTMS serves the tenant and user endpoints the console calls.
func fakeTMS(t *testing.T) (*httptest.Server, *callLog) {
	t.Helper()
	log := &callLog{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			log.add(backendCall{Method: req.Method, Path: req.URL.Path, Query: req.URL.RawQuery, Auth: req.Header.Get("Authorization")})
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/tenants", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":[
				{"id":1,"legal_name":"Acme Logistics","city":"Pune","pincode":"411001","status":"APPROVED","active":true,"updated_at":"2026-01-02T10:00:00Z"},
				{"id":2,"legal_name":"Bharat Freight","city":"Nagpur","active":false}
			],"total":12}`)
		})
		r.Get("/id/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, `{"id":`+chi.URLParam(req, "id")+`,"legal_name":"Acme Logistics","city":"Pune","pincode":"411001"}`)
		})
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			if body["legal_name"] == "Dup Co" {
				writeJSON(w, http.StatusUnprocessableEntity, `{"message":"Validation failed","errors":{"legal_name":["has already been taken"]}}`)
				return
			}
			body["id"] = 101
			out, _ := json.Marshal(body)
			writeJSON(w, http.StatusCreated, string(out))
		})
		r.Put("/{id}", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			body["id"] = chi.URLParam(req, "id")
			out, _ := json.Marshal(body)
			writeJSON(w, http.StatusOK, string(out))
		})
		r.Patch("/{id}/deactivate", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "id") == "9" {
				writeJSON(w, http.StatusConflict, `{"message":"Tenant has active users"}`)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"message":"deleted"}`)
		})
		r.Get("/export/xlsx", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="tenants-2026.xlsx"`)
			_, _ = io.WriteString(w, "XLSX")
		})
		r.Get("/xlsxtemplate", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "TEMPLATE")
		})
		r.Post("/import/xlsx", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, `{"message":"Import failed","data":{"errors":[{"row":3,"message":"Postal Code is invalid"}]}}`)
		})
	})
	r.Get("/api/users/id/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":`+chi.URLParam(req, "id")+`,"name":"Asha","email":"asha@example.com","mobile":"9876543210","photo1_url":"`+photoURL+`"}`)
	})
	r.Post("/api/users/{id}/upload", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseMultipartForm(1<<20))
		assert.Equal(t, "photo1_url", req.FormValue("urlfield_name"))
		writeJSON(w, http.StatusOK, `{"id":`+chi.URLParam(req, "id")+`,"name":"Asha","photo1_url":"`+photoURL+`"}`)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, log
}

type console struct {
	router  http.Handler
	backend *callLog
}

func newConsole(t *testing.T) *console {
	t.Helper()
	srv, log := fakeTMS(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := apiclient.NewClient(srv.URL+"/api", "", "")
	h := NewHandler(resource.MustDefault(), client, 10, false, logger)
	h.Now = func() time.Time { return time.UnixMilli(testStamp) }

	r := chi.NewRouter()
	r.Route("/ui", func(r chi.Router) {
		MountRoutes(r, h, middleware.Credentials(CredentialsFromRequest))
	})
	return &console{router: r, backend: log}
}

func signIn(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: bearerCookieName, Value: testToken})
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRF})
}

func (c *console) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	return rr
}

func (c *console) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	signIn(req)
	return c.serve(req)
}

func (c *console) post(path string, form url.Values) *httptest.ResponseRecorder {
	form.Set(csrfFieldName, testCSRF)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	signIn(req)
	return c.serve(req)
}

func (c *console) upload(t *testing.T, path string, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(csrfFieldName, testCSRF))
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, _ = io.WriteString(part, content)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	signIn(req)
	return c.serve(req)
}

func validTenantForm() url.Values {
	return url.Values{
		"legal_name": {"Acme Logistics"},
		"city":       {"Pune"},
		"pincode":    {"411001"},
		"status":     {"APPROVED"},
		"active":     {"true"},
	}
}

// === Session ===

func TestConsole_RedirectsToLoginWithoutCredentials(t *testing.T) {
	c := newConsole(t)
	rr := c.serve(httptest.NewRequest(http.MethodGet, "/ui/tenants", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/ui/login", rr.Header().Get("Location"))
}

func TestConsole_LoginStoresBearerCookie(t *testing.T) {
	c := newConsole(t)
	form := url.Values{"kind": {"bearer"}, "token": {"Bearer abc"}, csrfFieldName: {testCSRF}}
	req := httptest.NewRequest(http.MethodPost, "/ui/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRF})

	rr := c.serve(req)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, strings.Join(rr.Header().Values("Set-Cookie"), "\n"), bearerCookieName+"=abc")
}

func TestConsole_UnknownModule(t *testing.T) {
	c := newConsole(t)
	rr := c.get("/ui/widgets")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// === List ===

func TestList_SendsQueryAndRendersRows(t *testing.T) {
	c := newConsole(t)
	rr := c.get("/ui/tenants?page=1&per_page=5&sort_by=updated_at&sort_order=desc&a_status=APPROVED")
	require.Equal(t, http.StatusOK, rr.Code)

	call, ok := c.backend.find(http.MethodGet, "/api/tenants")
	require.True(t, ok)
	assert.Equal(t, "page=1&per_page=5&sort_by=updated_at&sort_order=desc&status=APPROVED", call.Query)
	assert.Equal(t, "Bearer "+testToken, call.Auth)

	body := rr.Body.String()
	assert.Contains(t, body, "Acme Logistics")
	assert.Contains(t, body, "Bharat Freight")
	assert.Contains(t, body, "Page 1 of 3, 12 rows")
}

func TestList_AdvancedFilterWinsOverColumnFilter(t *testing.T) {
	c := newConsole(t)
	rr := c.get("/ui/tenants?f_city=Pune&a_city=Nagpur")
	require.Equal(t, http.StatusOK, rr.Code)

	call, ok := c.backend.find(http.MethodGet, "/api/tenants")
	require.True(t, ok)
	q, err := url.ParseQuery(call.Query)
	require.NoError(t, err)
	assert.Equal(t, "Nagpur", q.Get("city"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "10", q.Get("per_page"))
}

func TestList_RowActionsNeedSelection(t *testing.T) {
	c := newConsole(t)

	body := c.get("/ui/tenants").Body.String()
	assert.NotContains(t, body, `href="/ui/tenants/1/edit"`)
	assert.NotContains(t, body, `href="/ui/tenants/1/delete`)

	body = c.get("/ui/tenants?selected=1").Body.String()
	assert.Contains(t, body, `href="/ui/tenants/1/edit"`)
	assert.Contains(t, body, `href="/ui/tenants/1/deactivate?`)
	assert.Contains(t, body, `href="/ui/tenants/1/delete?`)

	// A selection that is not on the page is dropped.
	body = c.get("/ui/tenants?selected=99").Body.String()
	assert.NotContains(t, body, `href="/ui/tenants/99/edit"`)
}

func TestExport_ForwardsSortAndFiltersWithoutPagination(t *testing.T) {
	c := newConsole(t)
	rr := c.get("/ui/tenants/export?f_city=Pune&sort_by=legal_name&sort_order=asc&page=3")
	require.Equal(t, http.StatusOK, rr.Code)

	call, ok := c.backend.find(http.MethodGet, "/api/tenants/export/xlsx")
	require.True(t, ok)
	assert.Equal(t, "city=Pune&sort_by=legal_name&sort_order=asc", call.Query)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "tenants-2026.xlsx")
	assert.Equal(t, "XLSX", rr.Body.String())
}

func TestTemplate_FallsBackToSchemaFilename(t *testing.T) {
	c := newConsole(t)
	rr := c.get("/ui/tenants/template")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "tenant_template.xlsx")
	assert.Equal(t, "TEMPLATE", rr.Body.String())
}

// === Wizard ===

func TestWizard_PreviewRequiresFields(t *testing.T) {
	c := newConsole(t)
	rr := c.post("/ui/tenants/wizard", url.Values{
		wizardStepField:   {"data"},
		wizardActionField: {"preview"},
		"legal_name":      {""},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Legal Name is required")
	assert.Contains(t, body, "City is required")
	_, called := c.backend.find(http.MethodPost, "/api/tenants")
	assert.False(t, called)
}

func TestWizard_PreviewThenSubmitCreates(t *testing.T) {
	c := newConsole(t)

	form := validTenantForm()
	form.Set(wizardStepField, "data")
	form.Set(wizardActionField, "preview")
	rr := c.post("/ui/tenants/wizard", form)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Review the values")
	assert.Contains(t, rr.Body.String(), `name="_step" value="preview"`)

	form = validTenantForm()
	form.Set(wizardStepField, "preview")
	form.Set(wizardActionField, "submit")
	rr = c.post("/ui/tenants/wizard", form)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "Tenant created successfully")
	assert.Contains(t, body, `href="/ui/tenants/101"`)
	_, called := c.backend.find(http.MethodPost, "/api/tenants")
	assert.True(t, called)
}

func TestWizard_SubmitDirectFailureShowsServerErrors(t *testing.T) {
	c := newConsole(t)
	form := validTenantForm()
	form.Set("legal_name", "Dup Co")
	form.Set(wizardStepField, "data")
	form.Set(wizardActionField, "submit_direct")

	rr := c.post("/ui/tenants/wizard", form)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Validation failed")
	assert.Contains(t, body, "has already been taken")
	assert.Contains(t, body, "Preview (skipped)")
}

func TestWizard_EditUpdatesStoredRecord(t *testing.T) {
	c := newConsole(t)

	rr := c.get("/ui/tenants/7/edit")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="Acme Logistics"`)

	form := validTenantForm()
	form.Set("city", "Mumbai")
	form.Set(wizardStepField, "data")
	form.Set(wizardEditField, "true")
	form.Set(wizardIDField, "7")
	form.Set(wizardActionField, "submit_direct")
	rr = c.post("/ui/tenants/wizard", form)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Tenant updated successfully")

	_, called := c.backend.find(http.MethodPut, "/api/tenants/7")
	assert.True(t, called)
}

func TestWizard_SubmitAtPreviewRevalidates(t *testing.T) {
	c := newConsole(t)
	form := validTenantForm()
	form.Set("legal_name", "")
	form.Set("pincode", "12")
	form.Set(wizardStepField, "preview")
	form.Set(wizardActionField, "submit")

	rr := c.post("/ui/tenants/wizard", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Legal Name is required")
	assert.Contains(t, body, "Postal Code must be 6 digits")
	assert.Contains(t, body, `name="_step" value="data"`)
	_, called := c.backend.find(http.MethodPost, "/api/tenants")
	assert.False(t, called, "an invalid record must not reach the backend")
}

func TestWizard_SubmitFromDataStepIsRejected(t *testing.T) {
	c := newConsole(t)
	form := validTenantForm()
	form.Set(wizardStepField, "data")
	form.Set(wizardActionField, "submit")

	rr := c.post("/ui/tenants/wizard", form)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// === Deactivate / Delete ===

func TestDelete_ConfirmThenRedirect(t *testing.T) {
	c := newConsole(t)

	rr := c.get("/ui/tenants/2/delete")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Tenant 2 will be permanently deleted")
	_, called := c.backend.find(http.MethodDelete, "/api/tenants/2")
	assert.False(t, called, "opening the dialog must not call the backend")

	rr = c.post("/ui/tenants/2/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/ui/tenants", loc.Path)
	assert.Equal(t, "2", loc.Query().Get("id"))
	assert.Equal(t, "deleted", loc.Query().Get(noticeParam))
	_, called = c.backend.find(http.MethodDelete, "/api/tenants/2")
	assert.True(t, called)
}

func TestDelete_KeepsListState(t *testing.T) {
	c := newConsole(t)
	const state = "page=2&per_page=5&sort_by=city&sort_order=asc&f_city=Pune"

	list := c.get("/ui/tenants?" + state + "&selected=2")
	require.Equal(t, http.StatusOK, list.Code)
	q := attrQuery(t, list.Body.String(), "href", "/ui/tenants/2/delete")
	assertListState(t, q)
	assert.Equal(t, "2", q.Get(selectedParam))

	dialog := c.get("/ui/tenants/2/delete?" + q.Encode())
	require.Equal(t, http.StatusOK, dialog.Code)
	body := dialog.Body.String()
	assertListState(t, attrQuery(t, body, "action", "/ui/tenants/2/delete"))
	cancel := attrQuery(t, body, "href", "/ui/tenants")
	assertListState(t, cancel)
	assert.Equal(t, "2", cancel.Get(selectedParam), "cancel leaves the selection")

	rr := c.post("/ui/tenants/2/delete?"+q.Encode(), url.Values{})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/ui/tenants", loc.Path)
	assertListState(t, loc.Query())
	assert.Empty(t, loc.Query().Get(selectedParam))
	assert.Equal(t, "deleted", loc.Query().Get(noticeParam))
}

func TestDeactivate_DismissKeepsListState(t *testing.T) {
	c := newConsole(t)
	rr := c.post("/ui/tenants/9/deactivate?page=2&per_page=5&sort_by=city&sort_order=asc&f_city=Pune", url.Values{})

	require.Equal(t, http.StatusConflict, rr.Code)
	dismiss := attrQuery(t, rr.Body.String(), "href", "/ui/tenants")
	assertListState(t, dismiss)
	assert.Equal(t, "9", dismiss.Get(selectedParam))
}

// attrQuery decodes the query of the first attr="path?..." in body.
func attrQuery(t *testing.T, body, attr, path string) url.Values {
	t.Helper()
	m := regexp.MustCompile(attr + `="` + regexp.QuoteMeta(path) + `\?([^"]*)"`).FindStringSubmatch(body)
	require.NotNil(t, m, "no %s to %s", attr, path)
	q, err := url.ParseQuery(html.UnescapeString(m[1]))
	require.NoError(t, err)
	return q
}

func assertListState(t *testing.T, q url.Values) {
	t.Helper()
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "5", q.Get("per_page"))
	assert.Equal(t, "city", q.Get("sort_by"))
	assert.Equal(t, "asc", q.Get("sort_order"))
	assert.Equal(t, "Pune", q.Get("f_city"))
}

func TestDeactivate_FailureKeepsDialogWithError(t *testing.T) {
	c := newConsole(t)
	rr := c.post("/ui/tenants/9/deactivate", url.Values{})

	assert.Equal(t, http.StatusConflict, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Tenant has active users")
	assert.Contains(t, body, "Dismiss")
}

func TestDelete_RequiresCSRFToken(t *testing.T) {
	c := newConsole(t)
	req := httptest.NewRequest(http.MethodPost, "/ui/tenants/2/delete", nil)
	signIn(req)

	rr := c.serve(req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	_, called := c.backend.find(http.MethodDelete, "/api/tenants/2")
	assert.False(t, called)
}

// === Detail / Upload / Import ===

func TestUpload_RendersImageWithFreshTimestamp(t *testing.T) {
	c := newConsole(t)
	rr := c.upload(t, "/ui/users/5/upload", map[string]string{"field": "photo1_url"}, "photo.png", "PNG")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, photoURL+"?t=1700000000123")
	assert.Contains(t, body, "Photo uploaded.")
}

func TestUpload_RejectsUnknownField(t *testing.T) {
	c := newConsole(t)
	rr := c.upload(t, "/ui/users/5/upload", map[string]string{"field": "name"}, "photo.png", "PNG")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestImport_ShowsRowErrors(t *testing.T) {
	c := newConsole(t)
	rr := c.upload(t, "/ui/tenants/import", nil, "tenants.xlsx", "XLSX")

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Import failed")
	assert.Contains(t, body, "row 3: Postal Code is invalid")
	assert.Contains(t, body, `href="/ui/tenants?`)
}

func TestImport_CloseReturnsToListState(t *testing.T) {
	c := newConsole(t)
	rr := c.upload(t, "/ui/tenants/import?page=2&per_page=5&sort_by=city&sort_order=asc&f_city=Pune&selected=1", nil, "tenants.xlsx", "XLSX")

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assertListState(t, attrQuery(t, body, "action", "/ui/tenants/import"))
	closeQuery := attrQuery(t, body, "href", "/ui/tenants")
	assertListState(t, closeQuery)
	assert.Empty(t, closeQuery.Get(selectedParam))
}

// === Errors ===

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"transport", domain.NewUnknownError(0, "dial tcp: refused", nil), http.StatusBadGateway, "Backend Unavailable"},
		{"unauthorized", domain.NewFieldError(401, "Unauthorized", nil), http.StatusUnauthorized, "Session Expired"},
		{"not found", domain.NewFieldError(404, "Tenant not found", nil), http.StatusNotFound, "Not Found"},
		{"validation", domain.NewFieldError(422, "Validation failed", map[string][]string{"city": {"is required"}}), http.StatusUnprocessableEntity, "Invalid Request"},
		{"import", domain.NewImportError(400, "Import failed", []string{"row 2: bad"}), http.StatusUnprocessableEntity, "Import Failed"},
		{"server", domain.NewUnknownError(500, "boom", nil), http.StatusBadGateway, "Backend Error"},
		{"foreign", io.ErrUnexpectedEOF, http.StatusInternalServerError, "Unexpected Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := describeError(tt.err)
			assert.Equal(t, tt.status, v.Status)
			assert.Equal(t, tt.title, v.Title)
		})
	}
}
