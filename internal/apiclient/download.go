package apiclient

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Download is a binary file returned by the backend.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

func (r *Resource) download(ctx context.Context, p string, params url.Values, fallback string) (Download, error) {
	resp, err := r.client.send(ctx, request{
		Method: http.MethodGet,
		Path:   p,
		Query:  params,
		Accept: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/octet-stream",
	})
	if err != nil {
		return Download{}, err
	}
	if err := CheckError(resp, false); err != nil {
		return Download{}, err
	}
	body, err := ReadBody(resp)
	if err != nil {
		return Download{}, err
	}
	return Download{
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition"), fallback),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// FilenameFromDisposition extracts the filename from a Content-Disposition
// header. filename* wins over filename; fallback is used when neither is
// present. Parameter names match case-insensitively.
func FilenameFromDisposition(header, fallback string) string {
	if strings.TrimSpace(header) == "" {
		return fallback
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		// mime folds filename* into filename after decoding it.
		if name := safeName(params["filename"]); name != "" {
			return name
		}
		return fallback
	}

	// Lenient scan for headers mime rejects, e.g. unquoted names with spaces.
	var plain, extended string
	for _, part := range strings.Split(header, ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "filename*":
			if _, enc, ok := strings.Cut(val, "''"); ok {
				val = enc
			}
			if dec, err := url.PathUnescape(val); err == nil {
				val = dec
			}
			extended = val
		case "filename":
			plain = val
		}
	}
	if name := safeName(extended); name != "" {
		return name
	}
	if name := safeName(plain); name != "" {
		return name
	}
	return fallback
}

func safeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
