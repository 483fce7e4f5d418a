package ui

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"sync"

	"tms-console/internal/ui/assets"
)

const stylesheetFile = "app.css"

var (
	stylesheetPathOnce sync.Once
	stylesheetPath     = "/ui/static/app.css"
)

// uiStylesheetHref appends a content hash so browsers refetch the stylesheet
// only after it changes.
func uiStylesheetHref() string {
	stylesheetPathOnce.Do(func() {
		css, err := fs.ReadFile(assets.Static(), stylesheetFile)
		if err != nil {
			return
		}
		sum := sha256.Sum256(css)
		stylesheetPath += "?v=" + hex.EncodeToString(sum[:])[:12]
	})
	return stylesheetPath
}
