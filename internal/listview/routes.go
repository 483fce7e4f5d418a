package listview

import (
	"net/url"

	"tms-console/internal/resource"
)

// Prefix is where the console mounts entity screens.
const Prefix = "/ui"

// Routes are the fixed entity-scoped screen paths.
type Routes struct {
	plural string
}

// RoutesFor returns the routes of schema s.
func RoutesFor(s *resource.Schema) Routes { return Routes{plural: s.Plural} }

func (r Routes) List() string     { return Prefix + "/" + r.plural }
func (r Routes) Create() string   { return r.List() + "/new" }
func (r Routes) Import() string   { return r.List() + "/import" }
func (r Routes) Export() string   { return r.List() + "/export" }
func (r Routes) Template() string { return r.List() + "/template" }
func (r Routes) Wizard() string   { return r.List() + "/wizard" }

func (r Routes) View(id string) string       { return r.List() + "/" + url.PathEscape(id) }
func (r Routes) Edit(id string) string       { return r.View(id) + "/edit" }
func (r Routes) Upload(id string) string     { return r.View(id) + "/upload" }
func (r Routes) Deactivate(id string) string { return r.View(id) + "/deactivate" }
func (r Routes) Delete(id string) string     { return r.View(id) + "/delete" }

// Action returns the confirmation route of action on id.
func (r Routes) Action(a Action, id string) string {
	if a == ActionDeactivate {
		return r.Deactivate(id)
	}
	return r.Delete(id)
}
