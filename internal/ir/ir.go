package ir

// Intermediate representation shared by the parsers, the resolver, and the
// emitters. These are passive records: the parsers build them, the resolver
// annotates endpoints in place, the emitters read them.

// Parameter is one endpoint parameter from the docs table. Required
// parameters become positional arguments in generated code; optional ones
// carry their documented default literal.
type Parameter struct {
	Name     string
	Required bool
	Default  string
}

// Endpoint is one callable API operation.
type Endpoint struct {
	// Methods lists the documented HTTP methods in table order. When more
	// than one is listed the last is authoritative.
	Methods      []string
	Module       string
	Controller   string
	Command      string // snake_case command token from the docs
	CommandCamel string // camelCase form used in the URL path
	URLPath      string // /api/{module}/{controller}/{commandCamel}
	GoMethodName string // PascalCase SDK method name
	Parameters   []Parameter

	// Resolver annotations. Empty/nil for non-CRUD or unmatched endpoints.
	CRUDVerb    string     // "add", "get", "set", "del", "search", "toggle", or ""
	ModelItem   *ModelItem // linked item for typed CRUD endpoints
	ItemJSONKey string     // JSON wrapper key, the matched item's own name
}

// PrimaryMethod returns the authoritative HTTP method: the last listed when
// several are documented (e.g. "GET, POST" means effectively POST).
func (e *Endpoint) PrimaryMethod() string {
	if len(e.Methods) == 0 {
		return ""
	}
	return e.Methods[len(e.Methods)-1]
}

// ModelField is one leaf attribute of a ModelItem.
type ModelField struct {
	Name      string // XML tag name
	FieldType string // declared kind, e.g. "BooleanField"
	GoName    string
	JSONName  string
	GoType    string // "opnsense.OPNBool", "opnsense.OPNInt", or "string"
	Required  bool
	Default   string
	Volatile  bool // server-computed, never accepted as input
	Multiple  bool
	Options   []string // enumerated option tags for closed-choice kinds
}

// ModelItem is one record type inside a Model.
type ModelItem struct {
	Name          string // XML element name, e.g. "alias"
	GoName        string // derived type identifier, e.g. "Alias"
	ContainerName string // parent container tag for collection items
	Fields        []ModelField
}

// Model is one parsed XML model file.
type Model struct {
	Mount   string // e.g. "OPNsense.Firewall.Alias"
	XMLPath string // source reference used for linking
	Version string
	Items   []*ModelItem
}

// Controller is one logical group of endpoints.
type Controller struct {
	Name       string // e.g. "AliasController"
	PHPFile    string // backing source token, e.g. "AliasController.php"
	BaseClass  string // declared base-controller name, if any
	IsAbstract bool
	Endpoints  []*Endpoint
	Model      *Model // linked after schema parsing; nil is a valid state
	ModelURL   string // raw schema reference pending resolution
}

// Module is one documentation page / API namespace.
type Module struct {
	Name        string
	Category    string // "core", "plugins", or "be"
	Controllers []*Controller
}

// APISpec is the root aggregate for one generation run.
type APISpec struct {
	Modules []*Module
	Models  map[string]*Model // keyed by OPNsense-relative XML path
}
