// Package parser contains the two front ends of the generator: the markdown
// table parser for crawled API docs and the XML model parser. The two run
// independently; linkage happens afterwards by model URL.
package parser

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jontk/opnsense-gen/internal/ir"
	"github.com/jontk/opnsense-gen/internal/names"
)

// Categories are the doc source groupings, in scan order.
var Categories = []string{"core", "plugins", "be"}

// Section headers look like:
//
//	Resources (AliasController.php) — extends : ApiMutableModelControllerBase
//	Service (ServiceController.php)
//	Abstract [non-callable] (FilterBaseController.php)
var sectionRe = regexp.MustCompile(
	`(Resources|Service|Abstract\s*\[non-callable\])\s*` +
		`\((\w+\.php)\)` +
		`(?:.*?extends\s*:\s*(\w+))?`)

var (
	tableRowRe  = regexp.MustCompile(`^\|(.+)\|$`)
	separatorRe = regexp.MustCompile(`^\|[\s\-:|]+\|$`)
	h1Re        = regexp.MustCompile(`^#\s+(\w+)`)
	modelURLRe  = regexp.MustCompile(`\[.*?\]\((https?://[^)]+\.xml)\)`)
)

// ParseDocs parses all markdown files under docsDir into Modules. Files that
// fail to read or yield no controllers are skipped, not fatal.
func ParseDocs(docsDir string, log *zap.SugaredLogger) ([]*ir.Module, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var modules []*ir.Module

	for _, category := range Categories {
		catDir := filepath.Join(docsDir, category)
		if st, err := os.Stat(catDir); err != nil || !st.IsDir() {
			continue
		}
		paths, err := filepath.Glob(filepath.Join(catDir, "*.md"))
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", catDir)
		}
		sort.Strings(paths)
		for _, p := range paths {
			module, err := ParseModuleFile(p, category)
			if err != nil {
				log.Warnw("skipping doc file", "path", p, "error", err)
				continue
			}
			if module != nil && len(module.Controllers) > 0 {
				modules = append(modules, module)
			}
		}
	}
	return modules, nil
}

// ParseModuleFile parses a single markdown doc file into a Module. A file
// without a recognizable H1 or without any controllers yields nil.
func ParseModuleFile(path, category string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read doc")
	}
	return ParseModule(string(data), category), nil
}

// ParseModule parses markdown doc text into a Module.
func ParseModule(text, category string) *ir.Module {
	// The crawler escapes underscores; undo that before tokenizing.
	text = strings.ReplaceAll(text, `\_`, "_")

	m := h1Re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	moduleName := m[1]

	lines := strings.Split(text, "\n")
	var controllers []*ir.Controller
	abstract := map[string]*ir.Controller{} // php file -> controller

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		if sm := sectionRe.FindStringSubmatch(line); sm != nil {
			sectionType, phpFile, baseClass := sm[1], sm[2], sm[3]
			isAbstract := strings.Contains(sectionType, "Abstract")

			i++
			endpoints, modelURL := parseTable(lines, i)
			i = skipTable(lines, i)

			ctrl := &ir.Controller{
				Name:       strings.TrimSuffix(phpFile, ".php"),
				PHPFile:    phpFile,
				BaseClass:  baseClass,
				IsAbstract: isAbstract,
				Endpoints:  endpoints,
				ModelURL:   modelURL,
			}
			if isAbstract {
				abstract[phpFile] = ctrl
			}
			controllers = append(controllers, ctrl)
			continue
		}

		// Headerless tables (e.g. firmware docs): infer the controller from
		// the first endpoint's own columns, merging into an existing
		// controller with the same identity.
		if isTableHeader(line, lines, i) {
			endpoints, modelURL := parseTable(lines, i)
			i = skipTable(lines, i)

			if len(endpoints) == 0 {
				continue
			}
			first := endpoints[0]
			var existing *ir.Controller
			for _, c := range controllers {
				if len(c.Endpoints) > 0 && c.Endpoints[0].Controller == first.Controller {
					existing = c
					break
				}
			}
			if existing != nil {
				existing.Endpoints = append(existing.Endpoints, endpoints...)
				if modelURL != "" && existing.ModelURL == "" {
					existing.ModelURL = modelURL
				}
			} else {
				controllers = append(controllers, &ir.Controller{
					Name:      titleWord(first.Controller) + "Controller",
					Endpoints: endpoints,
					ModelURL:  modelURL,
				})
			}
			continue
		}

		i++
	}

	mergeAbstractEndpoints(controllers, abstract)

	if len(controllers) == 0 {
		return nil
	}
	return &ir.Module{
		Name:        strings.ToLower(moduleName),
		Category:    category,
		Controllers: controllers,
	}
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// isTableHeader reports whether line starts our 5-column API table: a header
// row naming "Method" followed by a separator row.
func isTableHeader(line string, lines []string, idx int) bool {
	if !tableRowRe.MatchString(line) {
		return false
	}
	if idx+1 >= len(lines) || !separatorRe.MatchString(strings.TrimSpace(lines[idx+1])) {
		return false
	}
	cells := splitRow(line)
	return len(cells) >= 5 && strings.Contains(cells[0], "Method")
}

func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return nil
	}
	cells := make([]string, 0, len(parts)-2)
	for _, p := range parts[1 : len(parts)-1] {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// parseTable parses a markdown table starting at start. Returns the parsed
// endpoints and the model XML URL declared by a <<uses>> row, if any.
func parseTable(lines []string, start int) ([]*ir.Endpoint, string) {
	var endpoints []*ir.Endpoint
	modelURL := ""

	i := start
	found := false
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if tableRowRe.MatchString(line) {
			cells := splitRow(line)
			if len(cells) >= 5 && strings.Contains(cells[0], "Method") {
				i++ // skip header
				found = true
				break
			}
		}
		i++
	}
	if !found {
		return endpoints, modelURL
	}

	if i < len(lines) && separatorRe.MatchString(strings.TrimSpace(lines[i])) {
		i++
	}

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !tableRowRe.MatchString(line) {
			break
		}
		cells := splitRow(line)
		if len(cells) < 5 {
			i++
			continue
		}

		methodStr := strings.TrimSpace(strings.Trim(cells[0], "`"))
		module := cells[1]
		controller := cells[2]
		command := cells[3]
		paramsStr := cells[4]

		// Blank rows are allowed inside sloppy tables.
		if methodStr == "" && module == "" {
			i++
			continue
		}

		// A <<uses>> row declares which model XML this controller uses.
		if strings.Contains(methodStr, "<<uses>>") {
			if um := modelURLRe.FindStringSubmatch(paramsStr); um != nil {
				modelURL = um[1]
			}
			i++
			continue
		}

		var methods []string
		for _, m := range strings.Split(methodStr, ",") {
			methods = append(methods, strings.Trim(strings.TrimSpace(m), "`"))
		}

		commandCamel := names.SnakeToCamel(command)
		endpoints = append(endpoints, &ir.Endpoint{
			Methods:      methods,
			Module:       module,
			Controller:   controller,
			Command:      command,
			CommandCamel: commandCamel,
			URLPath:      "/api/" + module + "/" + controller + "/" + commandCamel,
			GoMethodName: names.GoMethodName(controller, command),
			Parameters:   parseParameters(paramsStr),
		})
		i++
	}

	return endpoints, modelURL
}

// skipTable advances past a markdown table, returning the line index after it.
func skipTable(lines []string, start int) int {
	i := start
	inTable := false
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		switch {
		case tableRowRe.MatchString(line) || separatorRe.MatchString(line):
			inTable = true
			i++
		case inTable:
			return i
		default:
			i++
			if i-start > 5 && !inTable {
				return i
			}
		}
	}
	return i
}

// parseParameters parses a docs parameter string like "$uuid,$enabled=null".
// Tokens with "=" are optional and carry a default; tokens without are
// required. Strings not using the $ sigil yield no parameters.
func parseParameters(paramsStr string) []ir.Parameter {
	paramsStr = strings.TrimSpace(paramsStr)
	if paramsStr == "" {
		return nil
	}
	paramsStr = strings.TrimSpace(strings.Trim(paramsStr, "*"))
	if !strings.HasPrefix(paramsStr, "$") {
		return nil
	}

	var params []ir.Parameter
	for _, part := range strings.Split(paramsStr, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "$")
		if part == "" {
			continue
		}
		if name, def, ok := strings.Cut(part, "="); ok {
			params = append(params, ir.Parameter{
				Name:    strings.TrimSpace(name),
				Default: strings.TrimSpace(def),
			})
		} else {
			params = append(params, ir.Parameter{Name: strings.TrimSpace(part), Required: true})
		}
	}
	return params
}

// mergeAbstractEndpoints copies abstract controller endpoints into every
// concrete controller whose declared base matches, by exact name or with the
// conventional "Controller" suffix stripped. The child's own commands win;
// merged endpoints are rewritten to the child's module/controller identity.
func mergeAbstractEndpoints(controllers []*ir.Controller, abstract map[string]*ir.Controller) {
	abstractByName := map[string]*ir.Controller{}
	for _, ctrl := range abstract {
		abstractByName[strings.ReplaceAll(ctrl.Name, "Controller", "")] = ctrl
		abstractByName[ctrl.Name] = ctrl
	}

	for _, ctrl := range controllers {
		if ctrl.IsAbstract || ctrl.BaseClass == "" {
			continue
		}
		parent := abstractByName[ctrl.BaseClass]
		if parent == nil {
			for _, a := range abstract {
				if strings.Contains(a.Name, ctrl.BaseClass) {
					parent = a
					break
				}
			}
		}
		if parent == nil {
			continue
		}

		existing := map[string]bool{}
		for _, ep := range ctrl.Endpoints {
			existing[ep.Command] = true
		}
		for _, ep := range parent.Endpoints {
			if existing[ep.Command] {
				continue
			}
			module, controller := ep.Module, ep.Controller
			if len(ctrl.Endpoints) > 0 {
				module = ctrl.Endpoints[0].Module
				controller = ctrl.Endpoints[0].Controller
			}
			ctrl.Endpoints = append(ctrl.Endpoints, &ir.Endpoint{
				Methods:      ep.Methods,
				Module:       module,
				Controller:   controller,
				Command:      ep.Command,
				CommandCamel: ep.CommandCamel,
				URLPath:      "/api/" + module + "/" + controller + "/" + ep.CommandCamel,
				GoMethodName: names.GoMethodName(controller, ep.Command),
				Parameters:   ep.Parameters,
			})
		}

		if ctrl.ModelURL == "" && parent.ModelURL != "" {
			ctrl.ModelURL = parent.ModelURL
		}
	}
}
