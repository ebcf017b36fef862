package parser

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jontk/opnsense-gen/internal/ir"
	"github.com/jontk/opnsense-gen/internal/names"
)

// leafFieldTypes are the declared kinds that materialize as Fields.
var leafFieldTypes = map[string]bool{
	"BooleanField":              true,
	"TextField":                 true,
	"DescriptionField":          true,
	"IntegerField":              true,
	"NumericField":              true,
	"OptionField":               true,
	"NetworkField":              true,
	"PortField":                 true,
	"CSVListField":              true,
	"ModelRelationField":        true,
	"InterfaceField":            true,
	"HostnameField":             true,
	"UrlField":                  true,
	"EmailField":                true,
	"CertificateField":          true,
	"AuthGroupField":            true,
	"AuthenticationServerField": true,
	"ConfigdActionsField":       true,
	"CountryField":              true,
	"LegacyLinkField":           true,
	"JsonKeyValueStoreField":    true,
	"UniqueIdField":             true,
	"UpdateOnlyTextField":       true,
	"Base64Field":               true,
	"VirtualIPField":            true,
}

// containerTypes declare repeated/array containers; never Fields.
var containerTypes = map[string]bool{
	"ArrayField":     true,
	"ContainerField": true,
}

// fieldMetaChildren are metadata tags a leaf field carries; their presence is
// the structural "looks like a field" signal for undeclared kinds.
var fieldMetaChildren = map[string]bool{
	"Required":          true,
	"Default":           true,
	"ValidationMessage": true,
	"Constraints":       true,
	"Multiple":          true,
	"OptionValues":      true,
	"BlankDesc":         true,
	"Label":             true,
}

var modelPathRe = regexp.MustCompile(`models/(OPNsense/.+\.xml)`)

// ParseModels parses every XML model under modelsDir. The returned map is
// keyed by the path relative to modelsDir (the OPNsense/... part), which is
// what doc model URLs are matched against. Unparseable files are dropped.
func ParseModels(modelsDir string, log *zap.SugaredLogger) (map[string]*ir.Model, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	models := map[string]*ir.Model{}

	if st, err := os.Stat(modelsDir); err != nil || !st.IsDir() {
		// A missing models tree is not an error; controllers stay untyped.
		return models, nil
	}

	err := filepath.WalkDir(modelsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".xml") {
			return nil
		}
		model, perr := ParseModelFile(path)
		if perr != nil {
			log.Warnw("skipping model file", "path", path, "error", perr)
			return nil
		}
		rel, rerr := filepath.Rel(modelsDir, path)
		if rerr != nil {
			rel = path
		}
		models[filepath.ToSlash(rel)] = model
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", modelsDir)
	}
	return models, nil
}

// ParseModelFile parses a single XML model file.
func ParseModelFile(path string) (*ir.Model, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, errors.Wrap(err, "parse model xml")
	}
	model := parseModelDoc(doc)
	model.XMLPath = path
	return model, nil
}

// ParseModelBytes parses XML model content, used by tests and future callers
// that already hold the bytes.
func ParseModelBytes(data []byte) (*ir.Model, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(err, "parse model xml")
	}
	return parseModelDoc(doc), nil
}

func parseModelDoc(doc *etree.Document) *ir.Model {
	model := &ir.Model{}
	root := doc.Root()
	if root == nil {
		return model
	}

	if mount := root.FindElement(".//mount"); mount != nil {
		model.Mount = strings.TrimSpace(mount.Text())
	}
	if version := root.FindElement(".//version"); version != nil {
		model.Version = strings.TrimSpace(version.Text())
	}
	if items := root.FindElement(".//items"); items != nil {
		model.Items = parseItems(items)
	}
	return model
}

// parseItems classifies each immediate child of <items> by a three-way test:
// container with nested item templates (falling back to a flat array when no
// templates are nested), a bare item template, or, once per schema, the
// fields of a single implicit flat settings item.
func parseItems(itemsElem *etree.Element) []*ir.ModelItem {
	var items []*ir.ModelItem
	foundFlatSettings := false

	for _, container := range itemsElem.ChildElements() {
		containerType := container.SelectAttrValue("type", "")

		switch {
		case containerTypes[containerType] || hasArrayChildren(container):
			foundNested := false
			for _, itemElem := range container.ChildElements() {
				if itemElem.Tag == "type" || itemElem.Tag == "style" {
					continue
				}
				if item := parseItem(itemElem, container.Tag); item != nil {
					items = append(items, item)
					foundNested = true
				}
			}
			// No nested templates: the container holds its fields inline
			// (a flat array, e.g. Bridge.xml).
			if !foundNested {
				if item := parseFlatArray(container); item != nil {
					items = append(items, item)
				}
			}
		case isItemTemplate(container):
			if item := parseFlatArray(container); item != nil {
				items = append(items, item)
			}
		case !foundFlatSettings:
			if item := parseFlatSettings(itemsElem); item != nil {
				items = append(items, item)
				foundFlatSettings = true
			}
		}
	}

	dedupeItemGoNames(items)
	return items
}

// dedupeItemGoNames suffixes derived type identifiers so two items in the
// same model never collide; the first occurrence keeps the bare name.
func dedupeItemGoNames(items []*ir.ModelItem) {
	seen := map[string]int{}
	for _, item := range items {
		base := item.GoName
		if n, ok := seen[base]; ok {
			seen[base] = n + 1
			item.GoName = base + strconv.Itoa(n+1)
		} else {
			seen[base] = 1
		}
	}
}

// hasArrayChildren heuristically detects containers: a child whose own
// children carry leaf field kinds marks this element as an array container.
func hasArrayChildren(elem *etree.Element) bool {
	for _, child := range elem.ChildElements() {
		if child.Tag == "type" || child.Tag == "style" {
			continue
		}
		for _, grandchild := range child.ChildElements() {
			gcType := grandchild.SelectAttrValue("type", "")
			if leafFieldTypes[gcType] || leafFieldTypes[grandchild.Tag] {
				return true
			}
		}
	}
	return false
}

// isItemTemplate distinguishes an item template (direct children are field
// declarations) from a leaf field (direct children are metadata tags).
func isItemTemplate(elem *etree.Element) bool {
	for _, child := range elem.ChildElements() {
		childType := child.SelectAttrValue("type", "")
		if leafFieldTypes[childType] {
			return true
		}
		if strings.HasSuffix(childType, "Field") && !containerTypes[childType] {
			return true
		}
	}
	return false
}

func parseItem(itemElem *etree.Element, containerName string) *ir.ModelItem {
	var fields []ir.ModelField
	for _, fieldElem := range itemElem.ChildElements() {
		if f := parseField(fieldElem); f != nil {
			fields = append(fields, *f)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ir.ModelItem{
		Name:          itemElem.Tag,
		GoName:        names.ItemGoName(itemElem.Tag),
		ContainerName: containerName,
		Fields:        fields,
	}
}

// parseFlatArray handles containers that hold their fields inline; the
// container tag doubles as the item name.
func parseFlatArray(container *etree.Element) *ir.ModelItem {
	var fields []ir.ModelField
	for _, fieldElem := range container.ChildElements() {
		if f := parseField(fieldElem); f != nil {
			fields = append(fields, *f)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ir.ModelItem{
		Name:          container.Tag,
		GoName:        names.ItemGoName(container.Tag),
		ContainerName: container.Tag,
		Fields:        fields,
	}
}

// parseFlatSettings collects all immediate children of <items> into the
// single implicit settings item of a schema with no repeated records.
func parseFlatSettings(itemsElem *etree.Element) *ir.ModelItem {
	var fields []ir.ModelField
	for _, fieldElem := range itemsElem.ChildElements() {
		if f := parseField(fieldElem); f != nil {
			fields = append(fields, *f)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ir.ModelItem{
		Name:   "settings",
		GoName: "Settings",
		Fields: fields,
	}
}

func parseField(fieldElem *etree.Element) *ir.ModelField {
	fieldType := fieldElem.SelectAttrValue("type", fieldElem.Tag)

	if containerTypes[fieldType] {
		return nil
	}
	if !leafFieldTypes[fieldType] && !looksLikeField(fieldElem) {
		return nil
	}

	name := fieldElem.Tag
	f := &ir.ModelField{
		Name:      name,
		FieldType: fieldType,
		GoName:    names.FieldToGoName(name),
		JSONName:  name,
		GoType:    fieldTypeToGo(fieldType),
	}

	if req := fieldElem.SelectElement("Required"); req != nil {
		f.Required = parseYes(req.Text())
	}
	if def := fieldElem.SelectElement("Default"); def != nil {
		f.Default = strings.TrimSpace(def.Text())
	}
	volatile := strings.ToLower(fieldElem.SelectAttrValue("volatile", ""))
	f.Volatile = volatile == "true" || volatile == "1"
	if mult := fieldElem.SelectElement("Multiple"); mult != nil {
		f.Multiple = parseYes(mult.Text())
	}
	if opts := fieldElem.SelectElement("OptionValues"); opts != nil {
		for _, opt := range opts.ChildElements() {
			f.Options = append(f.Options, opt.Tag)
		}
	}
	return f
}

// parseYes is the case-insensitive yes/true/1 test used by Required and
// Multiple metadata.
func parseYes(text string) bool {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "Y", "YES", "1", "TRUE":
		return true
	}
	return false
}

// looksLikeField is the structural fallback for kinds missing from the
// allow-list: field metadata children, or a declared kind ending in "Field".
func looksLikeField(elem *etree.Element) bool {
	for _, child := range elem.ChildElements() {
		if fieldMetaChildren[child.Tag] {
			return true
		}
	}
	return strings.HasSuffix(elem.SelectAttrValue("type", ""), "Field")
}

// fieldTypeToGo maps a declared kind to its canonical semantic type. All
// non-boolean/non-integer leaf kinds degrade to string.
func fieldTypeToGo(fieldType string) string {
	switch fieldType {
	case "BooleanField":
		return "opnsense.OPNBool"
	case "IntegerField":
		return "opnsense.OPNInt"
	}
	return "string"
}

// MatchModelURL finds a parsed model for a doc model URL by extracting the
// OPNsense/...xml tail.
func MatchModelURL(models map[string]*ir.Model, url string) *ir.Model {
	if url == "" {
		return nil
	}
	m := modelPathRe.FindStringSubmatch(url)
	if m == nil {
		return nil
	}
	return models[m[1]]
}
