// Package names holds the identifier transforms shared by the parsers and
// emitters: snake_case from the docs and XML models becomes camelCase URL
// segments, PascalCase Go identifiers, and kebab-case CLI tokens.
package names

import "strings"

// GroupSingleChars collapses runs of consecutive single-character segments
// into uppercase acronyms:
//
//	[get alias u u i d] -> [get alias UUID]
//	[get c p u type]    -> [get CPU type]
//
// Full words are left alone even when they spell a common acronym in
// lowercase; only collapsed runs come out uppercase.
func GroupSingleChars(parts []string) []string {
	grouped := make([]string, 0, len(parts))
	i := 0
	for i < len(parts) {
		if len(parts[i]) == 1 {
			var acronym strings.Builder
			for i < len(parts) && len(parts[i]) == 1 {
				acronym.WriteString(strings.ToUpper(parts[i]))
				i++
			}
			grouped = append(grouped, acronym.String())
			continue
		}
		grouped = append(grouped, parts[i])
		i++
	}
	return grouped
}

func isUpper(s string) bool {
	return s != "" && s == strings.ToUpper(s) && s != strings.ToLower(s)
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	// Grouped acronyms (UUID, CPU) stay fully uppercase.
	if len(word) > 1 && isUpper(word) {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// SnakeToCamel converts snake_case to camelCase with acronym grouping.
// Strings without underscores pass through unchanged.
//
//	add_item          -> addItem
//	get_alias_u_u_i_d -> getAliasUUID
//	getOptions        -> getOptions
//	_rolling          -> rolling
func SnakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	s = strings.TrimLeft(s, "_")
	grouped := GroupSingleChars(strings.Split(s, "_"))

	var b strings.Builder
	first := true
	for _, word := range grouped {
		if word == "" {
			continue
		}
		if first {
			b.WriteString(strings.ToLower(word))
			first = false
			continue
		}
		b.WriteString(capitalize(word))
	}
	return b.String()
}

// SnakeToPascal converts snake_case to PascalCase with acronym grouping.
//
//	add_item          -> AddItem
//	get_alias_u_u_i_d -> GetAliasUUID
//	_carp_status      -> CarpStatus
func SnakeToPascal(s string) string {
	if !strings.Contains(s, "_") {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
	s = strings.TrimLeft(s, "_")
	grouped := GroupSingleChars(strings.Split(s, "_"))

	var b strings.Builder
	for _, word := range grouped {
		if word == "" {
			continue
		}
		b.WriteString(capitalize(word))
	}
	return b.String()
}

// ControllerToGoName converts a controller token to its Go name fragment.
//
//	alias_util -> AliasUtil
//	d_nat      -> DNat
func ControllerToGoName(controller string) string {
	return SnakeToPascal(controller)
}

// ModuleToPackage converts a module name to a Go package name.
func ModuleToPackage(module string) string {
	return strings.ReplaceAll(strings.ToLower(module), "_", "")
}

// FieldToGoName converts an XML field tag to a Go struct field name.
// Hyphens are treated as word separators.
//
//	enabled       -> Enabled
//	state-policy  -> StatePolicy
//	max-src-nodes -> MaxSrcNodes
func FieldToGoName(name string) string {
	normalized := strings.ReplaceAll(name, "-", "_")
	if strings.Contains(normalized, "_") {
		return SnakeToPascal(normalized)
	}
	if normalized == "" {
		return normalized
	}
	return strings.ToUpper(normalized[:1]) + normalized[1:]
}

// ItemGoName computes a Go type name from an XML item tag, handling both
// hyphens and underscores.
func ItemGoName(name string) string {
	return FieldToGoName(name)
}

// GoMethodName builds an SDK method name from controller + command tokens.
//
//	(alias, add_item)       -> AliasAddItem
//	(service, reconfigure)  -> ServiceReconfigure
func GoMethodName(controller, command string) string {
	return ControllerToGoName(controller) + SnakeToPascal(command)
}

// NormalizeKebab applies acronym grouping to a snake_case string and returns
// kebab-case, used for CLI resource and verb tokens.
//
//	c_p_u_type -> cpu-type
//	tag_list   -> tag-list
func NormalizeKebab(raw string) string {
	grouped := GroupSingleChars(strings.Split(raw, "_"))
	kept := make([]string, 0, len(grouped))
	for _, p := range grouped {
		if p == "" {
			continue
		}
		kept = append(kept, strings.ToLower(p))
	}
	return strings.Join(kept, "-")
}

// KebabToGoIdent converts a kebab/snake resource name to a PascalCase Go
// identifier fragment.
//
//	tag-list -> TagList
func KebabToGoIdent(name string) string {
	name = strings.ReplaceAll(name, "-", "_")
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}
