package cliemit

import (
	"fmt"
	"strings"

	"github.com/jontk/opnsense-gen/internal/names"
)

const generatedHeader = "// Code generated by opnsense-gen. DO NOT EDIT.\n\n"

// searchPageSize is the pagination window generated list commands request.
const searchPageSize = 500

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// renderModuleFile produces gen/<pkg>.go: the module command tree with one
// resource command per resource and one leaf command per verb.
func renderModuleFile(m ModuleView, cliImport, runtimeImport string) []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	b.WriteString("package gen\n\n")

	b.WriteString("import (\n")
	b.WriteString("\t\"context\"\n")
	b.WriteString("\t\"fmt\"\n\n")
	b.WriteString("\t\"github.com/spf13/cobra\"\n\n")
	fmt.Fprintf(&b, "\t%q\n", cliImport)
	fmt.Fprintf(&b, "\t%q\n", runtimeImport)
	fmt.Fprintf(&b, "\t%q\n", m.SDKPackage)
	b.WriteString(")\n\n")

	fmt.Fprintf(&b, "func new%sCmd() *cobra.Command {\n", m.GoFileIdent)
	b.WriteString("\tcmd := &cobra.Command{\n")
	fmt.Fprintf(&b, "\t\tUse:   %q,\n", m.CLIName)
	fmt.Fprintf(&b, "\t\tShort: %q,\n", "Manage the "+m.ModuleName+" module")
	b.WriteString("\t}\n")
	b.WriteString("\tcmd.AddCommand(\n")
	for _, r := range m.Resources {
		fmt.Fprintf(&b, "\t\tnew%s%sCmd(),\n", m.GoFileIdent, r.GoIdent)
	}
	b.WriteString("\t)\n\treturn cmd\n}\n")

	for _, r := range m.Resources {
		renderResource(&b, m, r)
	}
	return []byte(b.String())
}

func renderResource(b *strings.Builder, m ModuleView, r ResourceView) {
	b.WriteString("\n")
	fmt.Fprintf(b, "func new%s%sCmd() *cobra.Command {\n", m.GoFileIdent, r.GoIdent)
	b.WriteString("\tcmd := &cobra.Command{\n")
	fmt.Fprintf(b, "\t\tUse:   %q,\n", r.Resource)
	fmt.Fprintf(b, "\t\tShort: %q,\n", "Manage "+m.ModuleName+" "+r.Resource)
	if len(r.SuggestFor) > 0 {
		quoted := make([]string, 0, len(r.SuggestFor))
		for _, s := range r.SuggestFor {
			quoted = append(quoted, fmt.Sprintf("%q", s))
		}
		fmt.Fprintf(b, "\t\tSuggestFor: []string{%s},\n", strings.Join(quoted, ", "))
	}
	b.WriteString("\t}\n")
	b.WriteString("\tcmd.AddCommand(\n")
	for _, v := range r.Verbs {
		fmt.Fprintf(b, "\t\tnew%s%s%sCmd(),\n", m.GoFileIdent, r.GoIdent, names.KebabToGoIdent(v.CLIVerb))
	}
	b.WriteString("\t)\n\treturn cmd\n}\n")

	if r.ItemType != "" && len(r.Columns) > 0 {
		renderColumns(b, m, r)
	}
	for _, v := range r.Verbs {
		renderVerb(b, m, r, v)
	}
}

// renderColumns emits the row coercion helper and the column table shared by
// the resource's list and get commands.
func renderColumns(b *strings.Builder, m ModuleView, r ResourceView) {
	helper := lowerFirst(m.GoFileIdent + r.GoIdent)
	typ := m.PackageName + "." + r.ItemType

	b.WriteString("\n")
	fmt.Fprintf(b, "func %sRow(row any) (%s, bool) {\n", helper, typ)
	b.WriteString("\tswitch v := row.(type) {\n")
	fmt.Fprintf(b, "\tcase %s:\n\t\treturn v, true\n", typ)
	fmt.Fprintf(b, "\tcase *%s:\n\t\tif v != nil {\n\t\t\treturn *v, true\n\t\t}\n", typ)
	b.WriteString("\t}\n")
	fmt.Fprintf(b, "\treturn %s{}, false\n}\n\n", typ)

	fmt.Fprintf(b, "var %sColumns = []cli.Column{\n", helper)
	for _, col := range r.Columns {
		fmt.Fprintf(b, "\t{Header: %q, Extract: func(row any) string {\n", col.Header)
		fmt.Fprintf(b, "\t\tv, ok := %sRow(row)\n\t\tif !ok {\n\t\t\treturn \"\"\n\t\t}\n", helper)
		switch {
		case col.GoType == "string":
			fmt.Fprintf(b, "\t\treturn v.%s\n", col.FieldName)
		case strings.HasPrefix(col.GoType, "*"):
			fmt.Fprintf(b, "\t\tif v.%s == nil {\n\t\t\treturn \"\"\n\t\t}\n", col.FieldName)
			fmt.Fprintf(b, "\t\treturn fmt.Sprint(*v.%s)\n", col.FieldName)
		default:
			fmt.Fprintf(b, "\t\treturn fmt.Sprint(v.%s)\n", col.FieldName)
		}
		b.WriteString("\t}},\n")
	}
	b.WriteString("}\n")
}

func renderVerb(b *strings.Builder, m ModuleView, r ResourceView, v VerbView) {
	helper := lowerFirst(m.GoFileIdent + r.GoIdent)
	use := v.CLIVerb
	for _, p := range v.PositionalParams {
		use += " <" + p + ">"
	}
	argsCheck := "cobra.NoArgs"
	if n := len(v.PositionalParams); n > 0 {
		argsCheck = fmt.Sprintf("cobra.ExactArgs(%d)", n)
	}

	// Positional args forwarded to the SDK call, in order.
	var callArgs []string
	for i := range v.PositionalParams {
		callArgs = append(callArgs, fmt.Sprintf("args[%d]", i))
	}

	b.WriteString("\n")
	fmt.Fprintf(b, "func new%s%s%sCmd() *cobra.Command {\n", m.GoFileIdent, r.GoIdent, names.KebabToGoIdent(v.CLIVerb))
	b.WriteString("\tcmd := &cobra.Command{\n")
	fmt.Fprintf(b, "\t\tUse:   %q,\n", use)
	fmt.Fprintf(b, "\t\tShort: %q,\n", verbShort(v, r))
	fmt.Fprintf(b, "\t\tArgs:  %s,\n", argsCheck)
	b.WriteString("\t\tRunE: func(cmd *cobra.Command, args []string) error {\n")
	b.WriteString("\t\t\tc, cfg, err := cli.NewClientFromCmd(cmd)\n")
	b.WriteString("\t\t\tif err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
	fmt.Fprintf(b, "\t\t\tsdk := %s.NewClient(c)\n", m.PackageName)

	switch {
	case v.IsTyped && v.IsSearch && v.SearchNeedsBody:
		fmt.Fprintf(b, "\t\t\trows, err := opnsense.Collect(cmd.Context(), %d, func(ctx context.Context, page, rowCount int) (*opnsense.SearchResult[%s.%s], error) {\n",
			searchPageSize, m.PackageName, v.ItemType)
		searchArgs := append([]string{"ctx"}, callArgs...)
		searchArgs = append(searchArgs, `map[string]any{"current": page, "rowCount": rowCount}`)
		fmt.Fprintf(b, "\t\t\t\treturn sdk.%s(%s)\n", v.GoMethod, strings.Join(searchArgs, ", "))
		b.WriteString("\t\t\t})\n")
		b.WriteString("\t\t\tif err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
		b.WriteString("\t\t\tout := make([]any, 0, len(rows))\n")
		b.WriteString("\t\t\tfor _, row := range rows {\n\t\t\t\tout = append(out, row)\n\t\t\t}\n")
		fmt.Fprintf(b, "\t\t\treturn cli.NewPrinter(cfg).PrintTable(out, %sColumns)\n", helper)

	case v.IsTyped && v.IsSearch:
		all := append([]string{"cmd.Context()"}, callArgs...)
		fmt.Fprintf(b, "\t\t\tres, err := sdk.%s(%s)\n", v.GoMethod, strings.Join(all, ", "))
		b.WriteString("\t\t\tif err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
		b.WriteString("\t\t\tout := make([]any, 0, len(res.Rows))\n")
		b.WriteString("\t\t\tfor _, row := range res.Rows {\n\t\t\t\tout = append(out, row)\n\t\t\t}\n")
		fmt.Fprintf(b, "\t\t\treturn cli.NewPrinter(cfg).PrintTable(out, %sColumns)\n", helper)

	case v.IsTyped && v.CRUDVerb == "get":
		all := append([]string{"cmd.Context()"}, callArgs...)
		fmt.Fprintf(b, "\t\t\titem, err := sdk.%s(%s)\n", v.GoMethod, strings.Join(all, ", "))
		b.WriteString("\t\t\tif err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
		fmt.Fprintf(b, "\t\t\treturn cli.NewPrinter(cfg).PrintItem(item, %sColumns)\n", helper)

	case v.HasDataFlag:
		fmt.Fprintf(b, "\t\t\tvar item %s.%s\n", m.PackageName, v.ItemType)
		b.WriteString("\t\t\tif err := readDataFlag(cmd, &item); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
		all := append([]string{"cmd.Context()"}, callArgs...)
		all = append(all, "&item")
		fmt.Fprintf(b, "\t\t\tresp, err := sdk.%s(%s)\n", v.GoMethod, strings.Join(all, ", "))
		b.WriteString("\t\t\tif err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
		b.WriteString("\t\t\treturn cli.NewPrinter(cfg).PrintGenericResponse(resp)\n")

	case v.IsTyped: // delete, toggle
		all := append([]string{"cmd.Context()"}, callArgs...)
		fmt.Fprintf(b, "\t\t\tresp, err := sdk.%s(%s)\n", v.GoMethod, strings.Join(all, ", "))
		b.WriteString("\t\t\tif err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
		b.WriteString("\t\t\treturn cli.NewPrinter(cfg).PrintGenericResponse(resp)\n")

	default:
		all := append([]string{"cmd.Context()"}, callArgs...)
		if v.HasBodyArg {
			b.WriteString("\t\t\tvar body any\n")
			b.WriteString("\t\t\tif err := readDataFlag(cmd, &body); err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
			all = append(all, "body")
		}
		fmt.Fprintf(b, "\t\t\tout, err := sdk.%s(%s)\n", v.GoMethod, strings.Join(all, ", "))
		b.WriteString("\t\t\tif err != nil {\n\t\t\t\treturn err\n\t\t\t}\n")
		b.WriteString("\t\t\treturn cli.NewPrinter(cfg).PrintJSON(out)\n")
	}

	b.WriteString("\t\t},\n\t}\n")
	if v.HasDataFlag || v.HasBodyArg {
		b.WriteString("\tcmd.Flags().String(\"data\", \"\", \"JSON body (use '-' to read from stdin)\")\n")
	}
	b.WriteString("\treturn cmd\n}\n")
}

func verbShort(v VerbView, r ResourceView) string {
	switch v.CLIVerb {
	case "list":
		return "List " + r.Resource + " entries"
	case "get":
		return "Show one " + r.Resource
	case "create":
		return "Create a " + r.Resource
	case "update":
		return "Update a " + r.Resource
	case "delete":
		return "Delete a " + r.Resource
	case "toggle":
		return "Toggle a " + r.Resource
	}
	return "Call " + v.PrimaryMethod + " " + v.URLPath
}

// renderRegisterFile produces gen/register.go: root registration plus the
// --data decoding helper shared by the generated commands.
func renderRegisterFile(modules []ModuleView, cliImport string) []byte {
	var b strings.Builder
	b.WriteString(generatedHeader)
	b.WriteString("// Package gen holds the generated command tree. It registers itself on\n")
	b.WriteString("// the root command at import time.\npackage gen\n\n")

	b.WriteString("import (\n")
	b.WriteString("\t\"encoding/json\"\n")
	b.WriteString("\t\"fmt\"\n")
	b.WriteString("\t\"io\"\n")
	b.WriteString("\t\"os\"\n\n")
	b.WriteString("\t\"github.com/spf13/cobra\"\n\n")
	fmt.Fprintf(&b, "\t%q\n", cliImport)
	b.WriteString(")\n\n")

	b.WriteString("func init() {\n\tcli.Root.AddCommand(\n")
	for _, m := range modules {
		fmt.Fprintf(&b, "\t\tnew%sCmd(),\n", m.GoFileIdent)
	}
	b.WriteString("\t)\n}\n\n")

	b.WriteString("// readDataFlag decodes the --data flag into v; \"-\" reads from stdin and\n")
	b.WriteString("// an empty flag leaves v untouched.\n")
	b.WriteString("func readDataFlag(cmd *cobra.Command, v any) error {\n")
	b.WriteString("\traw, _ := cmd.Flags().GetString(\"data\")\n")
	b.WriteString("\tif raw == \"\" {\n\t\treturn nil\n\t}\n")
	b.WriteString("\tif raw == \"-\" {\n")
	b.WriteString("\t\tb, err := io.ReadAll(os.Stdin)\n")
	b.WriteString("\t\tif err != nil {\n\t\t\treturn fmt.Errorf(\"reading stdin: %w\", err)\n\t\t}\n")
	b.WriteString("\t\traw = string(b)\n\t}\n")
	b.WriteString("\tif err := json.Unmarshal([]byte(raw), v); err != nil {\n")
	b.WriteString("\t\treturn fmt.Errorf(\"parsing --data JSON: %w\", err)\n\t}\n")
	b.WriteString("\treturn nil\n}\n")
	return []byte(b.String())
}
