package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/statebridge/pkg/reducers"
)

// ActionsMarkdown renders the declared actions of a system as a markdown table.
func ActionsMarkdown(system string, specs map[string]reducers.ActionSpec) string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", system)
	if len(names) == 0 {
		sb.WriteString("_No actions declared._\n")
		return sb.String()
	}
	sb.WriteString("| Action | Operation | Path | Default payload |\n")
	sb.WriteString("|--------|-----------|------|-----------------|\n")
	for _, name := range names {
		spec := specs[name]
		path := spec.Path
		if path == "" {
			path = "(root)"
		}
		value := "-"
		if spec.Value != nil {
			value = "`" + compact(spec.Value) + "`"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | `%s` | %s |\n", name, spec.Op, path, value)
	}
	return sb.String()
}
