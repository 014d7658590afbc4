package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/statebridge/pkg/reducers"
)

// Overlay contains dispatch history to visualize on the graph.
type Overlay struct {
	Dispatched []string
	Last       string
}

// GenerateMermaid produces a Mermaid flowchart of a declarative system: which
// action writes which state path, and with which operation.
// Shapes:
// - System: ((Circle))
// - Action: [/Parallelogram/]
// - State path: [Rectangle]
// Dispatched actions are styled when an overlay is provided.
func GenerateMermaid(system string, specs map[string]reducers.ActionSpec, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	sysID := "sys_" + sanitizeMermaidID(system)
	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", sysID, system))

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make(map[string]bool)
	for _, name := range names {
		spec := specs[name]
		actionID := "action_" + sanitizeMermaidID(name)
		sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", actionID, name))

		target := sysID
		if spec.Path != "" {
			target = "path_" + sanitizeMermaidID(spec.Path)
			if !paths[spec.Path] {
				paths[spec.Path] = true
				sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", target, spec.Path))
				sb.WriteString(fmt.Sprintf("    %s --- %s\n", sysID, target))
			}
		}

		arrow := fmt.Sprintf("-- \"%s\" -->", spec.Op)
		if spec.Op == reducers.OpDelete {
			arrow = fmt.Sprintf("-. \"%s\" .->", spec.Op)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", actionID, arrow, target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef dispatched fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef last fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.Dispatched {
			if _, ok := specs[name]; !ok || seen[name] {
				continue
			}
			seen[name] = true
			sb.WriteString(fmt.Sprintf("    class action_%s dispatched;\n", sanitizeMermaidID(name)))
		}
		if _, ok := specs[overlay.Last]; ok {
			sb.WriteString(fmt.Sprintf("    class action_%s last;\n", sanitizeMermaidID(overlay.Last)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
