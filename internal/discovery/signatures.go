package discovery

import "github.com/skillmeat/skillmeat/internal/registry"

// signatureFilenames lists, in priority order, the metadata filename(s)
// that mark a directory as holding an artifact of the given type.
// Grounded on original_source/skillmeat/core/discovery.py's
// _find_metadata_file / _detect_artifact_type branching.
var signatureFilenames = map[registry.ArtifactType][]string{
	registry.TypeSkill:   {"SKILL.md"},
	registry.TypeCommand: {"COMMAND.md", "command.md"},
	registry.TypeAgent:   {"AGENT.md", "agent.md"},
	registry.TypeHook:    {"HOOK.md", "hook.md"},
	registry.TypeMCP:     {"MCP.md", "mcp.json"},
}

// detectionOrder lists the artifact types in skill, command, agent,
// hook, mcp order. The scanner does not read it: a directory's type
// comes from the container it sits in, and only that type's
// signatureFilenames are checked.
var detectionOrder = []registry.ArtifactType{
	registry.TypeSkill,
	registry.TypeCommand,
	registry.TypeAgent,
	registry.TypeHook,
	registry.TypeMCP,
}

// containerAliases maps a container directory name to its artifact type,
// covering both the plural convention (skills/, commands/) and the
// legacy/alternate spellings original_source tolerated.
var containerAliases = map[string]registry.ArtifactType{
	"skills":       registry.TypeSkill,
	"skill":        registry.TypeSkill,
	"commands":     registry.TypeCommand,
	"command":      registry.TypeCommand,
	"agents":       registry.TypeAgent,
	"agent":        registry.TypeAgent,
	"hooks":        registry.TypeHook,
	"hook":         registry.TypeHook,
	"mcp":          registry.TypeMCP,
	"mcps":         registry.TypeMCP,
	"config":       registry.TypeConfig,
	"configs":      registry.TypeConfig,
	"specs":        registry.TypeSpec,
	"spec":         registry.TypeSpec,
	"rules":        registry.TypeRule,
	"rule":         registry.TypeRule,
	"progress":     registry.TypeProgress,
	"progress_templates": registry.TypeProgress,
}

// normalizeContainerName maps a scanned subdirectory name to an
// ArtifactType, applying the generic "strip trailing s" fallback the
// Python source uses for directory names not in the alias table.
func normalizeContainerName(dirname string) (registry.ArtifactType, bool) {
	if t, ok := containerAliases[dirname]; ok {
		return t, true
	}
	if len(dirname) > 1 && dirname[len(dirname)-1] == 's' {
		singular := dirname[:len(dirname)-1]
		if t, ok := containerAliases[singular]; ok {
			return t, true
		}
	}
	return "", false
}
