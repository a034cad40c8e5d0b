package cmdschema

import (
	"regexp"
	"strings"
)

// cmake-format config files group their settings in `with section("NAME"):` blocks, which
// Starlark can't parse. splitSections cuts those blocks out so each one can be executed on its own.
var sectionHeader = regexp.MustCompile(`^with\s+section\(\s*["']([A-Za-z_][A-Za-z0-9_]*)["']\s*\)\s*:\s*(#.*)?$`)

type configSection struct {
	name string
	// source has as many lines as the whole file; everything outside the block is blank
	source []byte
}

// splitSections returns the top-level code of a config file and its section blocks. The section
// bodies are dedented. Both keep their original line numbers so script positions stay accurate.
func splitSections(data []byte) ([]byte, []configSection) {
	lines := strings.Split(string(data), "\n")
	top := make([]string, len(lines))
	var sections []configSection

	for idx := 0; idx < len(lines); idx++ {
		match := sectionHeader.FindStringSubmatch(strings.TrimRight(lines[idx], "\r"))
		if match == nil {
			top[idx] = lines[idx]
			continue
		}

		end := idx + 1
		for end < len(lines) && !startsTopLevel(lines[end]) {
			end++
		}

		source := make([]string, len(lines))
		copy(source[idx+1:], dedent(lines[idx+1:end]))
		sections = append(sections, configSection{
			name:   match[1],
			source: []byte(strings.Join(source, "\n")),
		})
		idx = end - 1
	}

	if sections == nil {
		return data, nil
	}
	return []byte(strings.Join(top, "\n")), sections
}

func startsTopLevel(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	return line[0] != ' ' && line[0] != '\t'
}

func dedent(lines []string) []string {
	indent := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if width := len(line) - len(trimmed); indent < 0 || width < indent {
			indent = width
		}
	}
	if indent < 0 {
		indent = 0
	}

	result := make([]string, len(lines))
	for idx, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if len(line)-len(trimmed) > indent {
			result[idx] = line[indent:]
		} else {
			// blank lines and comments that are indented less than the code
			result[idx] = trimmed
		}
	}
	return result
}
