package reconstruct

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

const disabledPrefix = "# disabled by gitripper: "

// unsafeConfigKeys name config options that make git run a program or
// relocate the work tree. A fetched config is untrusted input.
var unsafeConfigKeys = map[string]bool{
	"fsmonitor":  true,
	"hookspath":  true,
	"sshcommand": true,
	"askpass":    true,
	"editor":     true,
	"pager":      true,
	"gitproxy":   true,
	"worktree":   true,
	"textconv":   true,
	"external":   true,
	"command":    true,
	"clean":      true,
	"smudge":     true,
	"process":    true,
	"helper":     true,
	"program":    true,
	"cmd":        true,
}

// unsafeKeySuffixes catch variants such as core.alternateRefsCommand
var unsafeKeySuffixes = []string{"command", "cmd", "program"}

// includeSections pull further config files in through their path key
var includeSections = map[string]bool{
	"include":   true,
	"includeif": true,
}

// SanitizeConfig comments out unsafe options in <gitDir>/config. It returns
// the number of options disabled. A missing config is not an error.
func SanitizeConfig(gitDir string) (int, error) {
	path := filepath.Join(gitDir, "config")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cleaned, n := sanitizeConfig(data)
	if n == 0 {
		return 0, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return n, os.WriteFile(path, cleaned, info.Mode().Perm())
}

// sanitizeConfig disables unsafe keys line by line. Every line is inspected,
// value continuations included, so a line is left alone only when it is
// blank, a comment, a section header or a safe key. A key sharing its line
// with a section header is moved below the header before being disabled.
func sanitizeConfig(data []byte) ([]byte, int) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	out := make([][]byte, 0, len(lines))
	section := ""
	disabled := 0

	for _, line := range lines {
		text := strings.TrimSpace(string(line))
		if text == "" || text[0] == '#' || text[0] == ';' {
			out = append(out, line)
			continue
		}

		if text[0] != '[' {
			if unsafeKey(section, text) {
				line = disable(line)
				disabled++
			}
			out = append(out, line)
			continue
		}

		end := headerEnd(text)
		if end < 0 {
			// git rejects an unterminated header; keep it inert
			out = append(out, disable(line))
			disabled++
			section = ""
			continue
		}
		section = sectionName(text[1:end])

		rest := strings.TrimSpace(text[end+1:])
		if rest == "" || rest[0] == '#' || rest[0] == ';' || !unsafeKey(section, rest) {
			out = append(out, line)
			continue
		}
		out = append(out, []byte(text[:end+1]+"\n"), disable([]byte(rest+lineEnding(line))))
		disabled++
	}
	return bytes.Join(out, nil), disabled
}

// headerEnd returns the index of the ']' closing the header that starts
// text, honoring quoted subsection names and their escapes
func headerEnd(text string) int {
	quoted := false
	for i := 1; i < len(text); i++ {
		switch c := text[i]; {
		case quoted && c == '\\':
			i++
		case c == '"':
			quoted = !quoted
		case c == ']' && !quoted:
			return i
		}
	}
	return -1
}

// sectionName returns the lowercased section of a header body such as
// `includeIf "gitdir:~/x/"` or the legacy `branch.main`
func sectionName(header string) string {
	header = strings.TrimSpace(header)
	if i := strings.IndexAny(header, " \t\"."); i >= 0 {
		header = header[:i]
	}
	return strings.ToLower(header)
}

func unsafeKey(section, text string) bool {
	key := configKey(text)
	if includeSections[section] && key == "path" {
		return true
	}
	if unsafeConfigKeys[key] {
		return true
	}
	for _, suffix := range unsafeKeySuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

// configKey returns the lowercased variable name that starts text
func configKey(text string) string {
	end := 0
	for end < len(text) {
		c := text[end]
		if c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			end++
			continue
		}
		break
	}
	return strings.ToLower(text[:end])
}

func disable(line []byte) []byte {
	return append([]byte(disabledPrefix), line...)
}

func lineEnding(line []byte) string {
	if bytes.HasSuffix(line, []byte("\n")) {
		return "\n"
	}
	return ""
}
