package reminder

import "strings"

// renderTemplate substitutes every occurrence of the $name and $task
// tokens. Values are inserted verbatim, no escaping.
func renderTemplate(tmpl, name, task string) string {
	out := strings.ReplaceAll(tmpl, "$name", name)
	return strings.ReplaceAll(out, "$task", task)
}
