package naming

import "strings"

// DefaultRepoNameTemplate is used when a profile carries no template.
const DefaultRepoNameTemplate = "{assignment}-{group}"

// ExpandRepoTemplate computes a repository name from a template with
// {assignment} and {group} placeholders. Both values are slugified before
// substitution so repo names stay URL- and filesystem-safe.
func ExpandRepoTemplate(template, assignment, group string) string {
	if template == "" {
		template = DefaultRepoNameTemplate
	}
	out := strings.ReplaceAll(template, "{assignment}", Slugify(assignment))
	out = strings.ReplaceAll(out, "{group}", Slugify(group))
	return out
}
