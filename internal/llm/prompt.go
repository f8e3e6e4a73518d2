package llm

import (
	"fmt"
	"strings"

	"digin/internal/scan"
)

const maxSnippetFiles = 20

var langHints = map[string]string{
	".py": "python", ".js": "javascript", ".ts": "typescript", ".jsx": "jsx", ".tsx": "tsx",
	".java": "java", ".cpp": "cpp", ".c": "c", ".rs": "rust", ".go": "go", ".rb": "ruby",
	".php": "php", ".cs": "csharp", ".vue": "vue", ".sql": "sql", ".sh": "bash",
	".yml": "yaml", ".yaml": "yaml", ".json": "json", ".xml": "xml", ".html": "html",
	".css": "css", ".scss": "scss", ".md": "markdown",
}

const promptHeader = `Analyze the directory below and answer with a single JSON object, no prose.

Fields:
- name: directory name
- kind: one of service|lib|ui|infra|config|test|docs|unknown
- summary: one-sentence description of what the directory does
- capabilities: short capability phrases
- public_interfaces: map of protocol category (http|grpc|cli|library|other) to
  entries {name, description, evidence:[file paths]}
- dependencies: {internal:[module names], external:[package names]}
- configuration: {env:[variable names], files:[config file names]}
- risks: notable risks, if any
- evidence: {files:[file names that support the answer]}
- confidence: integer 0-100
`

// BuildPrompt renders a leaf directory's listing and bounded code snippets
// into the analysis request.
func BuildPrompt(dir scan.DirInfo) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	fmt.Fprintf(&b, "\nDirectory: %s\n\nFiles:\n", dir.Path)
	if len(dir.Files) == 0 {
		b.WriteString("(no direct files)\n")
	}
	for _, f := range dir.Files {
		fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", f.Name, f.Ext, f.Size)
	}

	b.WriteString("\nSnippets:\n")
	count := 0
	for _, f := range dir.Files {
		if f.Preview == "" {
			continue
		}
		if count >= maxSnippetFiles {
			break
		}
		fmt.Fprintf(&b, "\n**%s** (%d bytes):\n```%s\n%s\n```\n", f.Name, f.Size, langHints[f.Ext], f.Preview)
		count++
	}
	if count == 0 {
		b.WriteString("(no text content)\n")
	}
	return b.String()
}
