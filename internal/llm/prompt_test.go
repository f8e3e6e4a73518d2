package llm

import (
	"fmt"
	"strings"
	"testing"

	"digin/internal/scan"
)

func TestBuildPrompt(t *testing.T) {
	dir := scan.DirInfo{
		Name: "api",
		Path: "src/api",
		Files: []scan.FileMeta{
			{Name: "main.go", Ext: ".go", Size: 42, Preview: "package main"},
			{Name: "logo.png", Ext: ".png", Size: 9000},
		},
	}
	p := BuildPrompt(dir)

	if !strings.Contains(p, "Directory: src/api") {
		t.Errorf("prompt missing directory path")
	}
	if !strings.Contains(p, "- main.go (.go, 42 bytes)") {
		t.Errorf("prompt missing file listing")
	}
	if !strings.Contains(p, "```go\npackage main\n```") {
		t.Errorf("prompt missing fenced snippet with language hint")
	}
	if strings.Contains(p, "```png") {
		t.Errorf("binary file should not produce a snippet")
	}
}

func TestBuildPromptSnippetCap(t *testing.T) {
	dir := scan.DirInfo{Name: "big", Path: "big"}
	for i := 0; i < maxSnippetFiles+10; i++ {
		dir.Files = append(dir.Files, scan.FileMeta{
			Name:    fmt.Sprintf("f%02d.go", i),
			Ext:     ".go",
			Preview: "package big",
		})
	}
	p := BuildPrompt(dir)
	if got := strings.Count(p, "```go"); got != maxSnippetFiles {
		t.Fatalf("snippets = %d, want %d", got, maxSnippetFiles)
	}
}

func TestBuildPromptEmptyDir(t *testing.T) {
	p := BuildPrompt(scan.DirInfo{Name: "empty", Path: "empty"})
	if !strings.Contains(p, "(no direct files)") || !strings.Contains(p, "(no text content)") {
		t.Fatalf("empty-dir prompt missing placeholders")
	}
}
