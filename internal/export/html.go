package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/mohammad-safakhou/careergraph/models"
)

//go:embed templates/roadmap.html.tmpl
var templateFS embed.FS

var page = template.Must(template.New("roadmap.html.tmpl").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/roadmap.html.tmpl"))

type outlineNode struct {
	models.RoadmapNode
	Children []*outlineNode
}

// HTML renders roadmap as a standalone page: a static outline of the tree
// plus the roadmap JSON embedded for tooling.
func HTML(roadmap models.Roadmap) ([]byte, error) {
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Roadmap models.Roadmap
		Outline []*outlineNode
	}{roadmap, outline(roadmap.Nodes)})
	if err != nil {
		return nil, fmt.Errorf("render roadmap: %w", err)
	}
	return buf.Bytes(), nil
}

// outline nests nodes under their parents in input order. Nodes whose parent
// is unknown are shown at the top level so nothing is lost.
func outline(nodes []models.RoadmapNode) []*outlineNode {
	byID := make(map[string]*outlineNode, len(nodes))
	all := make([]*outlineNode, len(nodes))
	for i := range nodes {
		all[i] = &outlineNode{RoadmapNode: nodes[i]}
		if _, dup := byID[nodes[i].ID]; !dup {
			byID[nodes[i].ID] = all[i]
		}
	}
	var top []*outlineNode
	for _, n := range all {
		if n.ParentID != nil {
			if p, ok := byID[*n.ParentID]; ok && p != n {
				p.Children = append(p.Children, n)
				continue
			}
		}
		top = append(top, n)
	}
	return top
}

// Filename returns the download name for a roadmap titled title.
func Filename(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	return "roadmap_" + safe + ".html"
}

// WriteFile renders roadmap into dir and returns the written path.
func WriteFile(dir string, roadmap models.Roadmap) (string, error) {
	content, err := HTML(roadmap)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, Filename(roadmap.Title))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
