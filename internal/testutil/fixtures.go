package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// Tree builds a tree from path strings and bags, inserted in sorted path
// order so parents exist before children.
func Tree(t *testing.T, nodes map[string]schema.Bag) *schema.Tree {
	t.Helper()
	tree := schema.NewTree()
	paths := make([]string, 0, len(nodes))
	for p := range nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, ps := range paths {
		p, err := schema.ParsePath(ps)
		if err != nil {
			t.Fatalf("fixture path %q: %v", ps, err)
		}
		tree.Set(p, nodes[ps].Clone())
	}
	return tree
}

// TreeYAML decodes a tree from its flat YAML form.
func TreeYAML(t *testing.T, doc string) *schema.Tree {
	t.Helper()
	tree := schema.NewTree()
	if err := yaml.Unmarshal([]byte(doc), tree); err != nil {
		t.Fatalf("decoding tree fixture: %v", err)
	}
	return tree
}

// ReadTestdata returns the contents of testdata/<name> relative to the
// calling package.
func ReadTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("reading testdata: %v", err)
	}
	return string(data)
}

// WriteTemp writes content to a file in a per-test temporary directory and
// returns its path.
func WriteTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
