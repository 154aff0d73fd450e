package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtcli/pkg/schema"
)

// loadTree reads a tree file in the flat path-to-attributes YAML form.
func loadTree(path string) (*schema.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tree := schema.NewTree()
	if err := yaml.Unmarshal(data, tree); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return tree, nil
}

// desiredPath resolves the desired-state file for a device: path itself,
// or <path>/<device>.yaml when path is a directory.
func desiredPath(path, device string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return filepath.Join(path, device+".yaml"), nil
	}
	return path, nil
}

// writeTree prints a tree as YAML, or as JSON with --json.
func writeTree(w io.Writer, tree *schema.Tree) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return err
	}
	return enc.Close()
}
