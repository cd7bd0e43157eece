package ast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Read decodes a tree from its JSON form.
func Read(r io.Reader) (*Tree, error) {
	var t Tree
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode tree: %w", err)
	}
	if err := t.check(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReadFile decodes the tree stored at path.
func ReadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t *Tree) check() error {
	if t.Type == "" {
		return errors.New("tree node without a type")
	}
	for _, c := range t.Nodes {
		if c == nil {
			return errors.New("tree node with a null child")
		}
		if err := c.check(); err != nil {
			return err
		}
	}
	return nil
}
