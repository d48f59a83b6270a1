package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage moves uploaded assets out of the tmp area once a proposal lands.
type Storage interface {
	Promote(tmpKey string) (permanentKey string, err error)
}

// diskStorage keeps assets on the local filesystem under a root dir.
type diskStorage struct {
	root string
}

func NewDiskStorage(root string) Storage {
	return diskStorage{root: root}
}

func (d diskStorage) Promote(tmpKey string) (string, error) {
	clean := filepath.Clean(tmpKey)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("bad asset key %q", tmpKey)
	}

	permanentKey := filepath.Join("assets", filepath.Base(clean))
	src := filepath.Join(d.root, clean)
	dst := filepath.Join(d.root, permanentKey)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err != nil {
		return "", err
	}
	return permanentKey, nil
}
