// Package sceneio reads source scenes and writes finished solids. Scenes
// come from ASCII USD layers (.usda) or STL files; solids leave as binary
// STL.
package sceneio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/coinrelief/pkg/geom"
)

// MeshType is the Object.Type of polygon mesh objects.
const MeshType = "Mesh"

// Object is one imported scene object. Mesh is nil for anything that is
// not a polygon mesh (transforms, cameras, lights).
type Object struct {
	Name string
	Path string
	Type string
	Mesh *geom.Mesh
}

// IsMesh reports whether the object carries mesh geometry.
func (o Object) IsMesh() bool {
	return o.Type == MeshType && o.Mesh != nil
}

// MeshObjects returns the mesh-typed objects of objs in order.
func MeshObjects(objs []Object) []Object {
	var out []Object
	for _, o := range objs {
		if o.IsMesh() {
			out = append(out, o)
		}
	}
	return out
}

// crateMagic opens binary USD files.
var crateMagic = []byte("PXR-USDC")

// ImportMesh loads the objects of the scene at path. The format is chosen
// by extension; .usd files must be ASCII.
func ImportMesh(path string) ([]Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sceneio: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".usda", ".usd":
		if bytes.HasPrefix(data, crateMagic) {
			return nil, fmt.Errorf("sceneio: %s: binary USD is not supported, export as .usda", path)
		}
		objs, err := DecodeUSDA(string(data))
		if err != nil {
			return nil, fmt.Errorf("sceneio: %s: %w", path, err)
		}
		return objs, nil
	case ".stl":
		m, err := DecodeSTL(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("sceneio: %s: %w", path, err)
		}
		if m.IsEmpty() {
			return nil, nil
		}
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return []Object{{Name: m.Name, Path: "/" + m.Name, Type: MeshType, Mesh: m}}, nil
	default:
		return nil, fmt.Errorf("sceneio: %s: unsupported file type %q", path, ext)
	}
}

// ExportSolid writes m to path as binary STL, replacing any existing file.
func ExportSolid(m *geom.Mesh, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sceneio: %w", err)
	}
	if err := EncodeSTL(f, m); err != nil {
		f.Close()
		return fmt.Errorf("sceneio: %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sceneio: %w", err)
	}
	return nil
}

// Files is the filesystem-backed importer and exporter.
type Files struct{}

// Import calls ImportMesh.
func (Files) Import(path string) ([]Object, error) { return ImportMesh(path) }

// Export calls ExportSolid.
func (Files) Export(m *geom.Mesh, path string) error { return ExportSolid(m, path) }
