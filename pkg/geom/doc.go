// Package geom defines the mesh, bounding box and transform types shared by
// every stage of the coin pipeline. Transforms are baked into vertex
// coordinates when applied; no stage keeps a matrix around.
package geom
