// Package relief turns an arbitrary mesh into a bas-relief: it orients the
// mesh, scales its X/Y silhouette to fit a coin face and compresses its
// depth into a thin slab using one of three strategies.
//
// Every function here mutates the mesh it is given and recomputes bounds
// after each change; callers must own the mesh exclusively.
package relief
