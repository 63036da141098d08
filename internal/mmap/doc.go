// Package mmap provides read-only memory-mapped file access.
//
// Persisted allocation containers are decoded straight from the mapping:
//
//	m, err := mmap.Open("allocation.mxc")
//	if err != nil { ... }
//	defer m.Close()
//
//	m.Sequential()
//	f, err := container.Decode(m.Bytes())
//
// Unix platforms use mmap(2) and madvise(2). Other platforms read the file
// into memory and treat Sequential as a no-op.
package mmap
