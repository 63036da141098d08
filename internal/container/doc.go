// Package container implements the hierarchical binary file used to persist
// sample allocations.
//
// A container holds string attributes and an ordered list of named groups.
// Each group holds named two-dimensional datasets of int64 or float64 values,
// stored row-major. Paths use the familiar "Group/dataset" form.
//
// # Format
//
//	Header (32 bytes):
//	  Magic       uint32  "MXCF"
//	  Version     uint32
//	  Compression uint32  none, lz4 or zstd
//	  Checksum    uint32  CRC32C of the stored payload
//	  RawLen      uint64  payload length before compression
//	  StoredLen   uint64  payload length on disk
//	Payload:
//	  NumAttrs uint32, then key/value strings
//	  NumGroups uint32, then per group:
//	    Name string, NumDatasets uint32, then per dataset:
//	      Name string, DType uint8, Rows uint64, Cols uint64, Rows*Cols values
//
// All integers are little endian. Strings are prefixed with a uint32 length.
package container
