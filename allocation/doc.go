// Package allocation implements SampleAllocation, the record of how many
// samples each model receives and which samples models share.
//
// # Compact form
//
// A compact allocation is a list of sample groups. Each row is
//
//	[group_size, bit "0", bit "1_1", bit "1_2", ..., bit "(M-1)_1", bit "(M-1)_2"]
//
// so a row has 2M entries for M models. Model 0 uses one indicator column;
// every other model i uses two, "i_1" and "i_2", which select the sample
// sets of the two terms of its control-variate difference.
//
// # Expanded form
//
// Expansion repeats each group's indicator bits group_size times, in group
// order. Row r of the expansion is sample r. Indicator columns are stored as
// roaring bitmaps over sample indices, so expansion of large groups costs a
// single range insert and pairwise shared-sample counts are bitmap
// intersections.
//
// # Persistence
//
// Allocations round-trip through a checksummed container file holding the
// method tag, the allocation kind, the compact and expanded matrices and any
// attached samples. Files can live on local disk (read through mmap) or in
// any blobstore.BlobStore.
package allocation
