// Package s3 provides an S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("allocations/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = alloc.Save(ctx, store, "study/acvmf-1000.mxcf")
//
// # Features
//
//   - Range reads for partial fetches
//   - CRC32C-checked single puts for small blobs
//   - Multipart uploads through the transfer manager for large blobs
//   - Automatic pagination for listing
package s3
