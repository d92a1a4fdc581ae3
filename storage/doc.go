// Package storage is the object storage layer behind the "object" kvstore
// provider. Backends register factories from their init functions:
//
//   - storage/local: files under a base directory
//   - storage/s3: Amazon S3 and S3-compatible services
//
// Configuration:
//
//	object:
//	  provider: s3
//	  bucket: statecache
//	  region: us-east-1
package storage
