// Copyright © 2018 One Concern

// Package storage provides the interface to access objects on backend storage.
//
// This package supports the following backends:
//   - HTTP(S) servers, read-only
//   - GCS (Google), read-only
//   - S3 (AWS), read-only
//   - local file system, used as a staging area
package storage
