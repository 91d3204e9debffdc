// Package interfaces defines the contract between the request layer and the
// storage providers: the StorageProvider capability set, the FileEntry and
// ListPage result types, and the shared error taxonomy.
//
// The package contains no implementation so that provider variants and the
// HTTP layer depend only on each other's contracts.
package interfaces
