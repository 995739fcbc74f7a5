// Package util provides helpers shared by the object database implementations
// and the command line tools.
//
// The package contains:
//   - statistics: summary statistics and a SizeHistogram for the payload sizes of a store
//   - functions: hash functions used to derive stable numeric ids from names
package util
