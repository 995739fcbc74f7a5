// Package testing provides standardised tests and benchmarks for
// implementations of the db.ObjectDB interface.
//
// The package contains:
//   - testing: a test suite validating the ObjectDB contract (lifecycle, log
//     ordering, compaction, error taxonomy, persistence and concurrent use)
//   - benchmark: throughput of the common object operations
//
// Factories must return an uninitialized database whose store holds at least
// 256 bytes. The suites call Initialize themselves.
//
// Example usage:
//
//	factory := func() db.ObjectDB {
//		return eekv.NewEEKVDB(eekv.MemoryFactory(512, 128), nil)
//	}
//
//	dbtesting.RunObjectDBTests(t, "EEKV", factory)
//	dbtesting.RunObjectDBBenchmarks(b, "EEKV", factory)
package testing
