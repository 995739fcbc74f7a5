package testing

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/eeKV/lib/db"
)

// RunObjectDBBenchmarks runs all benchmarks for an ObjectDB implementation
func RunObjectDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Store", func(b *testing.B) {
		benchmarkStore(b, ready(b, factory()))
	})

	b.Run("StoreResize", func(b *testing.B) {
		benchmarkStoreResize(b, ready(b, factory()))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, ready(b, factory()))
	})

	b.Run("Find(last)", func(b *testing.B) {
		benchmarkFindLast(b, ready(b, factory()))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, ready(b, factory()))
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, ready(b, factory()))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// fill stores n objects of size bytes under the keys 1..n
func fill(b *testing.B, database db.ObjectDB, n, size int) {
	b.Helper()
	for i := 1; i <= n; i++ {
		if err := database.Store(db.Key(i), pattern(size, byte(i))); err != nil {
			b.Fatalf("fill: %v", err)
		}
	}
}

// Benchmark for in place Store
func benchmarkStore(b *testing.B, database db.ObjectDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureStore)
	fill(b, database, 4, 16)

	value := pattern(16, 0x55)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		value[0] = byte(i)
		if err := database.Store(db.Key(i%4+1), value); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark for Store changing the object size (delete and append)
func benchmarkStoreResize(b *testing.B, database db.ObjectDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureStore)
	fill(b, database, 4, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Store(1, pattern(8+i%2*8, byte(i))); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark for Get operation
func benchmarkGet(b *testing.B, database db.ObjectDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureRead)
	fill(b, database, 8, 16)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := database.Get(db.Key(i%8 + 1)); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}

// Benchmark for Find of the last object in the log
func benchmarkFindLast(b *testing.B, database db.ObjectDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureFind)
	fill(b, database, 8, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := database.Find(8); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark for Delete of the first object (worst case compaction)
func benchmarkDelete(b *testing.B, database db.ObjectDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureStore|db.FeatureDelete)
	fill(b, database, 6, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := db.Key(i%6 + 1)
		if err := database.Delete(key); err != nil {
			b.Fatal(err)
		}
		b.StopTimer()
		if err := database.Store(key, pattern(16, byte(key))); err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
	}
}

// Benchmark for Save and Load
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	src := ready(b, factory())
	b.Cleanup(func() {
		src.Close()
	})

	requireFeature(b, src, db.FeatureSave|db.FeatureLoad)
	fill(b, src, 8, 16)

	var snapshot bytes.Buffer
	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			snapshot.Reset()
			if err := src.Save(&snapshot); err != nil {
				b.Fatal(err)
			}
		}
	})

	dst := ready(b, factory())
	b.Cleanup(func() {
		dst.Close()
	})
	b.Run("Load", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := dst.Load(bytes.NewReader(snapshot.Bytes())); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// Benchmark for a mix of reads, in place writes and resizes
func benchmarkMixedUsage(b *testing.B, database db.ObjectDB) {
	b.Cleanup(func() {
		database.Close()
	})

	fill(b, database, 8, 12)
	r := rand.New(rand.NewSource(42))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := db.Key(r.Intn(8) + 1)
		switch op := r.Intn(10); {
		case op < 6:
			if _, err := database.Get(key); err != nil {
				b.Fatal(err)
			}
		case op < 9:
			if err := database.Store(key, pattern(12, byte(i))); err != nil {
				b.Fatal(err)
			}
		default:
			if err := database.Store(key, pattern(12+r.Intn(2)*4, byte(i))); err != nil {
				b.Fatal(err)
			}
		}
	}
}
