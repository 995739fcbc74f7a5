package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/eeKV/lib/db"
)

// DBFactory creates a new, uninitialized instance of an ObjectDB implementation.
// The store it creates must hold at least 256 bytes.
type DBFactory func() db.ObjectDB

// RunObjectDBTests runs a comprehensive test suite for an ObjectDB implementation.
func RunObjectDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Lifecycle", func(t *testing.T) {
			testLifecycle(t, factory())
		})

		t.Run("Store&Get", func(t *testing.T) {
			testStoreGet(t, ready(t, factory()))
		})

		t.Run("Resize", func(t *testing.T) {
			testResize(t, ready(t, factory()))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, ready(t, factory()))
		})

		t.Run("PartialRead", func(t *testing.T) {
			testPartialRead(t, ready(t, factory()))
		})

		t.Run("InvalidKey", func(t *testing.T) {
			testInvalidKey(t, ready(t, factory()))
		})

		t.Run("NoSpace", func(t *testing.T) {
			testNoSpace(t, ready(t, factory()))
		})

		t.Run("FormatErase", func(t *testing.T) {
			testFormatErase(t, ready(t, factory()))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, ready(t, factory()))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.ObjectDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// ready initializes database without redundancy or wear leveling.
func ready(t testing.TB, database db.ObjectDB) db.ObjectDB {
	t.Helper()
	if err := database.Initialize(false, 1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return database
}

func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	return buf
}

func expectValue(t *testing.T, database db.ObjectDB, key db.Key, want []byte) {
	t.Helper()
	got, err := database.Get(key)
	if err != nil {
		t.Fatalf("Get(0x%02x) failed: %v", uint8(key), err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get(0x%02x) = %x, want %x", uint8(key), got, want)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testLifecycle(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	if err := database.Store(1, []byte("x")); !errors.Is(err, db.ErrNotInitialized) {
		t.Fatalf("Store before Initialize: expected ErrNotInitialized, got %v", err)
	}
	if _, _, err := database.Find(1); !errors.Is(err, db.ErrNotInitialized) {
		t.Fatalf("Find before Initialize: expected ErrNotInitialized, got %v", err)
	}

	if err := database.Initialize(false, 1); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := database.Store(1, []byte("kept")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// a second initialize must neither recreate nor format the store
	if err := database.Initialize(false, 1); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	expectValue(t, database, 1, []byte("kept"))

	info := database.GetInfo()
	if info.Objects != 1 {
		t.Errorf("Expected 1 object in info, got %d", info.Objects)
	}
	if info.SizeBytes < 256 {
		t.Errorf("Expected a store of at least 256 bytes, got %d", info.SizeBytes)
	}
}

func testStoreGet(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureStore|db.FeatureRead|db.FeatureFind)

	if _, err := database.Get(7); !errors.Is(err, db.ErrNoSuchObject) {
		t.Fatalf("Expected ErrNoSuchObject for a missing key, got %v", err)
	}

	if err := database.Store(7, []byte("first")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	expectValue(t, database, 7, []byte("first"))

	// same size is rewritten in place
	offset, size, err := database.Find(7)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if size != 5 {
		t.Errorf("Expected size 5, got %d", size)
	}
	if err := database.Store(7, []byte("again")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	offset2, _, _ := database.Find(7)
	if offset2 != offset {
		t.Errorf("Same-size store moved the object from %d to %d", offset, offset2)
	}
	expectValue(t, database, 7, []byte("again"))

	// zero length objects are valid
	if err := database.Store(8, nil); err != nil {
		t.Fatalf("Store of empty object failed: %v", err)
	}
	expectValue(t, database, 8, []byte{})

	got, _ := database.Get(7)
	got[0] = 'X'
	expectValue(t, database, 7, []byte("again"))
}

func testResize(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureStore|db.FeatureList)

	a, b, c := pattern(10, 0x10), pattern(12, 0x40), pattern(3, 0x80)
	for _, kv := range []struct {
		key   db.Key
		value []byte
	}{{1, a}, {2, b}, {3, c}} {
		if err := database.Store(kv.key, kv.value); err != nil {
			t.Fatalf("Store(%d) failed: %v", kv.key, err)
		}
	}

	grown := pattern(30, 0xA0)
	if err := database.Store(1, grown); err != nil {
		t.Fatalf("Store with new size failed: %v", err)
	}

	objects, err := database.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var keys []db.Key
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	if fmt.Sprint(keys) != fmt.Sprint([]db.Key{2, 3, 1}) {
		t.Errorf("Expected the resized object at the end of the log, got order %v", keys)
	}
	expectValue(t, database, 1, grown)
	expectValue(t, database, 2, b)
	expectValue(t, database, 3, c)
}

func testDelete(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureStore|db.FeatureDelete|db.FeatureFind)

	if err := database.Delete(9); !errors.Is(err, db.ErrNoSuchObject) {
		t.Fatalf("Expected ErrNoSuchObject deleting a missing key, got %v", err)
	}

	first, second := pattern(20, 1), pattern(7, 2)
	if err := database.Store(1, first); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := database.Store(2, second); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	before, _, _ := database.Find(2)

	if err := database.Delete(1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := database.Find(1); !errors.Is(err, db.ErrNoSuchObject) {
		t.Errorf("Expected deleted key to be gone, got %v", err)
	}
	after, _, err := database.Find(2)
	if err != nil {
		t.Fatalf("Find after delete failed: %v", err)
	}
	if before-after != 25 {
		t.Errorf("Expected the following object to move by 25 bytes, moved by %d", before-after)
	}
	expectValue(t, database, 2, second)

	if err := database.Delete(2); err != nil {
		t.Fatalf("Delete of last object failed: %v", err)
	}
	objects, _ := database.List()
	if len(objects) != 0 {
		t.Errorf("Expected empty log, got %v", objects)
	}
}

func testPartialRead(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureStore|db.FeatureRead)

	value := pattern(16, 0x30)
	if err := database.Store(4, value); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	buf := make([]byte, 6)
	n, err := database.Read(4, buf)
	if !errors.Is(err, db.ErrPartialRead) {
		t.Fatalf("Expected ErrPartialRead, got %v", err)
	}
	if n != 6 || !bytes.Equal(buf, value[:6]) {
		t.Errorf("Expected the first 6 bytes, got n=%d %x", n, buf)
	}

	buf = make([]byte, 32)
	n, err = database.Read(4, buf)
	if err != nil || n != 16 || !bytes.Equal(buf[:n], value) {
		t.Errorf("Full read returned n=%d err=%v", n, err)
	}
}

func testInvalidKey(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	if err := database.Store(db.SentinelKey, []byte("x")); !errors.Is(err, db.ErrInvalidKey) {
		t.Errorf("Store: expected ErrInvalidKey, got %v", err)
	}
	if _, _, err := database.Find(db.SentinelKey); !errors.Is(err, db.ErrInvalidKey) {
		t.Errorf("Find: expected ErrInvalidKey, got %v", err)
	}
	if _, err := database.Read(db.SentinelKey, make([]byte, 1)); !errors.Is(err, db.ErrInvalidKey) {
		t.Errorf("Read: expected ErrInvalidKey, got %v", err)
	}
	if err := database.Delete(db.SentinelKey); !errors.Is(err, db.ErrInvalidKey) {
		t.Errorf("Delete: expected ErrInvalidKey, got %v", err)
	}
}

func testNoSpace(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	size := database.GetInfo().SizeBytes
	if err := database.Store(1, make([]byte, size)); !errors.Is(err, db.ErrNoSpace) {
		t.Fatalf("Expected ErrNoSpace for an object larger than the store, got %v", err)
	}

	small := pattern(8, 0x11)
	if err := database.Store(1, small); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	// growing the object beyond the store must leave the old value untouched
	if err := database.Store(1, make([]byte, size)); !errors.Is(err, db.ErrNoSpace) {
		t.Fatalf("Expected ErrNoSpace on resize, got %v", err)
	}
	expectValue(t, database, 1, small)

	// fill the store
	var key db.Key = 2
	for ; key < db.SentinelKey; key++ {
		err := database.Store(key, pattern(16, byte(key)))
		if errors.Is(err, db.ErrNoSpace) {
			break
		}
		if err != nil {
			t.Fatalf("Store(%d) failed: %v", key, err)
		}
	}
	if key == db.SentinelKey {
		t.Fatalf("Store never ran out of space")
	}
	for k := db.Key(2); k < key; k++ {
		expectValue(t, database, k, pattern(16, byte(k)))
	}
	expectValue(t, database, 1, small)
}

func testFormatErase(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureFormat|db.FeatureErase)

	if err := database.Store(1, []byte("gone")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := database.Format(); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if _, err := database.Get(1); !errors.Is(err, db.ErrNoSuchObject) {
		t.Fatalf("Expected empty store after Format, got %v", err)
	}

	if err := database.Store(2, []byte("erased")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := database.Erase(); err != nil {
		t.Fatalf("Erase failed: %v", err)
	}
	if err := database.Store(2, []byte("x")); !errors.Is(err, db.ErrStoreUnformatted) {
		t.Fatalf("Expected ErrStoreUnformatted after Erase, got %v", err)
	}

	// initialize formats an erased store
	if err := database.Initialize(false, 1); err != nil {
		t.Fatalf("Initialize after Erase failed: %v", err)
	}
	if _, err := database.Get(2); !errors.Is(err, db.ErrNoSuchObject) {
		t.Fatalf("Expected empty store after Initialize, got %v", err)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	src := ready(t, factory())
	defer src.Close()

	requireFeature(t, src, db.FeatureSave|db.FeatureLoad)

	values := map[db.Key][]byte{
		1:  pattern(10, 1),
		5:  nil,
		42: pattern(33, 42),
	}
	for _, k := range []db.Key{42, 1, 5} {
		if err := src.Store(k, values[k]); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := ready(t, factory())
	defer dst.Close()
	if err := dst.Store(99, []byte("replaced")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := dst.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := dst.Get(99); !errors.Is(err, db.ErrNoSuchObject) {
		t.Errorf("Expected Load to replace the contents, got %v", err)
	}
	for k, v := range values {
		if v == nil {
			v = []byte{}
		}
		expectValue(t, dst, k, v)
	}

	srcList, _ := src.List()
	dstList, _ := dst.List()
	if fmt.Sprint(srcList) != fmt.Sprint(dstList) {
		t.Errorf("Expected the same log after Load:\n%v\n%v", srcList, dstList)
	}

	if err := dst.Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected Load of garbage to fail")
	}
}

func testConcurrent(t *testing.T, database db.ObjectDB) {
	defer database.Close()

	const workers = 4
	const rounds = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(key db.Key) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				// alternate sizes to force delete and re-append
				value := pattern(4+i%3, byte(key)+byte(i))
				if err := database.Store(key, value); err != nil {
					errs <- fmt.Errorf("store %d: %w", key, err)
					return
				}
				got, err := database.Get(key)
				if err != nil {
					errs <- fmt.Errorf("get %d: %w", key, err)
					return
				}
				if !bytes.Equal(got, value) {
					errs <- fmt.Errorf("key %d: got %x, want %x", key, got, value)
					return
				}
			}
		}(db.Key(w + 1))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	objects, err := database.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objects) != workers {
		t.Errorf("Expected %d objects, got %d", workers, len(objects))
	}
}
