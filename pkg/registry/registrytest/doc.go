// Package registrytest provides a conformance test suite for registry store
// implementations.
//
// All registry backends (gorm/sqlite, gorm/postgres, badger) should pass
// these tests. The suite verifies that every store implementation satisfies
// the Store behavioral contract, catching regressions when store code
// changes.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    registrytest.RunConformanceSuite(t, func(t *testing.T) registry.Store {
//	        store, err := gorm.New(&gorm.Config{
//	            Dialect: gorm.DialectSQLite,
//	            SQLite:  gorm.SQLiteConfig{Path: ":memory:"},
//	        })
//	        if err != nil {
//	            t.Fatalf("failed to create store: %v", err)
//	        }
//	        t.Cleanup(func() { store.Close() })
//	        return store
//	    })
//	}
//
// The factory function receives *testing.T so it can call t.TempDir() for
// stores that need filesystem paths (e.g., Badger) and t.Cleanup for
// teardown.
package registrytest
