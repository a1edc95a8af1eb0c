package store

import (
	"os"
	"testing"
)

func TestParseCatalog(t *testing.T) {
	t.Run("trims, drops empties and sorts case-insensitively", func(t *testing.T) {
		got := ParseCatalog(" Zulu, alpha ,, beta , ,Alpha2")
		want := []string{"alpha", "Alpha2", "beta", "Zulu"}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	})

	t.Run("deduplicates", func(t *testing.T) {
		got := ParseCatalog("ping,ping,pong")
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %v", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := ParseCatalog("  ,  , "); len(got) != 0 {
			t.Fatalf("expected empty catalog, got %v", got)
		}
	})
}

func TestLoadCatalogMissingFile(t *testing.T) {
	st := newTestStore(t)
	if err := os.Remove(st.path(catalogFile)); err != nil {
		t.Fatal(err)
	}
	catalog, err := st.LoadCatalog()
	if err != nil {
		t.Fatalf("absent catalog must not fail: %v", err)
	}
	if len(catalog) != 0 {
		t.Fatalf("expected empty catalog, got %v", catalog)
	}
}

func TestLoadCatalogSorted(t *testing.T) {
	st := newTestStore(t)
	if err := os.WriteFile(st.path(catalogFile), []byte("pong,Ping,usage"), 0o644); err != nil {
		t.Fatal(err)
	}
	catalog, err := st.LoadCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if catalog[0] != "Ping" || catalog[1] != "pong" || catalog[2] != "usage" {
		t.Fatalf("unexpected order: %v", catalog)
	}
}
