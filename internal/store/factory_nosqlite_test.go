//go:build !sqlite

package store

import "testing"

func TestNewStoreSQLiteUnavailable(t *testing.T) {
	if _, err := NewStore("sqlite", t.TempDir()); err == nil {
		t.Fatal("expected sqlite backend to be unavailable without the sqlite build tag")
	}
}
