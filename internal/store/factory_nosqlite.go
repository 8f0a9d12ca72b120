//go:build !sqlite

package store

import "fmt"

func newSQLiteStore(_, _ string) (Store, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}
