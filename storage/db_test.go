package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("a"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("1")) {
		t.Fatalf("unexpected value: %q", got)
	}
	ok, err := db.Has([]byte("a"))
	if err != nil || !ok {
		t.Fatalf("expected key present, ok=%v err=%v", ok, err)
	}
	if err := db.Delete([]byte("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("a")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("mutable")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X'
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("mutable")) {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}
