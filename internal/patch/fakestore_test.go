package patch

import (
	"context"
	"fmt"
)

// fakeStore is an in-memory Store with call counters and injectable failures
type fakeStore struct {
	docs     map[string][]byte
	versions map[string]int

	getErr map[string]error
	putErr map[string]error

	gets, puts, deletes int
}

func newFakeStore(docs map[string]string) *fakeStore {
	s := &fakeStore{
		docs:     make(map[string][]byte),
		versions: make(map[string]int),
		getErr:   make(map[string]error),
		putErr:   make(map[string]error),
	}
	for p, c := range docs {
		s.docs[p] = []byte(c)
		s.versions[p] = 1
	}
	return s
}

func (s *fakeStore) version(path string) string {
	return fmt.Sprintf("v%d", s.versions[path])
}

func (s *fakeStore) Get(_ context.Context, path string) (*Document, error) {
	s.gets++
	if err := s.getErr[path]; err != nil {
		return nil, NewStoreError(OpGet, path, err)
	}
	content, ok := s.docs[path]
	if !ok {
		return nil, NewStoreError(OpGet, path, ErrNotFound)
	}
	return &Document{Path: path, Content: append([]byte(nil), content...), Version: s.version(path)}, nil
}

func (s *fakeStore) Put(_ context.Context, path string, content []byte, version, _ string) (string, error) {
	s.puts++
	if err := s.putErr[path]; err != nil {
		return "", NewStoreError(OpPut, path, err)
	}
	if _, ok := s.docs[path]; ok && version != s.version(path) {
		return "", NewStoreError(OpPut, path, ErrConflict)
	}
	s.docs[path] = append([]byte(nil), content...)
	s.versions[path]++
	return s.version(path), nil
}

func (s *fakeStore) Delete(_ context.Context, path, version, _ string) error {
	s.deletes++
	if _, ok := s.docs[path]; !ok {
		return NewStoreError(OpDelete, path, ErrNotFound)
	}
	if version != s.version(path) {
		return NewStoreError(OpDelete, path, ErrConflict)
	}
	delete(s.docs, path)
	delete(s.versions, path)
	return nil
}

func (s *fakeStore) writes() int {
	return s.puts + s.deletes
}
