// Copyright © 2019 One Concern

// Package storage declares the byte-level store interface backing the
// record store.
//
// Typically this is something file system-like. The only implementation
// shipped here is a local file system, but the interface keeps the record
// layer independent from where bytes actually live.
package storage

import (
	"context"
	"io"
)

// WriteMode controls the behavior of Put on an existing key
type WriteMode bool

const (
	// OverWrite replaces any previous content at the key
	OverWrite WriteMode = false

	// NoOverWrite makes Put fail when the key already exists
	NoOverWrite WriteMode = true
)

// Store implementations know how to persist entries in a K/V fashion,
// with write atomicity: a reader never observes a partially written entry.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, WriteMode) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	KeysPrefix(ctx context.Context, prefix string) ([]string, error)
}

// PipeIO copies the reader to the writer until exhaustion
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	return io.Copy(writer, reader)
}
