package core

import (
	"context"

	"github.com/jmylchreest/streamfold/internal/models"
)

type memoKey struct {
	mediaID   string
	mediaType string
}

type memoEntry struct {
	meta *models.Metadata
	err  error
}

// MetadataMemo remembers lookups for the lifetime of one request so that
// every group pass sees the same answer. Failures are remembered too.
// A memo belongs to a single request and is not safe for concurrent use.
type MetadataMemo struct {
	lookup  MetadataLookup
	entries map[memoKey]memoEntry
}

// NewMetadataMemo wraps lookup with a per-request memo. A nil lookup yields
// a memo that reports ErrNoMetadataLookup.
func NewMetadataMemo(lookup MetadataLookup) *MetadataMemo {
	return &MetadataMemo{
		lookup:  lookup,
		entries: make(map[memoKey]memoEntry),
	}
}

// LookupMetadata implements MetadataLookup.
func (m *MetadataMemo) LookupMetadata(ctx context.Context, mediaID, mediaType string) (*models.Metadata, error) {
	key := memoKey{mediaID: mediaID, mediaType: mediaType}
	if e, ok := m.entries[key]; ok {
		return e.meta, e.err
	}
	if m.lookup == nil {
		return nil, ErrNoMetadataLookup
	}
	meta, err := m.lookup.LookupMetadata(ctx, mediaID, mediaType)
	m.entries[key] = memoEntry{meta: meta, err: err}
	return meta, err
}

var _ MetadataLookup = (*MetadataMemo)(nil)
