package baseline

import (
	"context"
	"io"
)

// CorpusItem is one compound read from a corpus source.
type CorpusItem struct {
	Count    int
	Compound string
	Atoms    Construction
}

// Stream yields corpus items one at a time and returns io.EOF once it is
// exhausted.
type Stream interface {
	Next(ctx context.Context) (CorpusItem, error)
}

// SliceStream serves a materialised corpus.
type SliceStream struct {
	items []CorpusItem
	pos   int
}

func NewSliceStream(items []CorpusItem) *SliceStream {
	return &SliceStream{items: items}
}

func (s *SliceStream) Next(ctx context.Context) (CorpusItem, error) {
	if err := ctx.Err(); err != nil {
		return CorpusItem{}, err
	}
	if s.pos >= len(s.items) {
		return CorpusItem{}, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

// Reset rewinds the stream to its first item.
func (s *SliceStream) Reset() {
	s.pos = 0
}
