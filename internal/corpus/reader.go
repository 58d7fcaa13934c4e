package corpus

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
)

// FileStream reads compounds from a text file lazily. Each call to Next
// returns one compound; a line of running text may yield several.
type FileStream struct {
	c       *IO
	lines   *lineReader
	parse   func(line string) ([]baseline.CorpusItem, error)
	pending []baseline.CorpusItem
	done    bool
}

// ReadCorpusFile opens a running-text corpus. Every compound occurrence is
// an item with count 1.
func (c *IO) ReadCorpusFile(name string) (*FileStream, error) {
	lr, err := c.lines(name)
	if err != nil {
		return nil, err
	}
	s := &FileStream{c: c, lines: lr}
	s.parse = func(line string) ([]baseline.CorpusItem, error) {
		compounds := c.Compounds(line)
		items := make([]baseline.CorpusItem, 0, len(compounds))
		for _, w := range compounds {
			items = append(items, c.Item(1, w))
		}
		return items, nil
	}
	return s, nil
}

// ReadCorpusListFile opens a word list with one "count compound" entry per
// line. A line without a leading count is a compound with count 1.
func (c *IO) ReadCorpusListFile(name string) (*FileStream, error) {
	lr, err := c.lines(name)
	if err != nil {
		return nil, err
	}
	s := &FileStream{c: c, lines: lr}
	s.parse = func(line string) ([]baseline.CorpusItem, error) {
		count, compound, err := splitCount(line)
		if err != nil {
			return nil, lr.errorf("%v", err)
		}
		if compound == "" {
			return nil, nil
		}
		return []baseline.CorpusItem{c.Item(count, compound)}, nil
	}
	return s, nil
}

// splitCount parses "count rest". Lines whose first field is not a number
// are returned whole with count 1.
func splitCount(line string) (int, string, error) {
	line = strings.TrimLeft(line, " \t")
	head, rest, found := strings.Cut(line, " ")
	if !found {
		head, rest, found = strings.Cut(line, "\t")
	}
	n, err := strconv.Atoi(head)
	if !found || err != nil {
		return 1, line, nil
	}
	if n < 0 {
		return 0, "", errors.New("negative count")
	}
	return n, strings.TrimSpace(rest), nil
}

func (s *FileStream) Next(ctx context.Context) (baseline.CorpusItem, error) {
	for len(s.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return baseline.CorpusItem{}, err
		}
		if s.done {
			return baseline.CorpusItem{}, io.EOF
		}
		line, err := s.lines.next()
		if err == io.EOF {
			s.done = true
			continue
		}
		if err != nil {
			s.done = true
			s.lines.close()
			return baseline.CorpusItem{}, err
		}
		if s.pending, err = s.parse(line); err != nil {
			s.done = true
			s.lines.close()
			return baseline.CorpusItem{}, err
		}
	}
	item := s.pending[0]
	s.pending = s.pending[1:]
	return item, nil
}

// Close releases the underlying file. Streams read to io.EOF are already
// closed.
func (s *FileStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.lines.close()
}

// MultiStream concatenates streams, opening each lazily.
type MultiStream struct {
	open    []func() (baseline.Stream, error)
	current baseline.Stream
}

// ReadCorpusFiles opens the named files as one stream. When list is set the
// files are word lists, otherwise running text.
func (c *IO) ReadCorpusFiles(names []string, list bool) *MultiStream {
	m := &MultiStream{}
	for _, name := range names {
		name := name
		m.open = append(m.open, func() (baseline.Stream, error) {
			if list {
				return c.ReadCorpusListFile(name)
			}
			return c.ReadCorpusFile(name)
		})
	}
	return m
}

// Concat joins already opened streams.
func Concat(streams ...baseline.Stream) *MultiStream {
	m := &MultiStream{}
	for _, s := range streams {
		s := s
		m.open = append(m.open, func() (baseline.Stream, error) { return s, nil })
	}
	return m
}

func (m *MultiStream) Next(ctx context.Context) (baseline.CorpusItem, error) {
	for {
		if m.current == nil {
			if len(m.open) == 0 {
				return baseline.CorpusItem{}, io.EOF
			}
			s, err := m.open[0]()
			m.open = m.open[1:]
			if err != nil {
				return baseline.CorpusItem{}, err
			}
			m.current = s
		}
		item, err := m.current.Next(ctx)
		if err == io.EOF {
			m.current = nil
			continue
		}
		return item, err
	}
}

// Collect drains a stream into memory.
func Collect(ctx context.Context, s baseline.Stream) ([]baseline.CorpusItem, error) {
	var items []baseline.CorpusItem
	for {
		item, err := s.Next(ctx)
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

// ReadSegmentationFile reads "count c1 + c2 + ..." lines as written by
// WriteSegmentationFile.
func (c *IO) ReadSegmentationFile(name string) ([]baseline.SegmentationEntry, error) {
	lr, err := c.lines(name)
	if err != nil {
		return nil, err
	}
	var out []baseline.SegmentationEntry
	for {
		line, err := lr.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			lr.close()
			return nil, err
		}
		count, rest, err := splitCount(line)
		if err != nil {
			lr.close()
			return nil, lr.errorf("%v", err)
		}
		var segments []baseline.Construction
		for _, part := range strings.Split(rest, c.constructionSep) {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			if c.lowercase {
				part = strings.ToLower(part)
			}
			if atoms := c.SplitAtoms(part); len(atoms) > 0 {
				segments = append(segments, atoms)
			}
		}
		if len(segments) == 0 {
			continue
		}
		out = append(out, baseline.SegmentationEntry{Count: count, Segments: segments})
	}
}

// ReadAnnotationsFile reads "compound a1 a2, b1 b2" lines: alternative
// analyses are comma separated and constructions within one analysis are
// space separated.
func (c *IO) ReadAnnotationsFile(name string) ([]baseline.AnnotationEntry, error) {
	lr, err := c.lines(name)
	if err != nil {
		return nil, err
	}
	var out []baseline.AnnotationEntry
	for {
		line, err := lr.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			lr.close()
			return nil, err
		}
		if c.lowercase {
			line = strings.ToLower(line)
		}
		line = strings.TrimSpace(line)
		i := strings.IndexFunc(line, unicode.IsSpace)
		if i < 0 {
			lr.close()
			return nil, lr.errorf("annotation without analyses")
		}
		rest := line[i:]
		entry := baseline.AnnotationEntry{Compound: c.SplitAtoms(line[:i])}
		for _, alt := range strings.Split(rest, ",") {
			var analysis []baseline.Construction
			for _, con := range strings.Fields(alt) {
				analysis = append(analysis, c.SplitAtoms(con))
			}
			if len(analysis) > 0 {
				entry.Analyses = append(entry.Analyses, analysis)
			}
		}
		if len(entry.Analyses) == 0 {
			lr.close()
			return nil, lr.errorf("annotation without analyses")
		}
		out = append(out, entry)
	}
}
