// Package corpus reads training corpora, segmentations and annotations from
// text files (optionally gzipped, "-" for stdio) and Kafka, and writes
// segmentations and lexicons back out.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

const maxLineBytes = 1 << 20

// IO holds the text-format settings shared by every reader and writer.
type IO struct {
	atomSep         *regexp.Regexp
	compoundSep     *regexp.Regexp
	constructionSep string
	commentStart    string
	lowercase       bool

	Stdin  io.Reader
	Stdout io.Writer
	logger *slog.Logger
}

// New compiles the separators in cfg. An empty atom separator selects
// character mode.
func New(cfg config.CorpusConfig) (*IO, error) {
	c := &IO{
		constructionSep: cfg.ConstructionSeparator,
		commentStart:    cfg.CommentStart,
		lowercase:       cfg.Lowercase,
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		logger:          slog.Default().With("component", "corpus"),
	}
	if c.constructionSep == "" {
		c.constructionSep = " + "
	}
	sep := cfg.CompoundSeparator
	if sep == "" {
		sep = config.DefaultCompoundSeparator
	}
	var err error
	if c.compoundSep, err = regexp.Compile(sep); err != nil {
		return nil, fmt.Errorf("%w: compound separator %q: %v", apperrors.ErrInvalidInput, sep, err)
	}
	if cfg.AtomSeparator != "" {
		if c.atomSep, err = regexp.Compile(cfg.AtomSeparator); err != nil {
			return nil, fmt.Errorf("%w: atom separator %q: %v", apperrors.ErrInvalidInput, cfg.AtomSeparator, err)
		}
	}
	return c, nil
}

// CharacterMode reports whether atoms are single characters.
func (c *IO) CharacterMode() bool {
	return c.atomSep == nil
}

// SplitAtoms splits a construction into atoms. Empty atoms are dropped.
func (c *IO) SplitAtoms(s string) baseline.Construction {
	if c.atomSep == nil {
		return baseline.Chars(s)
	}
	parts := c.atomSep.Split(s, -1)
	atoms := make(baseline.Construction, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			atoms = append(atoms, p)
		}
	}
	return atoms
}

// Compounds splits a line of running text into compounds.
func (c *IO) Compounds(line string) []string {
	if c.lowercase {
		line = strings.ToLower(line)
	}
	parts := c.compoundSep.Split(line, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Item builds a corpus item for compound.
func (c *IO) Item(count int, compound string) baseline.CorpusItem {
	if c.lowercase {
		compound = strings.ToLower(compound)
	}
	return baseline.CorpusItem{Count: count, Compound: compound, Atoms: c.SplitAtoms(compound)}
}

// FormatConstruction renders a construction: atoms are concatenated in
// character mode and space separated otherwise.
func (c *IO) FormatConstruction(con baseline.Construction) string {
	if c.atomSep == nil {
		return con.String()
	}
	return con.Join(" ")
}

// FormatSegments renders a segmentation with the construction separator.
func (c *IO) FormatSegments(segments []baseline.Construction) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = c.FormatConstruction(s)
	}
	return strings.Join(parts, c.constructionSep)
}

func (c *IO) open(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(c.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	if !strings.HasSuffix(name, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidInput, name, err)
	}
	return &gzipReadCloser{Reader: zr, file: f}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return zerr
}

// lineReader yields the non-empty, non-comment lines of a text file with
// trailing whitespace removed.
type lineReader struct {
	name    string
	rc      io.ReadCloser
	scanner *bufio.Scanner
	comment string
	lineNo  int
	closed  bool
}

func (c *IO) lines(name string) (*lineReader, error) {
	rc, err := c.open(name)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &lineReader{name: name, rc: rc, scanner: sc, comment: c.commentStart}, nil
}

// next returns the next content line, or io.EOF once the file is exhausted
// and closed.
func (r *lineReader) next() (string, error) {
	for r.scanner.Scan() {
		r.lineNo++
		raw := r.scanner.Bytes()
		if !utf8.Valid(raw) {
			return "", r.errorf("invalid UTF-8")
		}
		line := strings.TrimRightFunc(string(raw), unicode.IsSpace)
		if line == "" || (r.comment != "" && strings.HasPrefix(line, r.comment)) {
			continue
		}
		return line, nil
	}
	err := r.scanner.Err()
	r.close()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", r.name, err)
	}
	return "", io.EOF
}

func (r *lineReader) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s:%d: %s", apperrors.ErrInvalidInput, r.name, r.lineNo, fmt.Sprintf(format, args...))
}

func (r *lineReader) close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rc.Close()
}
