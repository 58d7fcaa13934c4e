package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
)

// Generator names the producing program in output file headers.
const Generator = "morfseg Baseline"

type fileWriter struct {
	*bufio.Writer
	zw   *gzip.Writer
	file *os.File
}

func (w *fileWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return err
		}
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// Create opens name for writing. "-" writes to Stdout and a ".gz" suffix
// selects gzip compression.
func (c *IO) Create(name string) (io.WriteCloser, error) {
	if name == "-" {
		return &fileWriter{Writer: bufio.NewWriter(c.Stdout)}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	if strings.HasSuffix(name, ".gz") {
		zw := gzip.NewWriter(f)
		return &fileWriter{Writer: bufio.NewWriter(zw), zw: zw, file: f}, nil
	}
	return &fileWriter{Writer: bufio.NewWriter(f), file: f}, nil
}

func (c *IO) header(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s Output from %s, %s\n", c.commentStart, Generator, time.Now().Format("2006-01-02 15:04:05"))
	return err
}

// WriteSegmentationFile writes one "count c1 + c2" line per compound.
func (c *IO) WriteSegmentationFile(name string, entries []baseline.SegmentationEntry) error {
	w, err := c.Create(name)
	if err != nil {
		return err
	}
	if err := c.writeSegmentations(w, entries); err != nil {
		w.Close()
		return err
	}
	c.logger.Info("wrote segmentations", "file", name, "compounds", len(entries))
	return w.Close()
}

func (c *IO) writeSegmentations(w io.Writer, entries []baseline.SegmentationEntry) error {
	if c.commentStart != "" {
		if err := c.header(w); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%d %s\n", e.Count, c.FormatSegments(e.Segments)); err != nil {
			return err
		}
	}
	return nil
}

// WriteLexiconFile writes one "count construction" line per entry.
func (c *IO) WriteLexiconFile(name string, entries []baseline.LexiconEntry) error {
	w, err := c.Create(name)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%d %s\n", e.Count, c.FormatConstruction(e.Construction)); err != nil {
			w.Close()
			return err
		}
	}
	c.logger.Info("wrote lexicon", "file", name, "constructions", len(entries))
	return w.Close()
}

// WriteSegmentedLine writes the constructions of one segmented compound
// separated by single spaces.
func (c *IO) WriteSegmentedLine(w io.Writer, segments []baseline.Construction) error {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = c.FormatConstruction(s)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}
