package corpus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/kafka"
)

func newIO(t *testing.T, mutate ...func(*config.CorpusConfig)) *IO {
	t.Helper()
	cfg := config.Default().Corpus
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func compounds(items []baseline.CorpusItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Compound
	}
	return out
}

func TestNew_InvalidSeparator(t *testing.T) {
	_, err := New(config.CorpusConfig{CompoundSeparator: "("})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = New(config.CorpusConfig{AtomSeparator: "[", CompoundSeparator: " "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCompounds(t *testing.T) {
	c := newIO(t)
	assert.Equal(t, []string{"Kissa", "istui", "pöydällä", "auto_talo"}, c.Compounds("Kissa istui, pöydällä! auto_talo"))
	assert.Empty(t, c.Compounds(" ... "))

	lower := newIO(t, func(cfg *config.CorpusConfig) { cfg.Lowercase = true })
	assert.Equal(t, []string{"kissa", "istui"}, lower.Compounds("Kissa ISTUI"))
}

func TestSplitAtoms(t *testing.T) {
	chars := newIO(t)
	assert.True(t, chars.CharacterMode())
	assert.Equal(t, baseline.Construction{"ä", "b", "c"}, chars.SplitAtoms("äbc"))

	tokens := newIO(t, func(cfg *config.CorpusConfig) { cfg.AtomSeparator = " " })
	assert.False(t, tokens.CharacterMode())
	assert.Equal(t, baseline.Construction{"the", "cat"}, tokens.SplitAtoms("the  cat"))
	assert.Equal(t, "the cat", tokens.FormatConstruction(baseline.Construction{"the", "cat"}))
}

func TestReadCorpusFile(t *testing.T) {
	c := newIO(t)
	path := writeFile(t, "corpus.txt", "# a comment\nthe cat sat   \n\n  on the mat\n")

	s, err := c.ReadCorpusFile(path)
	require.NoError(t, err)
	items, err := Collect(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []string{"the", "cat", "sat", "on", "the", "mat"}, compounds(items))
	for _, it := range items {
		assert.Equal(t, 1, it.Count)
	}
	assert.Equal(t, baseline.Construction{"c", "a", "t"}, items[1].Atoms)
	assert.NoError(t, s.Close())
}

func TestReadCorpusListFile(t *testing.T) {
	c := newIO(t)
	path := writeFile(t, "list.txt", "12 kissa\n3\tkoira\nauto\n")

	s, err := c.ReadCorpusListFile(path)
	require.NoError(t, err)
	items, err := Collect(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, baseline.CorpusItem{Count: 12, Compound: "kissa", Atoms: baseline.Chars("kissa")}, items[0])
	assert.Equal(t, 3, items[1].Count)
	assert.Equal(t, "koira", items[1].Compound)
	assert.Equal(t, 1, items[2].Count)
	assert.Equal(t, "auto", items[2].Compound)
}

func TestReadCorpusListFile_NegativeCount(t *testing.T) {
	c := newIO(t)
	path := writeFile(t, "list.txt", "1 a\n-4 b\n")
	s, err := c.ReadCorpusListFile(path)
	require.NoError(t, err)
	_, err = Collect(context.Background(), s)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), ":2:")
}

func TestReadCorpusFile_InvalidUTF8(t *testing.T) {
	c := newIO(t)
	path := writeFile(t, "bad.txt", "fine\nbro\xffken\n")
	s, err := c.ReadCorpusFile(path)
	require.NoError(t, err)
	_, err = Collect(context.Background(), s)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "bad.txt:2")
}

func TestReadCorpusFile_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("5 talo\n2 auto\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	path := writeFile(t, "list.txt.gz", buf.String())

	c := newIO(t)
	s, err := c.ReadCorpusListFile(path)
	require.NoError(t, err)
	items, err := Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"talo", "auto"}, compounds(items))
	assert.Equal(t, 5, items[0].Count)
}

func TestReadCorpusFile_Stdin(t *testing.T) {
	c := newIO(t)
	c.Stdin = strings.NewReader("yksi kaksi\n")
	s, err := c.ReadCorpusFile("-")
	require.NoError(t, err)
	items, err := Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"yksi", "kaksi"}, compounds(items))
}

func TestReadCorpusFiles_Concatenates(t *testing.T) {
	c := newIO(t)
	a := writeFile(t, "a.txt", "1 x\n")
	b := writeFile(t, "b.txt", "2 y\n3 z\n")

	items, err := Collect(context.Background(), c.ReadCorpusFiles([]string{a, b}, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, compounds(items))
}

func TestReadCorpusFiles_MissingFile(t *testing.T) {
	c := newIO(t)
	a := writeFile(t, "a.txt", "1 x\n")
	s := c.ReadCorpusFiles([]string{a, filepath.Join(t.TempDir(), "missing")}, true)

	item, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", item.Compound)
	_, err = s.Next(context.Background())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileStream_Cancelled(t *testing.T) {
	c := newIO(t)
	s, err := c.ReadCorpusFile(writeFile(t, "c.txt", "a b\n"))
	require.NoError(t, err)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSegmentationFile_RoundTrip(t *testing.T) {
	c := newIO(t)
	entries := []baseline.SegmentationEntry{
		{Count: 4, Segments: []baseline.Construction{baseline.Chars("kissa"), baseline.Chars("lla")}},
		{Count: 1, Segments: []baseline.Construction{baseline.Chars("talo")}},
	}
	path := filepath.Join(t.TempDir(), "model.segm")
	require.NoError(t, c.WriteSegmentationFile(path, entries))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "# Output from "))
	assert.Equal(t, "4 kissa + lla", lines[1])
	assert.Equal(t, "1 talo", lines[2])

	got, err := c.ReadSegmentationFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestSegmentationFile_TokenMode(t *testing.T) {
	c := newIO(t, func(cfg *config.CorpusConfig) { cfg.AtomSeparator = " " })
	entries := []baseline.SegmentationEntry{
		{Count: 2, Segments: []baseline.Construction{{"new", "york"}, {"city"}}},
	}
	path := filepath.Join(t.TempDir(), "model.segm.gz")
	require.NoError(t, c.WriteSegmentationFile(path, entries))

	got, err := c.ReadSegmentationFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReadAnnotationsFile(t *testing.T) {
	c := newIO(t)
	path := writeFile(t, "annot.txt", "kissalla kissa lla, kissa l la\ntalo talo\n")

	got, err := c.ReadAnnotationsFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, baseline.Chars("kissalla"), got[0].Compound)
	assert.Equal(t, [][]baseline.Construction{
		{baseline.Chars("kissa"), baseline.Chars("lla")},
		{baseline.Chars("kissa"), baseline.Chars("l"), baseline.Chars("la")},
	}, got[0].Analyses)
	assert.Equal(t, [][]baseline.Construction{{baseline.Chars("talo")}}, got[1].Analyses)
}

func TestReadAnnotationsFile_MissingAnalyses(t *testing.T) {
	c := newIO(t)
	path := writeFile(t, "annot.txt", "kissa\n")
	_, err := c.ReadAnnotationsFile(path)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestWriteLexiconFile(t *testing.T) {
	c := newIO(t)
	var out bytes.Buffer
	c.Stdout = &out
	require.NoError(t, c.WriteLexiconFile("-", []baseline.LexiconEntry{
		{Construction: baseline.Chars("kissa"), Count: 3},
		{Construction: baseline.Chars("lla"), Count: 1},
	}))
	assert.Equal(t, "3 kissa\n1 lla\n", out.String())
}

func TestWriteSegmentedLine(t *testing.T) {
	c := newIO(t)
	var out bytes.Buffer
	require.NoError(t, c.WriteSegmentedLine(&out, []baseline.Construction{baseline.Chars("un"), baseline.Chars("happy")}))
	assert.Equal(t, "un happy\n", out.String())
}

type fakeFetcher struct {
	msgs      []kafka.Message
	committed []int64
}

func (f *fakeFetcher) Fetch(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeFetcher) Commit(_ context.Context, msg kafka.Message) error {
	f.committed = append(f.committed, msg.Offset)
	return nil
}

func TestKafkaStream(t *testing.T) {
	f := &fakeFetcher{msgs: []kafka.Message{
		{Offset: 0, Value: []byte(`{"count":3,"compound":"kissa"}`)},
		{Offset: 1, Value: []byte(`not json`)},
		{Offset: 2, Value: []byte(`{"compound":"talo"}`)},
		{Offset: 3, Value: []byte(`{"count":2,"compound":"  "}`)},
	}}
	c := newIO(t)
	s := c.KafkaStream(f, 20*time.Millisecond)

	items, err := Collect(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, baseline.CorpusItem{Count: 3, Compound: "kissa", Atoms: baseline.Chars("kissa")}, items[0])
	assert.Equal(t, 1, items[1].Count)
	assert.Equal(t, 2, s.Skipped)
	assert.Equal(t, []int64{0, 1, 2, 3}, f.committed)
}

func TestKafkaStream_CancelledIsNotEOF(t *testing.T) {
	c := newIO(t)
	s := c.KafkaStream(&fakeFetcher{}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, io.EOF)
}

type recordingPublisher struct {
	batches [][]kafka.Event
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func TestPublishCorpus(t *testing.T) {
	items := []baseline.CorpusItem{
		{Count: 1, Compound: "a"}, {Count: 2, Compound: "b"}, {Count: 3, Compound: "c"},
	}
	p := &recordingPublisher{}
	n, err := PublishCorpus(context.Background(), p, baseline.NewSliceStream(items), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, p.batches, 2)
	assert.Len(t, p.batches[0], 2)
	assert.Equal(t, kafka.Event{Key: "c", Value: Record{Count: 3, Compound: "c"}}, p.batches[1][0])
}
