package fetch

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/trader-leaderboard/data"
	"github.com/yourorg/trader-leaderboard/internal/model"
)

// EmbeddedSource serves the fixture compiled into the binary.
type EmbeddedSource struct {
	doc []byte
}

// NewEmbeddedSource returns a source over the bundled traders.json.
func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{doc: data.Traders}
}

// NewBytesSource returns a source over an in-memory document.
func NewBytesSource(doc []byte) *EmbeddedSource {
	return &EmbeddedSource{doc: doc}
}

// Fetch decodes the embedded document.
func (s *EmbeddedSource) Fetch(ctx context.Context) ([]model.Trader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeBytes(s.doc)
}

func (s *EmbeddedSource) Name() string { return "embedded" }

// FileSource reads traders from a JSON file on every fetch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the file.
func (s *FileSource) Fetch(ctx context.Context) ([]model.Trader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logrus.Debugf("Reading traders from %s", s.path)
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", s.path, err)
	}
	defer f.Close()

	traders, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return traders, nil
}

func (s *FileSource) Name() string { return "file" }
