package ml

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"question-difficulty/internal/features"

	"github.com/klauspost/compress/zstd"
)

const (
	artifactMagic   = "QDPA"
	artifactVersion = uint16(1)
)

var errBadMagic = errors.New("not a difficulty pipeline artifact")

// ArtifactMetadata describes the training run that produced an artifact.
type ArtifactMetadata struct {
	Version      string    `json:"version"`
	TrainedAt    time.Time `json:"trained_at"`
	DatasetPath  string    `json:"dataset_path"`
	TrainingRows int       `json:"training_rows"`
	TestRows     int       `json:"test_rows"`
	Accuracy     float64   `json:"accuracy"`
	Labels       []int     `json:"labels"`
	Vocabulary   int       `json:"vocabulary_size"`
}

// Artifact is the deserialized form of a pipeline file.
type Artifact struct {
	Metadata ArtifactMetadata
	Pipeline *Pipeline
}

type artifactPayload struct {
	Metadata   ArtifactMetadata
	Vectorizer features.CountVectorizer
	Model      MultinomialNB
}

// WriteArtifact encodes the pipeline and metadata: a 4-byte magic, a big-endian
// format version, then a zstd-compressed gob payload.
func WriteArtifact(w io.Writer, p *Pipeline, meta ArtifactMetadata) error {
	if p == nil {
		return ErrNotFitted
	}
	if err := p.validate(); err != nil {
		return fmt.Errorf("refusing to write invalid pipeline: %w", err)
	}

	if _, err := io.WriteString(w, artifactMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, artifactVersion); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}

	payload := artifactPayload{
		Metadata:   meta,
		Vectorizer: *p.Vectorizer,
		Model:      *p.Model,
	}
	if err := gob.NewEncoder(enc).Encode(&payload); err != nil {
		enc.Close()
		return fmt.Errorf("encode pipeline: %w", err)
	}
	return enc.Close()
}

// ReadArtifact decodes an artifact written by WriteArtifact.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	header := make([]byte, len(artifactMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(header, []byte(artifactMagic)) {
		return nil, errBadMagic
	}

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("read format version: %w", err)
	}
	if version != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact format version %d", version)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create decompressor: %w", err)
	}
	defer dec.Close()

	var payload artifactPayload
	if err := gob.NewDecoder(dec).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}

	p := &Pipeline{Vectorizer: &payload.Vectorizer, Model: &payload.Model}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("corrupt pipeline: %w", err)
	}

	return &Artifact{Metadata: payload.Metadata, Pipeline: p}, nil
}

// SaveArtifact writes the artifact to path, replacing any existing file.
// The file is written next to the target and renamed into place.
func SaveArtifact(path string, p *Pipeline, meta ArtifactMetadata) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := WriteArtifact(tmp, p, meta); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace artifact %s: %w", path, err)
	}
	return nil
}

// LoadArtifact reads the artifact at path. Every failure is an *ArtifactLoadError.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	defer f.Close()

	a, err := ReadArtifact(f)
	if err != nil {
		return nil, &ArtifactLoadError{Path: path, Err: err}
	}
	return a, nil
}
