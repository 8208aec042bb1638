package output

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RecordWriter is the interface for writing export records.
type RecordWriter interface {
	Write(data json.RawMessage) error
	Close() error
}

// JSONLWriter writes JSON objects as newline-delimited JSON (JSONL),
// optionally gzip-compressed.
type JSONLWriter struct {
	file       *os.File
	gzipWriter *gzip.Writer  // nil if not compressing
	writer     *bufio.Writer // Buffered writer for better I/O performance
	mu         sync.Mutex

	writtenCount int
	closed       bool
}

// NewJSONLWriter creates a new JSONL writer at the specified path,
// creating parent directories as needed.
func NewJSONLWriter(path string, useGzip bool) (*JSONLWriter, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	var gzipWriter *gzip.Writer
	var baseWriter io.Writer = file
	if useGzip {
		gzipWriter = gzip.NewWriter(file)
		baseWriter = gzipWriter
	}

	return &JSONLWriter{
		file:       file,
		gzipWriter: gzipWriter,
		writer:     bufio.NewWriterSize(baseWriter, 64*1024), // 64KB buffer
	}, nil
}

// Write writes one JSON record followed by a newline.
func (w *JSONLWriter) Write(data json.RawMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return err
	}
	w.writtenCount++
	return nil
}

// WriteAny marshals v and writes it as one record.
func (w *JSONLWriter) WriteAny(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return w.Write(data)
}

// Count returns the number of records written
func (w *JSONLWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writtenCount
}

// Close flushes the buffer and closes the writer
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	// Flush buffered data before closing
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush buffer: %w", err)
	}

	// Close gzip writer if used (flushes compression buffer)
	if w.gzipWriter != nil {
		if err := w.gzipWriter.Close(); err != nil {
			w.file.Close()
			return fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}

	return w.file.Close()
}

// FileManager manages export files for multiple targets.
type FileManager struct {
	outputDir string
	gzip      bool
}

// NewFileManager creates a new file manager rooted at outputDir.
func NewFileManager(outputDir string, gzip bool) (*FileManager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileManager{
		outputDir: outputDir,
		gzip:      gzip,
	}, nil
}

// Gzip returns whether gzip compression is enabled
func (fm *FileManager) Gzip() bool {
	return fm.gzip
}

// OutputDir returns the output directory
func (fm *FileManager) OutputDir() string {
	return fm.outputDir
}

// exportFilename generates a filename for an export target, e.g.
// "products_electronics.jsonl" or "products_electronics_chunk_2.jsonl".
// Chunk files are never gzipped so they can be merged by byte copy.
func exportFilename(kind, label string, chunkIndex int, useGzip bool) string {
	name := sanitizeFilename(kind)
	if label != "" {
		name += "_" + sanitizeFilename(strings.ToLower(label))
	}
	if chunkIndex >= 0 {
		return fmt.Sprintf("%s_chunk_%d.jsonl", name, chunkIndex)
	}
	ext := ".jsonl"
	if useGzip {
		ext = ".jsonl.gz"
	}
	return name + ext
}

// GetWriter returns a writer for an unchunked export target.
// The caller is responsible for closing the writer when done.
func (fm *FileManager) GetWriter(kind, label string) (*JSONLWriter, string, error) {
	path := filepath.Join(fm.outputDir, exportFilename(kind, label, -1, fm.gzip))
	writer, err := NewJSONLWriter(path, fm.gzip)
	if err != nil {
		return nil, "", err
	}
	return writer, path, nil
}

// GetChunkWriter returns a writer for one chunk of a chunked export.
// The caller is responsible for closing the writer when done.
func (fm *FileManager) GetChunkWriter(kind, label string, chunkIndex int) (*JSONLWriter, string, error) {
	path := filepath.Join(fm.outputDir, exportFilename(kind, label, chunkIndex, false))
	writer, err := NewJSONLWriter(path, false)
	if err != nil {
		return nil, "", err
	}
	return writer, path, nil
}

// GetFinalPath returns the final output path for a chunked export
// (used after merging chunks).
func (fm *FileManager) GetFinalPath(kind, label string) string {
	return filepath.Join(fm.outputDir, exportFilename(kind, label, -1, fm.gzip))
}

// sanitizeFilename replaces invalid filename characters with underscores
func sanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	return result
}
