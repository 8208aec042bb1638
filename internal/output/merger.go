package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// MergeProgressCallback is called periodically during merge with bytes
// copied and total bytes.
type MergeProgressCallback func(bytesCopied, totalBytes int64)

// countingWriter wraps a writer and tracks bytes written
type countingWriter struct {
	writer      io.Writer
	bytesCopied int64
	totalBytes  int64
	callback    MergeProgressCallback
	callbackAt  int64 // Call callback every N bytes
	lastCall    int64 // Bytes at last callback
}

func newCountingWriter(w io.Writer, totalBytes int64, callback MergeProgressCallback) *countingWriter {
	return &countingWriter{
		writer:     w,
		totalBytes: totalBytes,
		callback:   callback,
		callbackAt: 1024 * 1024, // Call every 1MB
	}
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.bytesCopied += int64(n)

	if c.callback != nil && c.bytesCopied-c.lastCall >= c.callbackAt {
		c.callback(c.bytesCopied, c.totalBytes)
		c.lastCall = c.bytesCopied
	}

	return n, err
}

// MergeChunkFiles concatenates uncompressed chunk JSONL files into a
// single output file by streaming byte copy; when useGzip is set the
// merged stream is compressed on the way out. The callback, if any, is
// called periodically with progress. Returns the total bytes read from
// the chunks.
func MergeChunkFiles(chunkFiles []string, outputPath string, useGzip, deleteChunks bool, callback MergeProgressCallback) (int64, error) {
	if len(chunkFiles) == 0 {
		return 0, nil
	}

	totalBytes, err := CalculateTotalBytes(chunkFiles)
	if err != nil {
		return 0, err
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	defer outFile.Close()

	var writer io.Writer = outFile
	var gzWriter *gzip.Writer
	if useGzip {
		gzWriter = gzip.NewWriter(outFile)
		writer = gzWriter
	}
	if callback != nil {
		writer = newCountingWriter(writer, totalBytes, callback)
		callback(0, totalBytes)
	}

	var bytesCopied int64
	for _, chunkFile := range chunkFiles {
		n, err := appendFileToWriter(writer, chunkFile)
		if err != nil {
			return bytesCopied, err
		}
		bytesCopied += n
	}

	if gzWriter != nil {
		if err := gzWriter.Close(); err != nil {
			return bytesCopied, fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}

	if callback != nil {
		callback(bytesCopied, totalBytes)
	}

	if deleteChunks {
		for _, chunkFile := range chunkFiles {
			os.Remove(chunkFile)
		}
	}

	return bytesCopied, nil
}

// CalculateTotalBytes returns the total size of all chunk files
func CalculateTotalBytes(chunkFiles []string) (int64, error) {
	var total int64
	for _, f := range chunkFiles {
		info, err := os.Stat(f)
		if err != nil {
			return 0, fmt.Errorf("failed to stat chunk file %s: %w", f, err)
		}
		total += info.Size()
	}
	return total, nil
}

// appendFileToWriter streams bytes from src file to dst writer
func appendFileToWriter(dst io.Writer, srcPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open chunk file %s: %w", srcPath, err)
	}
	defer src.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("failed to copy chunk file %s: %w", srcPath, err)
	}
	return n, nil
}
