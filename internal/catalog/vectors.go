package catalog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Vectors file layout: 4-byte magic, uint32 count, uint32 dim, then
// count*dim little-endian float32 values in catalog row order.
var vectorsMagic = [4]byte{'c', 's', 'v', '1'}

// SaveVectors writes precomputed embeddings to path. All vectors must
// share the same dimension.
func SaveVectors(path string, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("no vectors to save")
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create vectors file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	if _, err := w.Write(vectorsMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}

	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(header[4:], uint32(dim))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, dim*4)
	for _, v := range vectors {
		for i, x := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vector data: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush vectors file: %w", err)
	}
	return nil
}

// LoadVectors reads a vectors file written by SaveVectors.
func LoadVectors(path string) ([][]float32, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read vectors file: %w", err)
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("vectors file too short: %d bytes", len(data))
	}
	if [4]byte(data[:4]) != vectorsMagic {
		return nil, fmt.Errorf("vectors file has unknown magic %q", data[:4])
	}

	count := int(binary.LittleEndian.Uint32(data[4:]))
	dim := int(binary.LittleEndian.Uint32(data[8:]))
	body := data[12:]
	if len(body) != count*dim*4 {
		return nil, fmt.Errorf("vectors file truncated: want %d bytes of data, have %d",
			count*dim*4, len(body))
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		row := make([]float32, dim)
		off := i * dim * 4
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off+j*4:]))
		}
		vectors[i] = row
	}
	return vectors, nil
}
