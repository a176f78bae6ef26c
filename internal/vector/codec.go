package vector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// Array artifact layout (little endian):
//
//	magic "RJV1" | dim uint32 | rows uint32 | rows*dim float32, row-major
var arrayMagic = [4]byte{'R', 'J', 'V', '1'}

const arrayHeaderSize = 12

func writeArray(w io.Writer, dim int, rows [][]float32) error {
	bw := bufio.NewWriter(w)
	header := make([]byte, arrayHeaderSize)
	copy(header, arrayMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], uint32(dim))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(rows)))
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	buf := make([]byte, dim*4)
	for i, row := range rows {
		if len(row) != dim {
			return fmt.Errorf("row %d: %w: got %d, expected %d", i, ErrDimensionMismatch, len(row), dim)
		}
		for j, v := range row {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// readArray decodes an array artifact of the given total size. The size is
// used to reject headers whose row count does not match the payload before
// anything is allocated.
func readArray(r io.Reader, size int64, wantDim int) ([][]float32, error) {
	if size < arrayHeaderSize {
		return nil, fmt.Errorf("array too short: %d bytes", size)
	}
	br := bufio.NewReader(r)
	header := make([]byte, arrayHeaderSize)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(header[:4]) != arrayMagic {
		return nil, fmt.Errorf("bad magic %q", header[:4])
	}
	dim := int(binary.LittleEndian.Uint32(header[4:8]))
	n := int64(binary.LittleEndian.Uint32(header[8:12]))
	if dim != wantDim {
		return nil, fmt.Errorf("%w: file has %d, store expects %d", ErrDimensionMismatch, dim, wantDim)
	}
	if want := arrayHeaderSize + n*int64(dim)*4; want != size {
		return nil, fmt.Errorf("array size %d does not match %d rows of dimension %d", size, n, dim)
	}
	rows := make([][]float32, n)
	buf := make([]byte, dim*4)
	for i := range rows {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, err)
		}
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		rows[i] = row
	}
	return rows, nil
}

func writeKeys(w io.Writer, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	return json.NewEncoder(w).Encode(keys)
}

func readKeys(r io.Reader) ([]string, error) {
	var keys []string
	if err := json.NewDecoder(r).Decode(&keys); err != nil {
		return nil, fmt.Errorf("decode keys: %w", err)
	}
	return keys, nil
}
