// Package mnist loads the MNIST handwritten-digit dataset from its
// original IDX archives, with optional download of the four files.
package mnist

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// IDX magic numbers: 0x08 dtype (unsigned byte) followed by the number of
// dimensions.
const (
	magicImages uint32 = 0x00000803
	magicLabels uint32 = 0x00000801
)

// Image geometry of the MNIST archives.
const (
	ImageRows = 28
	ImageCols = 28
	ImageSize = ImageRows * ImageCols
	// NumClasses is the number of digit classes.
	NumClasses = 10
)

// readImages parses an idx3-ubyte stream into normalized pixels in [0, 1],
// flattened row-major to count*ImageSize floats.
func readImages(r io.Reader) ([]float32, int, error) {
	var header [4]uint32
	for i := range header {
		if err := binary.Read(r, binary.BigEndian, &header[i]); err != nil {
			return nil, 0, errors.Wrap(err, "reading image header")
		}
	}
	if header[0] != magicImages {
		return nil, 0, errors.Errorf("bad image magic 0x%08x", header[0])
	}
	count, rows, cols := int(header[1]), int(header[2]), int(header[3])
	if rows != ImageRows || cols != ImageCols {
		return nil, 0, errors.Errorf("unexpected image size %dx%d", rows, cols)
	}

	raw := make([]byte, count*ImageSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, 0, errors.Wrap(err, "reading image data")
	}

	pixels := make([]float32, len(raw))
	for i, b := range raw {
		pixels[i] = float32(b) / 255.0
	}
	return pixels, count, nil
}

// readLabels parses an idx1-ubyte stream into int32 class labels.
func readLabels(r io.Reader) ([]int32, error) {
	var header [2]uint32
	for i := range header {
		if err := binary.Read(r, binary.BigEndian, &header[i]); err != nil {
			return nil, errors.Wrap(err, "reading label header")
		}
	}
	if header[0] != magicLabels {
		return nil, errors.Errorf("bad label magic 0x%08x", header[0])
	}

	raw := make([]byte, int(header[1]))
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "reading label data")
	}

	labels := make([]int32, len(raw))
	for i, b := range raw {
		if b >= NumClasses {
			return nil, errors.Errorf("label %d out of range at index %d", b, i)
		}
		labels[i] = int32(b)
	}
	return labels, nil
}

// openIDX opens an IDX file, transparently decompressing .gz archives.
func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "decompressing %s", path)
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

// gzipFile closes both the gzip stream and the underlying file.
type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}
