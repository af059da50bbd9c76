package mnist

import (
	"math/rand"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/axon-ml/axon/internal/tensor"
)

// Dataset holds one MNIST split fully in memory: count*ImageSize
// normalized pixels and count labels.
type Dataset struct {
	Images []float32
	Labels []int32
}

// Count returns the number of examples.
func (d *Dataset) Count() int { return len(d.Labels) }

// Load reads one split from an images archive and a labels archive.
func Load(imagesPath, labelsPath string) (*Dataset, error) {
	imgFile, err := openIDX(imagesPath)
	if err != nil {
		return nil, err
	}
	defer imgFile.Close()
	images, count, err := readImages(imgFile)
	if err != nil {
		return nil, err
	}

	lblFile, err := openIDX(labelsPath)
	if err != nil {
		return nil, err
	}
	defer lblFile.Close()
	labels, err := readLabels(lblFile)
	if err != nil {
		return nil, err
	}

	if len(labels) != count {
		return nil, errors.Errorf("%d images but %d labels", count, len(labels))
	}
	return &Dataset{Images: images, Labels: labels}, nil
}

// LoadDir reads the train and test splits from a directory holding the
// four standard archives, as laid out by Download.
func LoadDir(dir string) (train, test *Dataset, err error) {
	train, err = Load(filepath.Join(dir, TrainImagesFile), filepath.Join(dir, TrainLabelsFile))
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading train split")
	}
	test, err = Load(filepath.Join(dir, TestImagesFile), filepath.Join(dir, TestLabelsFile))
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading test split")
	}
	return train, test, nil
}

// Shuffle permutes the examples in place with a Fisher-Yates shuffle
// driven by rng, keeping images and labels aligned.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	for i := d.Count() - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]

		a := d.Images[i*ImageSize : (i+1)*ImageSize]
		b := d.Images[j*ImageSize : (j+1)*ImageSize]
		for k := range a {
			a[k], b[k] = b[k], a[k]
		}
	}
}

// Batch materializes examples [start, start+size) as a (size, ImageSize)
// image tensor and a (size,) label tensor. The final batch of an epoch may
// be shorter than the requested size.
func Batch[B tensor.Backend](d *Dataset, start, size int, backend B) (*tensor.Tensor[float32, B], *tensor.Tensor[int32, B], error) {
	if start < 0 || start >= d.Count() {
		return nil, nil, errors.Errorf("batch start %d out of range [0, %d)", start, d.Count())
	}
	if start+size > d.Count() {
		size = d.Count() - start
	}

	images, err := tensor.FromSlice(
		d.Images[start*ImageSize:(start+size)*ImageSize],
		tensor.Shape{size, ImageSize}, backend)
	if err != nil {
		return nil, nil, err
	}
	labels, err := tensor.FromSlice(
		d.Labels[start:start+size], tensor.Shape{size}, backend)
	if err != nil {
		return nil, nil, err
	}
	return images, labels, nil
}
