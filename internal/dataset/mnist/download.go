package mnist

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// baseURL hosts a stable mirror of the original MNIST archives.
const baseURL = "https://storage.googleapis.com/cvdf-datasets/mnist/"

// Archive filenames as published by the dataset.
const (
	TrainImagesFile = "train-images-idx3-ubyte.gz"
	TrainLabelsFile = "train-labels-idx1-ubyte.gz"
	TestImagesFile  = "t10k-images-idx3-ubyte.gz"
	TestLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

var allFiles = []string{TrainImagesFile, TrainLabelsFile, TestImagesFile, TestLabelsFile}

// Download fetches the four MNIST archives into dir, skipping files that
// already exist. A progress bar is shown per file.
func Download(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating dataset directory")
	}
	for _, name := range allFiles {
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := downloadFile(ctx, baseURL+name, dest); err != nil {
			return errors.Wrapf(err, "downloading %s", name)
		}
	}
	return nil
}

func downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest + ".partial")
	if err != nil {
		return err
	}

	bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(dest))
	if _, err := io.Copy(io.MultiWriter(out, bar), resp.Body); err != nil {
		out.Close()
		os.Remove(dest + ".partial")
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dest + ".partial")
		return err
	}
	return os.Rename(dest+".partial", dest)
}
