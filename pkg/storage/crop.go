package storage

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// cropWatermark trims the source watermark off an image. The watermark sits
// in the top-left corner; whichever strip (left column or top row) covers
// the smaller area is removed.
func cropWatermark(data []byte, cropTop, cropLeft int) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("can't decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	leftArea := cropLeft * height
	topArea := cropTop * width
	if leftArea < topArea {
		return imaging.Crop(img, image.Rect(cropLeft, 0, width, height)), nil
	}
	return imaging.Crop(img, image.Rect(0, cropTop, width, height)), nil
}

// saveJPEG writes an image as JPEG via a temp file and atomic rename.
func saveJPEG(img image.Image, path string) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("can't create temporary image file: %w", err)
	}

	err = imaging.Encode(file, img, imaging.JPEG)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("can't save cropped image to the disk: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("can't save cropped image to the disk: %w", err)
	}
	return nil
}
