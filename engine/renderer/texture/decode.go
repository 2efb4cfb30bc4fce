package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/meshed/common"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode decodes an encoded image (PNG, JPEG, GIF, BMP, TIFF or WebP), flips it vertically so the first row
// of pixels is the bottom of the image, and converts it to tightly packed RGBA8 with straight (non-premultiplied) alpha.
//
// Parameters:
//   - encoded: the encoded image bytes
//
// Returns:
//   - common.TextureStagingData: the pixels ready for upload
//   - error: an error if the image could not be decoded or is empty
func Decode(encoded []byte) (common.TextureStagingData, error) {
	img, format, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return common.TextureStagingData{}, fmt.Errorf("decoded %s image is empty", format)
	}

	// NRGBA keeps straight alpha, which the default blend state expects. Stride is 4*width.
	straight := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(straight, straight.Bounds(), img, bounds.Min, draw.Src)
	flipRows(straight.Pix, straight.Stride)
	return common.TextureStagingData{
		Pixels: straight.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// flipRows reverses the order of the rows in pix in place.
func flipRows(pix []byte, stride int) {
	row := make([]byte, stride)
	for top, bottom := 0, len(pix)-stride; top < bottom; top, bottom = top+stride, bottom-stride {
		copy(row, pix[top:top+stride])
		copy(pix[top:top+stride], pix[bottom:bottom+stride])
		copy(pix[bottom:bottom+stride], row)
	}
}

// DecodeAll decodes several images concurrently on a worker pool. Results are returned in input order.
// The first decode error is returned after every task has finished.
//
// Parameters:
//   - encoded: the encoded images
//
// Returns:
//   - []common.TextureStagingData: the decoded pixels, one per input
//   - error: the first error in input order
func DecodeAll(encoded ...[]byte) ([]common.TextureStagingData, error) {
	results := make([]common.TextureStagingData, len(encoded))
	errs := make([]error, len(encoded))
	if len(encoded) == 0 {
		return results, nil
	}

	workers := min(len(encoded), runtime.GOMAXPROCS(0))
	pool := worker.NewDynamicWorkerPool(workers, len(encoded), time.Second)

	// The pool reports completion through its own channels; a WaitGroup is the per-batch barrier.
	var wg sync.WaitGroup
	for i, data := range encoded {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				results[i], errs[i] = Decode(data)
				return nil, errs[i]
			},
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
	}
	return results, nil
}
