package lesionnet

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	inputSize = 380
	poolGrid  = 8
	// featureDim is poolGrid*poolGrid cells times 3 channels.
	featureDim = poolGrid * poolGrid * 3
)

// Normalization constants the model was trained with.
var (
	channelMean = [3]float64{0.485, 0.456, 0.406}
	channelStd  = [3]float64{0.229, 0.224, 0.225}
)

// loadFeatures decodes the image, resizes it to the model input size,
// normalizes each channel and mean-pools the pixels over a fixed grid.
func loadFeatures(path string) ([]float32, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	resized := imaging.Resize(img, inputSize, inputSize, imaging.Lanczos)
	return poolFeatures(resized), nil
}

func poolFeatures(img *image.NRGBA) []float32 {
	var sums [poolGrid][poolGrid][3]float64
	var counts [poolGrid][poolGrid]int

	for y := 0; y < inputSize; y++ {
		gy := y * poolGrid / inputSize
		for x := 0; x < inputSize; x++ {
			gx := x * poolGrid / inputSize
			off := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := float64(img.Pix[off+c]) / 255.0
				sums[gy][gx][c] += (v - channelMean[c]) / channelStd[c]
			}
			counts[gy][gx]++
		}
	}

	features := make([]float32, 0, featureDim)
	for gy := 0; gy < poolGrid; gy++ {
		for gx := 0; gx < poolGrid; gx++ {
			n := float64(counts[gy][gx])
			for c := 0; c < 3; c++ {
				features = append(features, float32(sums[gy][gx][c]/n))
			}
		}
	}
	return features
}
