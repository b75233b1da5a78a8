package lesionnet

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Weights file layout, all integers and floats little-endian:
//
//	[4]byte  magic "DDLW"
//	uint32   version (currently 1)
//	uint32   feature dimension
//	uint32   number of classes
//	float32  weights, row-major, one row of featureDim values per class
//	float32  biases, one per class
var weightsMagic = [4]byte{'D', 'D', 'L', 'W'}

const weightsVersion = 1

// linearHead is the trained classification layer applied on top of the
// pooled image features.
type linearHead struct {
	featureDim int
	numClasses int
	weights    [][]float32
	biases     []float32
}

func loadWeights(path string, wantFeatureDim, wantClasses int) (*linearHead, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weights file: %w", err)
	}
	defer f.Close()
	return readWeights(bufio.NewReader(f), wantFeatureDim, wantClasses)
}

func readWeights(r io.Reader, wantFeatureDim, wantClasses int) (*linearHead, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read weights magic: %w", err)
	}
	if magic != weightsMagic {
		return nil, fmt.Errorf("bad weights magic %q", magic)
	}

	var header struct {
		Version    uint32
		FeatureDim uint32
		NumClasses uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read weights header: %w", err)
	}
	if header.Version != weightsVersion {
		return nil, fmt.Errorf("unsupported weights version %d", header.Version)
	}
	if int(header.FeatureDim) != wantFeatureDim {
		return nil, fmt.Errorf("weights expect %d features, model produces %d", header.FeatureDim, wantFeatureDim)
	}
	if int(header.NumClasses) != wantClasses {
		return nil, fmt.Errorf("weights carry %d classes, want %d", header.NumClasses, wantClasses)
	}

	head := &linearHead{
		featureDim: int(header.FeatureDim),
		numClasses: int(header.NumClasses),
		weights:    make([][]float32, header.NumClasses),
		biases:     make([]float32, header.NumClasses),
	}
	for i := range head.weights {
		row := make([]float32, head.featureDim)
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, fmt.Errorf("read weights row %d: %w", i, err)
		}
		head.weights[i] = row
	}
	if err := binary.Read(r, binary.LittleEndian, &head.biases); err != nil {
		return nil, fmt.Errorf("read biases: %w", err)
	}
	return head, nil
}

// apply computes the raw class scores for one feature vector.
func (h *linearHead) apply(features []float32) []float64 {
	scores := make([]float64, h.numClasses)
	for i, row := range h.weights {
		sum := float64(h.biases[i])
		for j, w := range row {
			sum += float64(w) * float64(features[j])
		}
		scores[i] = sum
	}
	return scores
}
