package negotiate

import (
	"bytes"
	"compress/gzip"

	"github.com/andybalholm/brotli"
)

// Algorithm identifies a response compression algorithm
type Algorithm string

const (
	// AlgorithmBrotli is brotli compression
	AlgorithmBrotli Algorithm = "br"
	// AlgorithmGzip is gzip compression
	AlgorithmGzip Algorithm = "gzip"
	// AlgorithmIdentity means no compression
	AlgorithmIdentity Algorithm = "identity"
)

// rank orders algorithms for tie-breaking between entries of equal quality:
// brotli beats gzip beats identity.
func (a Algorithm) rank() int {
	switch a {
	case AlgorithmBrotli:
		return 0
	case AlgorithmGzip:
		return 1
	default:
		return 2
	}
}

// Negotiator selects a compression algorithm from an Accept-Encoding
// header, restricted to a configured set of supported algorithms. Identity
// is always supported.
type Negotiator struct {
	supported map[Algorithm]bool
}

// NewNegotiator builds a negotiator supporting the given algorithms
func NewNegotiator(algorithms ...Algorithm) *Negotiator {
	supported := map[Algorithm]bool{AlgorithmIdentity: true}
	for _, a := range algorithms {
		supported[a] = true
	}
	return &Negotiator{supported: supported}
}

// Encoding selects the compression algorithm for an Accept-Encoding header.
// The highest-quality supported algorithm wins; brotli beats gzip at equal
// quality. Unsupported or malformed offers fall through to identity, never
// to an error.
func (n *Negotiator) Encoding(acceptEncoding string) Algorithm {
	if acceptEncoding == "" {
		return AlgorithmIdentity
	}

	best := AlgorithmIdentity
	bestQ := -1.0
	for _, item := range parseQualityList(acceptEncoding) {
		if item.q <= 0 {
			continue
		}
		alg := Algorithm(item.value)
		if !n.supported[alg] {
			continue
		}
		if item.q > bestQ || (item.q == bestQ && alg.rank() < best.rank()) {
			best = alg
			bestQ = item.q
		}
	}
	return best
}

// Compress compresses a payload with the given algorithm. Identity returns
// the payload unchanged.
func Compress(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case AlgorithmBrotli:
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case AlgorithmGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return data, nil
	}
}
