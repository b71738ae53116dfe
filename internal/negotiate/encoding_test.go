package negotiate

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestEncoding(t *testing.T) {
	full := NewNegotiator(AlgorithmBrotli, AlgorithmGzip)
	gzipOnly := NewNegotiator(AlgorithmGzip)

	tests := []struct {
		name       string
		negotiator *Negotiator
		header     string
		want       Algorithm
	}{
		{"empty header", full, "", AlgorithmIdentity},
		{"brotli preferred at equal quality", full, "gzip, br", AlgorithmBrotli},
		{"quality beats preference", full, "gzip;q=0.9, br;q=0.5", AlgorithmGzip},
		{"unsupported falls through", gzipOnly, "br, gzip", AlgorithmGzip},
		{"nothing supported", full, "deflate, zstd", AlgorithmIdentity},
		{"zero quality excluded", full, "br;q=0, gzip;q=0", AlgorithmIdentity},
		{"malformed quality counts as zero", full, "br;q=oops, gzip;q=0.5", AlgorithmGzip},
		{"explicit identity", full, "identity", AlgorithmIdentity},
		{"case insensitive", full, "GZip", AlgorithmGzip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.negotiator.Encoding(tt.header); got != tt.want {
				t.Errorf("Encoding(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestCompressGzipRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"message":"hello"}`), 64)

	compressed, err := Compress(payload, AlgorithmGzip)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if bytes.Equal(compressed, payload) {
		t.Fatal("gzip output should differ from input")
	}

	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("round trip mismatch")
	}
}

func TestCompressBrotliRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"message":"hello"}`), 64)

	compressed, err := Compress(payload, AlgorithmBrotli)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("round trip mismatch")
	}
}

func TestCompressIdentity(t *testing.T) {
	payload := []byte(`{"message":"hello"}`)

	out, err := Compress(payload, AlgorithmIdentity)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("identity must return the payload unchanged")
	}
}
