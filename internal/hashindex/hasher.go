package hashindex

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

// Supported digest names.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmMD5    = "md5"
	AlgorithmXXH3   = "xxh3"
)

const minBufferSize = 4096

// Hasher streams files through the configured digest using pooled buffers.
type Hasher struct {
	algorithm  string
	bufferSize int
	bufferPool *sync.Pool
}

// NewHasher returns a Hasher for algorithm. Unknown names are rejected.
func NewHasher(algorithm string, bufferSize int) (*Hasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	if algorithm == "" {
		algorithm = AlgorithmSHA256
	}
	if _, err := newDigest(algorithm); err != nil {
		return nil, err
	}
	if bufferSize < minBufferSize {
		bufferSize = minBufferSize
	}
	return &Hasher{
		algorithm:  algorithm,
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() any {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}, nil
}

// Algorithm returns the digest name used as the stored hash prefix.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Owns reports whether a stored hash was produced by this hasher's algorithm.
func (h *Hasher) Owns(stored string) bool {
	return strings.HasPrefix(stored, h.algorithm+":")
}

// HashFile digests the file at path, checking ctx between reads.
func (h *Hasher) HashFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return h.HashReader(ctx, file)
}

// HashReader digests r, checking ctx between reads.
func (h *Hasher) HashReader(ctx context.Context, r io.Reader) (string, error) {
	digest, err := newDigest(h.algorithm)
	if err != nil {
		return "", err
	}

	bufPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufPtr)
	buf := *bufPtr

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := digest.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("write digest: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}
	return h.algorithm + ":" + hex.EncodeToString(digest.Sum(nil)), nil
}

func newDigest(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmMD5:
		return md5.New(), nil
	case AlgorithmXXH3:
		return xxh3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}
