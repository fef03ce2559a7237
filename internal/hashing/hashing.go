// Package hashing provides the engine's three streaming content
// hashes: the 64-bit non-cryptographic quick hash used as a collision
// pre-filter, the progressive head/tail sample hashes, and the 256-bit
// cryptographic confirmation hash (BLAKE3 or SHA-256, selected at run
// time behind one small interface per file).
//
// Every function here reads through the package's rate limiter hook
// after each chunk, keeps at most a bounded read buffer plus head/tail
// sample windows, and never buffers an entire file — including the
// "small file" path, where the
// source implementation this engine supersedes read the whole file
// into memory; streaming here is unconditional.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// blockSize is the read buffer size used by every streaming hash in
// this package.
const blockSize = 64 * 1024

// Limiter is satisfied by internal/ratelimit.Limiter. Declared here
// (rather than imported) so hashing has no dependency on the limiter
// package when rate limiting is disabled in a caller's tests.
type Limiter interface {
	Acquire(n int64)
}

// noLimiter is used whenever a caller passes nil for Limiter.
type noLimiter struct{}

func (noLimiter) Acquire(int64) {}

// Algorithm selects the confirmation-hash implementation.
type Algorithm int

const (
	SHA256 Algorithm = iota
	BLAKE3
)

func (a Algorithm) String() string {
	if a == BLAKE3 {
		return "blake3"
	}
	return "sha256"
}

// newDigest returns a fresh hash.Hash for the selected algorithm.
func newDigest(algo Algorithm) hash.Hash {
	if algo == BLAKE3 {
		return blake3.New()
	}
	return sha256.New()
}

// QuickHash returns the 64-bit sampling digest of size ∥ head ∥ tail,
// where head/tail are each up to sampleBytes long and size is
// incorporated as its decimal ASCII representation so two
// differently-sized files can never collide purely on shared bytes.
// For files no larger than sampleBytes, head and tail may overlap;
// only the bytes actually present are hashed, with no zero-padding.
func QuickHash(path string, sampleBytes int64, limiter Limiter) (string, error) {
	if limiter == nil {
		limiter = noLimiter{}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()

	h := xxhash.New()
	if _, err := io.WriteString(h, fmt.Sprintf("%d", size)); err != nil {
		return "", err
	}

	// Per the digest formula, head and tail are concatenated
	// unconditionally even when their byte ranges overlap (size <= N):
	// both reference the same bytes, and both are hashed.
	headLen := min64(sampleBytes, size)
	if headLen > 0 {
		buf := make([]byte, headLen)
		if _, err := io.ReadFull(f, buf); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return "", err
		}
		h.Write(buf)
		limiter.Acquire(headLen)
	}

	tailStart := max64(0, size-sampleBytes)
	tailLen := size - tailStart
	if tailLen > 0 {
		if _, err := f.Seek(tailStart, io.SeekStart); err != nil {
			return "", err
		}
		buf := make([]byte, tailLen)
		if _, err := io.ReadFull(f, buf); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return "", err
		}
		h.Write(buf)
		limiter.Acquire(tailLen)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SampleHead returns the 64-bit digest of the first k bytes of path.
func SampleHead(path string, k int64, limiter Limiter) (string, error) {
	if limiter == nil {
		limiter = noLimiter{}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.CopyN(h, f, k)
	if err != nil && err != io.EOF {
		return "", err
	}
	limiter.Acquire(n)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SampleTail returns the 64-bit digest of the last k bytes of path,
// given the file's known size.
func SampleTail(path string, k, size int64, limiter Limiter) (string, error) {
	if limiter == nil {
		limiter = noLimiter{}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	start := max64(0, size-k)
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return "", err
	}

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", err
	}
	limiter.Acquire(n)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FullHash streams the entire file through the selected algorithm in
// blockSize chunks, consulting limiter after each chunk, and returns
// the hex-encoded digest and total bytes read.
func FullHash(path string, algo Algorithm, limiter Limiter) (digest string, n int64, err error) {
	if limiter == nil {
		limiter = noLimiter{}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := newDigest(algo)
	buf := make([]byte, blockSize)
	for {
		read, readErr := f.Read(buf)
		if read > 0 {
			h.Write(buf[:read])
			limiter.Acquire(int64(read))
			n += int64(read)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", n, readErr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// CombinedSmallFileHash streams a file once, computing both the quick
// hash and the confirmation hash in the same pass — used for files
// below the small-file threshold, which skip the progressive/quick-
// hash pre-filter stage and go straight to full-hash candidacy. The
// whole file is still read through a bounded buffer, never slurped
// into one byte slice.
func CombinedSmallFileHash(path string, sampleBytes int64, algo Algorithm, limiter Limiter) (quickHash, fullDigest string, n int64, err error) {
	if limiter == nil {
		limiter = noLimiter{}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", "", 0, err
	}
	size := info.Size()

	qh := xxhash.New()
	io.WriteString(qh, fmt.Sprintf("%d", size))
	fh := newDigest(algo)

	buf := make([]byte, blockSize)
	var head []byte
	tailBuf := make([]byte, 0, sampleBytes)

	for {
		read, readErr := f.Read(buf)
		if read > 0 {
			chunk := buf[:read]
			fh.Write(chunk)
			limiter.Acquire(int64(read))
			n += int64(read)

			if int64(len(head)) < sampleBytes {
				need := sampleBytes - int64(len(head))
				take := int64(len(chunk))
				if take > need {
					take = need
				}
				head = append(head, chunk[:take]...)
			}

			tailBuf = append(tailBuf, chunk...)
			if int64(len(tailBuf)) > sampleBytes {
				tailBuf = tailBuf[int64(len(tailBuf))-sampleBytes:]
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", "", n, readErr
		}
	}

	qh.Write(head)
	qh.Write(tailBuf)

	return hex.EncodeToString(qh.Sum(nil)), hex.EncodeToString(fh.Sum(nil)), n, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
