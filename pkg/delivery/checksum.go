package delivery

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
)

// ChecksumAlgorithm selects the digest used for transfer verification.
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
)

// Validate checks that the algorithm is one of the supported digests. It is
// called before any file is opened so a typo never costs a transfer.
func (a ChecksumAlgorithm) Validate() error {
	switch a {
	case ChecksumMD5, ChecksumSHA1, ChecksumSHA256:
		return nil
	default:
		return fmt.Errorf("%w: %q (supported: md5, sha1, sha256)", ErrUnsupportedAlgorithm, string(a))
	}
}

func (a ChecksumAlgorithm) newHash() hash.Hash {
	switch a {
	case ChecksumSHA1:
		return sha1.New()
	case ChecksumSHA256:
		return sha256.New()
	default:
		return md5.New()
	}
}

// FileChecksum computes the digest of a local file and returns it as a
// lowercase hex string.
func FileChecksum(path string, algo ChecksumAlgorithm) (string, error) {
	if err := algo.Validate(); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer file.Close()

	return readerChecksum(file, algo)
}

// ReaderChecksum computes the digest of everything readable from r and
// returns it as a lowercase hex string.
func ReaderChecksum(r io.Reader, algo ChecksumAlgorithm) (string, error) {
	if err := algo.Validate(); err != nil {
		return "", err
	}
	return readerChecksum(r, algo)
}

func readerChecksum(r io.Reader, algo ChecksumAlgorithm) (string, error) {
	h := algo.newHash()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read data for checksum: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
