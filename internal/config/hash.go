package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFile is the manifest written next to a locked config file.
const ChecksumFile = ".checksums"

// ChecksumManifest records the expected BLAKE3 hash of each locked config file.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Fingerprint returns the hex BLAKE3 hash of raw config bytes.
func Fingerprint(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return Fingerprint(data), nil
}

// Lock writes a checksum manifest for configPath into its directory.
// It returns the path of the manifest and the recorded hash.
func Lock(configPath string) (string, string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	hash, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash %s: %w", absPath, err)
	}

	manifestPath := filepath.Join(filepath.Dir(absPath), ChecksumFile)
	manifest, err := loadChecksums(manifestPath)
	if err != nil {
		manifest = &ChecksumManifest{Version: 1, Hashes: make(map[string]string)}
	}
	manifest.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	manifest.Hashes[filepath.Base(absPath)] = hash

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal checksums: %w", err)
	}
	// Restrictive permissions: the manifest holds expected hashes.
	if err := os.WriteFile(manifestPath, data, 0o600); err != nil {
		return "", "", fmt.Errorf("failed to write checksums: %w", err)
	}
	return manifestPath, hash, nil
}

// VerifyChecksum checks configPath against the manifest beside it.
// A missing manifest is not an error; locked reports whether one was found.
func VerifyChecksum(configPath string) (locked bool, err error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return false, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	manifestPath := filepath.Join(filepath.Dir(absPath), ChecksumFile)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return false, nil
	}

	manifest, err := loadChecksums(manifestPath)
	if err != nil {
		return true, err
	}

	expected, ok := manifest.Hashes[filepath.Base(absPath)]
	if !ok {
		return true, fmt.Errorf("%s has no hash in %s (run 'lvsctl config hash --write')", filepath.Base(absPath), manifestPath)
	}

	actual, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return true, err
	}
	if actual != expected {
		return true, fmt.Errorf("hash mismatch for %s: expected %s, got %s\n"+
			"If you edited this file intentionally, run: lvsctl config hash --write",
			filepath.Base(absPath), expected, actual)
	}
	return true, nil
}

func loadChecksums(path string) (*ChecksumManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}
	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}
	if manifest.Hashes == nil {
		manifest.Hashes = make(map[string]string)
	}
	return &manifest, nil
}
