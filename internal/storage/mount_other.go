//go:build !darwin && !linux

package storage

func detectFilesystem(string) (string, error) { return "", nil }
