package config

import "strings"

// StorageBackend selects the blob store implementation.
type StorageBackend string

const (
	StorageBackendFS StorageBackend = "fs"
	StorageBackendS3 StorageBackend = "s3"
)

// StorageConfig contains durable blob storage configuration.
type StorageConfig struct {
	Backend StorageBackend `env:"BACKEND" envDefault:"fs"`

	// Root is the filesystem directory used by the fs backend.
	Root string `env:"ROOT" envDefault:"./data/assets"`

	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"         envDefault:"us-east-1"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3Prefix       string `env:"S3_PREFIX"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
}

// Sanitize normalises storage configuration values.
func (s *StorageConfig) Sanitize() {
	s.Backend = StorageBackend(strings.ToLower(strings.TrimSpace(string(s.Backend))))
	if s.Backend != StorageBackendS3 {
		s.Backend = StorageBackendFS
	}
	if strings.TrimSpace(s.Root) == "" {
		s.Root = "./data/assets"
	}
	s.S3Prefix = strings.Trim(strings.TrimSpace(s.S3Prefix), "/")
	s.S3Endpoint = strings.TrimSpace(s.S3Endpoint)
}
