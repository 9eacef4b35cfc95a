package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"alcyxob/flexcoach/internal/config"
)

func TestNewS3StorageRequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), config.S3Config{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error without a bucket")
	}
}

func TestPresignedURLUsesPathStyleEndpoint(t *testing.T) {
	fs, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		BucketName:      "flexcoach",
	})
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}

	url, err := fs.GeneratePresignedDownloadURL(context.Background(), "backups/coach-1/flexpro_backup_2025-01-01.json", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:9000/flexcoach/backups/coach-1/") {
		t.Fatalf("url = %s", url)
	}
	if !strings.Contains(url, "X-Amz-Signature=") || !strings.Contains(url, "X-Amz-Expires=60") {
		t.Fatalf("url not signed as expected: %s", url)
	}
}

func TestEndpointURLAppliesUseSSL(t *testing.T) {
	cases := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", true, ""},
		{"localhost:9000", false, "http://localhost:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"http://localhost:9000", true, "http://localhost:9000"},
	}
	for _, tc := range cases {
		if got := endpointURL(tc.endpoint, tc.useSSL); got != tc.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", tc.endpoint, tc.useSSL, got, tc.want)
		}
	}
}

func TestPresignedURLHonorsUseSSLForBareEndpoint(t *testing.T) {
	fs, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        "localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		BucketName:      "flexcoach",
		UseSSL:          false,
	})
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}
	url, err := fs.GeneratePresignedDownloadURL(context.Background(), "backups/coach-1/flexpro_backup.json", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:9000/flexcoach/backups/coach-1/") {
		t.Fatalf("url = %s", url)
	}
}
