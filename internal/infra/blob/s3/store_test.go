package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"lifesim/internal/blob/core"
	"lifesim/internal/blob/storetest"
)

func TestMockStoreContract(t *testing.T) {
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 || store.Bucket() != "mock-bucket" {
		t.Fatalf("unexpected driver/bucket %s/%s", store.Driver(), store.Bucket())
	}
	storetest.Run(t, store)
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected bucket error")
	}
}

func TestNewWithStaticCredentials(t *testing.T) {
	store, err := New(context.Background(), Config{
		Bucket:          "sims",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Bucket() != "sims" {
		t.Fatalf("unexpected bucket %s", store.Bucket())
	}
}

func TestDecodeChunked(t *testing.T) {
	body, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n"))
	if !ok || string(body) != "hello" {
		t.Fatalf("expected decoded chunk, got %q ok=%v", body, ok)
	}
	if _, ok := decodeChunked([]byte("plain body")); ok {
		t.Fatal("plain body should not decode")
	}
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("boom"), false},
		{&types.NoSuchKey{}, true},
		{fmt.Errorf("wrapped: %w", &types.NotFound{}), true},
		{&smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{&smithy.GenericAPIError{Code: "AccessDenied"}, false},
	}
	for i, tc := range cases {
		if got := isNotFound(tc.err); got != tc.want {
			t.Errorf("case %d (%v): expected %v, got %v", i, tc.err, tc.want, got)
		}
	}
}
