// Package s3fetch downloads Rekordbox export trees stored in S3.
package s3fetch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 client used by this package.
type API interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
}

// Object is one listed S3 object.
type Object struct {
	Key  string
	Size int64
}

// Client provides S3 operations for fetching export files.
type Client struct {
	api API
}

// NewClient creates a new S3 client using default AWS configuration.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{
		api: s3.NewFromConfig(cfg),
	}, nil
}

// NewClientWithConfig creates a new S3 client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config) *Client {
	return &Client{
		api: s3.NewFromConfig(cfg),
	}
}

// NewClientWithAPI wraps an existing S3 API implementation.
func NewClientWithAPI(api API) *Client {
	return &Client{api: api}
}

// ListObjects returns every object under prefix, following continuation
// tokens.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)})
		}
	}
	return out, nil
}
