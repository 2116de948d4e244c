// Package paths resolves dataset URIs to local filesystem paths.
// Ground-truth roots referenced from dataset metadata may live on local
// disk or in object storage; evaluators resolve them through a Resolver
// right before scoring.
package paths

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/utils"
)

const s3Scheme = "s3://"

// Resolver turns a dataset URI into a path on the local filesystem.
type Resolver interface {
	LocalPath(ctx context.Context, uri string) (string, error)
}

// IsS3URI reports whether uri addresses object storage.
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, s3Scheme)
}

// Local resolves plain filesystem paths.
type Local struct{}

func (Local) LocalPath(_ context.Context, uri string) (string, error) {
	if !utils.FileIsExist(uri) {
		return "", fmt.Errorf("path does not exist: %s", uri)
	}
	return uri, nil
}

// Auto dispatches on the URI scheme: s3 URIs go through the S3 resolver,
// everything else resolves locally. S3 may be nil when no object-storage
// credentials are configured.
type Auto struct {
	Local Local
	S3    *S3
}

func (a Auto) LocalPath(ctx context.Context, uri string) (string, error) {
	if IsS3URI(uri) {
		if a.S3 == nil {
			return "", errors.New("s3 uri given but no oss credentials configured")
		}
		return a.S3.LocalPath(ctx, uri)
	}
	return a.Local.LocalPath(ctx, uri)
}
