package paths

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/utils"
)

// AwsConfig holds the object-storage connection settings.
type AwsConfig struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"accessKeyID" yaml:"accessKeyID"`
	AccessKeySecret string `json:"accessKeySecret" yaml:"accessKeySecret"`
}

// S3 downloads s3:// objects into a local cache directory. Zip objects
// are extracted and the extraction directory is returned instead of the
// archive. Repeated resolutions of the same URI reuse the cached copy.
type S3 struct {
	s3Client *s3.S3
	cacheDir string

	mu   sync.Mutex
	seen map[string]string
}

// NewS3 builds a resolver against the configured endpoint. cacheDir
// receives the downloaded objects.
func NewS3(conf *AwsConfig, cacheDir string) *S3 {
	return &S3{
		s3Client: s3Client(conf.Endpoint, conf.AccessKeyID, conf.AccessKeySecret),
		cacheDir: cacheDir,
		seen:     map[string]string{},
	}
}

func s3Client(endpoint, accessKey, secretKey string) *s3.S3 {
	config := &aws.Config{
		Endpoint:         &endpoint,
		Region:           aws.String("dummy"),
		S3ForcePathStyle: aws.Bool(true),
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
	}

	sess := session.Must(session.NewSession())
	return s3.New(sess, config)
}

func (r *S3) LocalPath(ctx context.Context, uri string) (string, error) {
	bucket, key, err := splitURI(uri)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if local, ok := r.seen[uri]; ok {
		return local, nil
	}

	dst := filepath.Join(r.cacheDir, bucket, key)
	if err := r.download(ctx, bucket, key, dst); err != nil {
		log.WithError(err).Errorf("failed to download %s", uri)
		return "", err
	}

	local := dst
	if strings.HasSuffix(key, ".zip") {
		local = strings.TrimSuffix(dst, ".zip")
		if err := utils.Unzip(dst, local); err != nil {
			log.WithError(err).Errorf("failed to extract %s", dst)
			return "", err
		}
	}
	r.seen[uri] = local
	return local, nil
}

func (r *S3) download(ctx context.Context, bucket, key, dst string) error {
	log.Infof("downloading s3 object, bucket: %v, key: %v", bucket, key)

	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil && !os.IsExist(err) {
		return err
	}
	writer, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer writer.Close()

	downloader := s3manager.NewDownloaderWithClient(r.s3Client)
	_, err = downloader.DownloadWithContext(ctx, writer, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

func splitURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	return u.Host, strings.TrimLeft(u.Path, "/"), nil
}
