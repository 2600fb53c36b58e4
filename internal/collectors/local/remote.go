package local

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// ErrObjectNotFound is returned when the remote object does not exist
var ErrObjectNotFound = errors.New("inventory object not found")

// readS3 downloads s3://bucket/key
func readS3(ctx context.Context, loc Location) ([]byte, error) {
	var (
		cfg aws.Config
		err error
	)
	if loc.Region != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(loc.Region))
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}

	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Host),
		Key:    aws.String(loc.Path),
	})
	if err != nil {
		return nil, classifyS3Error(err, loc)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read s3://%s/%s", loc.Host, loc.Path)
	}
	return data, nil
}

func classifyS3Error(err error, loc Location) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return errors.Wrapf(ErrObjectNotFound, "s3://%s/%s: %s", loc.Host, loc.Path, apiErr.ErrorCode())
		}
	}
	return errors.Wrapf(err, "download s3://%s/%s", loc.Host, loc.Path)
}

// readGCS downloads gs://bucket/object with default credentials
func readGCS(ctx context.Context, loc Location) ([]byte, error) {
	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadOnly))
	if err != nil {
		return nil, errors.Wrap(err, "create GCS client")
	}
	defer client.Close()

	reader, err := client.Bucket(loc.Host).Object(loc.Path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, errors.Wrapf(ErrObjectNotFound, "gs://%s/%s", loc.Host, loc.Path)
		}
		return nil, errors.Wrapf(err, "open gs://%s/%s", loc.Host, loc.Path)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "read gs://%s/%s", loc.Host, loc.Path)
	}
	return data, nil
}

// readAzure downloads azblob://account/container/blob. Access is anonymous,
// so the container must allow public reads or the blob path must carry a SAS.
func readAzure(ctx context.Context, loc Location) ([]byte, error) {
	container, blob := loc.split()
	raw := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", loc.Host, container, blob)

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse Azure blob URL")
	}
	blobURL := azblob.NewBlobURL(*parsed, azblob.NewPipeline(azblob.NewAnonymousCredential(), azblob.PipelineOptions{}))

	resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		var stgErr azblob.StorageError
		if errors.As(err, &stgErr) && stgErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil, errors.Wrapf(ErrObjectNotFound, "%s", raw)
		}
		return nil, errors.Wrapf(err, "download %s", raw)
	}

	body := resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 2})
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", raw)
	}
	return data, nil
}
