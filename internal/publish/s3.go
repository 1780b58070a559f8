package publish

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/bigcalc/bigcalc/internal/constants"
)

// Uploader is the part of the S3 upload manager the publisher needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Publisher uploads the publish directory to a bucket, optionally below a
// key prefix. Objects that are not part of the directory are left alone.
type S3Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      *zerolog.Logger
	progress Progress
}

// NewS3Publisher loads AWS configuration from the default chain, with static
// credentials taking precedence when both keys are set.
func NewS3Publisher(ctx context.Context, cfg S3Config, log *zerolog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("deploy.s3.bucket must be set for the s3 target")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey.Reveal(), ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	log.Debug().
		Str("bucket", cfg.Bucket).
		Str("region", awsCfg.Region).
		Str("endpoint", cfg.Endpoint).
		Msg("S3 client configured")

	return NewS3PublisherWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

func NewS3PublisherWithUploader(uploader Uploader, bucket, prefix string, log *zerolog.Logger) *S3Publisher {
	return &S3Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		log:      log,
	}
}

func (p *S3Publisher) key(rel string) string {
	if p.prefix == "" {
		return rel
	}
	return p.prefix + "/" + rel
}

func (p *S3Publisher) Publish(ctx context.Context, dir string, commit Commit) (*Published, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	progress := newProgressCounter(len(files), p.progress)
	for _, f := range files {
		if err := p.upload(ctx, f, commit); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", f.rel, err)
		}
		progress.inc()
	}

	location := "s3://" + p.bucket
	if p.prefix != "" {
		location += "/" + p.prefix
	}
	p.log.Info().Str("location", location).Int("files", len(files)).Msg("Published")
	return &Published{
		Target:   "s3",
		Location: location,
		Files:    len(files),
		Bytes:    totalSize(files),
		Revision: commit.SHA,
	}, nil
}

func (p *S3Publisher) upload(ctx context.Context, f file, commit Commit) error {
	body, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer body.Close()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(p.key(f.rel)),
		Body:          body,
		ContentLength: aws.Int64(f.size),
	}
	name := f.rel
	if strings.HasSuffix(name, constants.BrotliSuffix) {
		name = strings.TrimSuffix(name, constants.BrotliSuffix)
		input.ContentEncoding = aws.String("br")
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if commit.SHA != "" {
		input.Metadata = map[string]string{"revision": commit.SHA}
	}

	_, err = p.uploader.Upload(ctx, input)
	if err == nil {
		p.log.Debug().Str("key", *input.Key).Msg("Uploaded")
	}
	return err
}
