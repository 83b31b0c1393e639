// Package publish uploads the built public directory to an S3 bucket.
//
// Files are uploaded by a bounded worker pool; every PUT is retried with
// exponential backoff. Hidden files are skipped.
package publish

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"

	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/errors"
)

// Uploader is the part of the S3 client the publisher uses.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures a Publisher.
type Options struct {
	// Logger receives upload progress. Default: slog.Default().
	Logger *slog.Logger

	// Client uploads objects. Default: NewClient(cfg.Publish).
	Client Uploader

	// Retries is the number of retries per object. Default: 3.
	Retries uint64

	// Backoff returns the retry policy for one object.
	// Default: exponential backoff.
	Backoff func() backoff.BackOff
}

// Result summarizes a publish.
type Result struct {
	// Files is the number of uploaded files.
	Files int

	// Bytes is the total uploaded size.
	Bytes int64

	// Duration is how long the publish took.
	Duration time.Duration
}

// Publisher uploads a directory tree to S3.
type Publisher struct {
	cfg     config.PublishConfig
	opts    Options
	logger  *slog.Logger
	workers int
}

// New creates a publisher. The bucket must be configured.
func New(cfg *config.Config, opts Options) (*Publisher, error) {
	if cfg.Publish.Bucket == "" {
		return nil, errors.New("E141")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Client == nil {
		opts.Client = NewClient(cfg.Publish)
	}
	if opts.Retries == 0 {
		opts.Retries = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		}
	}
	workers := cfg.Publish.Concurrency
	if workers <= 0 {
		workers = 8
	}
	return &Publisher{
		cfg:     cfg.Publish,
		opts:    opts,
		logger:  opts.Logger,
		workers: workers,
	}, nil
}

// NewClient creates an S3 client from the publish settings. Credentials
// come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewClient(pc config.PublishConfig) *s3.Client {
	region := pc.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if pc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(pc.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("E140").WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

type file struct {
	path string
	key  string
}

// Publish uploads every non-hidden file under dir.
func (p *Publisher) Publish(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()

	files, err := p.collect(dir)
	if err != nil {
		return nil, errors.New("E140").WithDetail(dir).Wrap(err)
	}

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, errors.New("E140").Wrap(err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		uploaded atomic.Int64
		total    atomic.Int64
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, f := range files {
		f := f
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			n, err := p.upload(ctx, f)
			if err != nil {
				fail(errors.New("E140").WithDetail(f.key).Wrap(err))
				return
			}
			uploaded.Add(1)
			total.Add(n)
			p.logger.Debug("uploaded", "key", f.key, "bytes", n)
		})
		if err != nil {
			wg.Done()
			fail(errors.New("E140").Wrap(err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return &Result{
		Files:    int(uploaded.Load()),
		Bytes:    total.Load(),
		Duration: time.Since(start),
	}, nil
}

func (p *Publisher) collect(dir string) ([]file, error) {
	var files []file
	err := filepath.WalkDir(dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if fp != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, fp)
		if err != nil {
			return err
		}
		files = append(files, file{path: fp, key: p.key(filepath.ToSlash(rel))})
		return nil
	})
	return files, err
}

func (p *Publisher) key(rel string) string {
	prefix := strings.Trim(p.cfg.Prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// upload PUTs one file, retrying transient failures.
func (p *Publisher) upload(ctx context.Context, f file) (int64, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return 0, err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(f.key),
		ContentType: aws.String(contentType(f.path)),
	}
	if p.cfg.CacheControl != "" {
		input.CacheControl = aws.String(p.cfg.CacheControl)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.opts.Backoff(), p.opts.Retries), ctx)
	err = backoff.Retry(func() error {
		input.Body = bytes.NewReader(data)
		_, err := p.opts.Client.PutObject(ctx, input)
		return err
	}, policy)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func contentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
