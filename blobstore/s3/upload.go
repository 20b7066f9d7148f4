package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/geostore"
	"github.com/hupe1980/geostore/internal/hash"
)

// UploadConfig configures the multipart uploads behind Create.
type UploadConfig struct {
	// PartSize is the size of each part. Default: 8 MiB.
	PartSize int64

	// Concurrency is the number of parts in flight. Default: 5.
	Concurrency int

	// EnableChecksum attaches CRC32C checksums. Default: true.
	EnableChecksum bool

	// LeavePartsOnError keeps uploaded parts when an upload fails or is aborted.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the settings used when WithUploadConfig is absent.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{PartSize: 8 << 20, Concurrency: 5, EnableChecksum: true}
}

func newUploader(client manager.UploadAPIClient, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// crc32cChecksum encodes the CRC32C of data the way S3 expects it:
// big-endian and base64.
func crc32cChecksum(data []byte) string {
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], hash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func putObject(ctx context.Context, client Client, bucket, key string, data []byte, checksum bool) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if checksum {
		in.ChecksumCRC32C = aws.String(crc32cChecksum(data))
	}
	_, err := client.PutObject(ctx, in)
	return err
}

// upload pipes writes into manager.Uploader running in the background. The
// object exists once Close returns nil. Abort cancels the request context,
// which makes the uploader abort a started multipart upload.
type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	result chan error

	once sync.Once
	err  error
}

func startUpload(ctx context.Context, uploader *manager.Uploader, bucket, key string, checksum bool) *upload {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	u := &upload{pw: pw, cancel: cancel, result: make(chan error, 1)}

	in := &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: pr}
	if checksum {
		in.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}
	go func() {
		_, err := uploader.Upload(ctx, in)
		pr.CloseWithError(err)
		u.result <- err
	}()
	return u
}

func (u *upload) Write(p []byte) (int, error) {
	n, err := u.pw.Write(p)
	if errors.Is(err, io.ErrClosedPipe) {
		return n, geostore.ErrClosed
	}
	return n, err
}

// Sync is a no-op; the object is committed by Close.
func (u *upload) Sync() error { return nil }

func (u *upload) Close() error {
	u.once.Do(func() {
		u.pw.Close()
		u.err = <-u.result
		u.cancel()
	})
	return u.err
}

func (u *upload) Abort() error {
	u.once.Do(func() {
		u.cancel()
		u.pw.CloseWithError(context.Canceled)
		<-u.result
		u.err = context.Canceled
	})
	return nil
}
