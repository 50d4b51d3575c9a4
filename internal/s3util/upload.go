// Package s3util provides the S3 helpers used to store generated thumbnails.
package s3util

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// ThumbnailPrefix is the key prefix thumbnails are written under.
const ThumbnailPrefix = "thumbnails"

// PutObjectAPI is the subset of *s3.Client used to upload thumbnails.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ThumbnailKey maps an original object key to its thumbnail key:
// "{dir}/photo.heic" becomes "{dir}/thumbnails/photo.jpg" for JPEG output.
func ThumbnailKey(originalKey string, format thumbnail.Format) string {
	dir, filename := path.Split(originalKey)
	baseName := strings.TrimSuffix(filename, path.Ext(filename))
	return dir + ThumbnailPrefix + "/" + baseName + format.Extension()
}

// UploadThumbnail writes res to bucket/key with its content type, project tag
// and output dimensions as object metadata.
func UploadThumbnail(ctx context.Context, client PutObjectAPI, bucket, key string, res *thumbnail.Result) error {
	contentType := res.MIMEType
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(res.Data),
		ContentType: &contentType,
		Tagging:     ProjectTagging(),
		Metadata: map[string]string{
			"width":        strconv.Itoa(res.Output.Width),
			"height":       strconv.Itoa(res.Output.Height),
			"pass-through": strconv.FormatBool(res.PassThrough),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload thumbnail to S3: %w", err)
	}

	log.Debug().
		Str("bucket", bucket).
		Str("thumb_key", key).
		Int("bytes", len(res.Data)).
		Msg("Thumbnail uploaded to S3")
	return nil
}
