// Package media archives inline message media to S3-compatible storage.
// Webhook payloads may carry the media bytes as a data URL inside
// media_info; when they do, the bytes are offloaded to object storage and
// the persisted envelope keeps a reference instead of the payload.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
	"github.com/vincent-petithory/dataurl"

	"crm-channel-bridge/config"
)

const thumbnailMaxPx = 320

// Archiver uploads inline media to a bucket. A disabled archiver is valid
// and leaves media untouched.
type Archiver struct {
	client    *s3.Client
	bucket    string
	publicURL string
	enabled   bool
}

// New builds an Archiver from the process configuration. When S3 is not
// enabled the returned archiver passes media through unchanged.
func New(cfg *config.Config) *Archiver {
	if !cfg.S3Enabled {
		log.Info().Msg("S3 media archival disabled")
		return &Archiver{}
	}

	awsCfg := aws.Config{
		Region:      cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
	}

	usePathStyle := cfg.S3PathStyle
	if strings.Contains(cfg.S3Bucket, ".") {
		// Dots in the bucket name break virtual-host TLS.
		usePathStyle = true
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = usePathStyle
	})

	log.Info().Str("bucket", cfg.S3Bucket).Str("region", cfg.S3Region).Msg("S3 media archiver initialized")

	return &Archiver{
		client:    client,
		bucket:    cfg.S3Bucket,
		publicURL: cfg.S3PublicURL,
		enabled:   true,
	}
}

// ArchiveInbound offloads an inline data URL from the media map, returning
// the map with the payload replaced by object references. Archival is
// best-effort: on any failure the original map comes back unchanged so the
// pipeline can still persist the message.
func (a *Archiver) ArchiveInbound(ctx context.Context, sessionKey, messageID string, media map[string]any) map[string]any {
	if !a.enabled || media == nil {
		return media
	}
	raw, ok := media["data_url"].(string)
	if !ok || raw == "" {
		return media
	}

	du, err := dataurl.DecodeString(raw)
	if err != nil {
		log.Warn().Err(err).Str("messageID", messageID).Msg("Could not decode inline media data URL")
		return media
	}
	mimeType := du.MediaType.ContentType()
	data := du.Data

	key := objectKey(sessionKey, messageID, mimeType)
	if err := a.put(ctx, key, data, mimeType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload media to S3")
		return media
	}

	archived := make(map[string]any, len(media)+3)
	for k, v := range media {
		if k == "data_url" {
			continue
		}
		archived[k] = v
	}
	archived["s3_bucket"] = a.bucket
	archived["s3_key"] = key
	if a.publicURL != "" {
		archived["url"] = strings.TrimRight(a.publicURL, "/") + "/" + key
	}

	if strings.HasPrefix(mimeType, "image/") {
		if thumbKey, err := a.putThumbnail(ctx, key, data); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Thumbnail generation failed")
		} else {
			archived["s3_thumbnail_key"] = thumbKey
		}
	}

	return archived
}

func (a *Archiver) put(ctx context.Context, key string, data []byte, mimeType string) error {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	}
	if strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/") || mimeType == "application/pdf" {
		input.ContentDisposition = aws.String("inline")
	}
	_, err := a.client.PutObject(ctx, input)
	if err == nil {
		log.Info().Str("key", key).Str("mimeType", mimeType).Int("size", len(data)).Msg("Media uploaded to S3")
	}
	return err
}

func (a *Archiver) putThumbnail(ctx context.Context, key string, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumb := resize.Thumbnail(thumbnailMaxPx, thumbnailMaxPx, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return "", err
	}

	thumbKey := strings.TrimSuffix(key, extOf(key)) + "_thumb.jpg"
	if err := a.put(ctx, thumbKey, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbKey, nil
}

func objectKey(sessionKey, messageID, mimeType string) string {
	folder := "documents"
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		folder = "images"
	case strings.HasPrefix(mimeType, "video/"):
		folder = "videos"
	case strings.HasPrefix(mimeType, "audio/"):
		folder = "audio"
	}
	now := time.Now()
	return fmt.Sprintf("sessions/%s/%s/%s/%s%s",
		sanitize(sessionKey), now.Format("2006/01/02"), folder, sanitize(messageID), extFor(mimeType))
}

func sanitize(s string) string {
	return strings.NewReplacer("@", "_", ":", "_", "/", "_").Replace(s)
}

func extFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"):
		return ".jpg"
	case strings.Contains(mimeType, "png"):
		return ".png"
	case strings.Contains(mimeType, "gif"):
		return ".gif"
	case strings.Contains(mimeType, "webp"):
		return ".webp"
	case strings.Contains(mimeType, "mp4"):
		return ".mp4"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "opus"):
		return ".opus"
	case strings.Contains(mimeType, "pdf"):
		return ".pdf"
	}
	return ".bin"
}

func extOf(key string) string {
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		return key[dot:]
	}
	return ""
}
