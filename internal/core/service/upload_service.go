package service

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/demotours/tour-builder/internal/core/domain"
	"github.com/demotours/tour-builder/internal/core/ports"
	"github.com/demotours/tour-builder/internal/metrics"
)

const sniffLen = 512

// extensionTypes covers containers http.DetectContentType does not recognise
// or reports as application/octet-stream. SVG is never accepted since it can
// carry script and assets share the API origin.
var extensionTypes = map[string]string{
	".webm": "video/webm",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadService stores step media. It records nothing about which tour the
// asset belongs to; the client attaches the returned URL to a step.
type UploadService struct {
	store  ports.AssetStore
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func NewUploadService(store ports.AssetStore, logger zerolog.Logger) *UploadService {
	return &UploadService{store: store, logger: logger, now: time.Now, newID: uuid.NewString}
}

func (s *UploadService) Upload(ctx context.Context, in ports.UploadInput) (*ports.UploadResult, error) {
	if in.Body == nil || in.Size == 0 {
		return nil, domain.NewValidationError(domain.ErrNoFile.Error())
	}

	br := bufio.NewReaderSize(in.Body, sniffLen)
	head, _ := br.Peek(sniffLen)
	if len(head) == 0 {
		return nil, domain.NewValidationError(domain.ErrNoFile.Error())
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	contentType := detectContentType(head, ext)
	kind, ok := mediaKind(contentType)
	if !ok {
		metrics.UploadsTotal.WithLabelValues("unknown", "rejected").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, contentType)
	}

	key := s.objectKey(in.OwnerID, ext)
	url, err := s.store.Put(ctx, key, contentType, br, in.Size)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(kind, "failed").Inc()
		s.logger.Error().Err(err).Str("key", key).Msg("failed to store upload")
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues(kind, "stored").Inc()
	metrics.UploadBytesTotal.WithLabelValues(kind).Add(float64(in.Size))
	s.logger.Info().Str("owner_id", in.OwnerID).Str("key", key).Str("content_type", contentType).Int64("size", in.Size).Msg("asset uploaded")

	return &ports.UploadResult{URL: url, Key: key, ContentType: contentType, Size: in.Size}, nil
}

// objectKey builds a collision-free name: <owner>/<yyyymmdd>-<uuid><ext>.
func (s *UploadService) objectKey(ownerID, ext string) string {
	return fmt.Sprintf("%s/%s-%s%s", ownerID, s.now().UTC().Format("20060102"), s.newID(), ext)
}

func detectContentType(head []byte, ext string) string {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if ct == "application/octet-stream" || ct == "text/plain" {
		if byExt, ok := extensionTypes[ext]; ok {
			return byExt
		}
	}
	return ct
}

func mediaKind(contentType string) (string, bool) {
	switch {
	case contentType == "image/svg+xml":
		return "", false
	case strings.HasPrefix(contentType, "image/"):
		return "image", true
	case strings.HasPrefix(contentType, "video/"):
		return "video", true
	default:
		return "", false
	}
}
