package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"foodgram/internal/config"
	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "media"
	DefaultMediaURL             = "/media/"
	DefaultImageMaxUploadSizeMB = 10
	RecipeImageMaxSize          = 1080
	JPEGQuality                 = 82
	WebPQuality                 = 70

	recipeImageDir = "recipes"
)

// Image validation messages.
const (
	MsgInvalidImage = "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением."
	MsgImageTooBig  = "Файл слишком большой (максимум %d МБ)."
)

// ImageStore persists recipe images and resolves their public URLs.
type ImageStore interface {
	// Save decodes a base64 payload and returns the stored relative path.
	Save(ctx context.Context, encoded string) (string, error)
	// Delete removes a stored image and its variants. Missing files are ignored.
	Delete(rel string)
	// URL returns the absolute URL of a stored image.
	URL(ctx context.Context, rel string) string
}

// ImageService stores recipe images on local disk under the media directory.
type ImageService struct {
	mediaDir           string
	mediaURL           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	mediaURL := DefaultMediaURL
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.MediaURL != "" {
			mediaURL = cfg.MediaURL
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}

	return &ImageService{
		mediaDir:           mediaDir,
		mediaURL:           mediaURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaDir is the directory images are written under.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

// MediaURL is the URL prefix images are served under.
func (s *ImageService) MediaURL() string {
	return s.mediaURL
}

// Save decodes a data URI or raw base64 image, bounds it to RecipeImageMaxSize
// and writes a JPEG plus a WebP sibling. The JPEG path is returned.
func (s *ImageService) Save(ctx context.Context, encoded string) (string, error) {
	content, err := decodeImagePayload(encoded)
	if err != nil || len(content) == 0 {
		return "", imageFieldError(MsgInvalidImage)
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return "", imageFieldError(fmt.Sprintf(MsgImageTooBig, s.maxUploadSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return "", imageFieldError(MsgInvalidImage)
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", imageFieldError(MsgInvalidImage)
	}

	bounded := resizeToFit(flatten(decoded), RecipeImageMaxSize, RecipeImageMaxSize)
	encodedJPG, err := encodeJPEG(bounded, JPEGQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	encodedWebP, err := encodeWebP(bounded, WebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := uuid.NewString()
	jpgRel := path.Join(recipeImageDir, name+".jpg")
	jpgAbs := s.abs(jpgRel)
	webpAbs := s.abs(webpSibling(jpgRel))

	if err := writeBytesToFile(jpgAbs, encodedJPG); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, encodedWebP); err != nil {
		cleanupImageFiles([]string{jpgAbs, webpAbs})
		return "", models.NewInternalError(err)
	}

	middleware.Logger.DebugContext(ctx, "recipe image stored",
		"path", jpgRel,
		"format", format,
		"width", bounded.Bounds().Dx(),
		"height", bounded.Bounds().Dy(),
	)
	return jpgRel, nil
}

// Delete removes rel and its WebP sibling. Paths outside the recipe image
// directory are ignored.
func (s *ImageService) Delete(rel string) {
	if !isRecipeImagePath(rel) {
		return
	}
	cleanupImageFiles([]string{s.abs(rel), s.abs(webpSibling(rel))})
}

// URL joins the media prefix with rel. A relative media prefix is made
// absolute with the request base URL carried by ctx.
func (s *ImageService) URL(ctx context.Context, rel string) string {
	if rel == "" {
		return ""
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	u := s.mediaURL + strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(u, "/") {
		if base := BaseURLFromContext(ctx); base != "" {
			return strings.TrimSuffix(base, "/") + u
		}
	}
	return u
}

func (s *ImageService) abs(rel string) string {
	return filepath.Join(s.mediaDir, filepath.FromSlash(rel))
}

func imageFieldError(msg string) error {
	return models.NewFieldValidationError(map[string]string{"image": msg})
}

// decodeImagePayload accepts "data:image/<fmt>;base64,<data>" or bare base64.
func decodeImagePayload(encoded string) ([]byte, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		header, data, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("malformed data uri")
		}
		payload = data
	}
	return base64.StdEncoding.DecodeString(payload)
}

func isRecipeImagePath(rel string) bool {
	if rel == "" || strings.Contains(rel, "..") {
		return false
	}
	clean := path.Clean(rel)
	return clean == rel && strings.HasPrefix(clean, recipeImageDir+"/")
}

func webpSibling(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".webp"
}

// flatten draws src over white so transparent areas do not turn black in JPEG.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Over)
	return dst
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
