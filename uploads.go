package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/models"
	"github.com/mmdatafocus/invoice_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	maxUploadSizeBytes int64 = 5 * 1024 * 1024
	// room for the multipart envelope and the other form fields
	multipartOverhead int64 = 64 * 1024
	thumbnailWidth          = 200
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// imageStore holds item pictures, company logos and their thumbnails.
var imageStore utils.ObjectStore = utils.NewGCSStore()

var (
	errUploadTooLarge = errors.New("file size exceeds 5MB limit")
	errImageStore     = errors.New("image store unavailable")
)

type itemPictureResponse struct {
	ItemID       int    `json:"itemID"`
	PictureURL   string `json:"pictureURL"`
	ThumbnailURL string `json:"thumbnailURL"`
}

type companyLogoResponse struct {
	CompanyID    int    `json:"companyID"`
	LogoURL      string `json:"logoURL"`
	ThumbnailURL string `json:"thumbnailURL"`
}

// imageUpload is a checked image with its thumbnail.
type imageUpload struct {
	data     []byte
	mimeType string
	thumb    []byte
}

// readUpload returns the bytes of the multipart file in field.
func readUpload(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errUploadTooLarge
		}
		return nil, utils.NewInputError(field + " is required")
	}
	if header.Size > maxUploadSizeBytes {
		return nil, errUploadTooLarge
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxUploadSizeBytes {
		return nil, errUploadTooLarge
	}
	return data, nil
}

// readImage reads the image in field, checks its content type and makes
// the thumbnail. On failure the 400 response is already written.
func readImage(c *gin.Context, field string, module string, funcName string) (*imageUpload, bool) {
	data, err := readUpload(c, field)
	if errors.Is(err, errUploadTooLarge) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		respondError(c, module, funcName, err)
		return nil, false
	}
	mimeType := mimetype.Detect(data).String()
	if !imageMimeTypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
		return nil, false
	}
	thumb, err := makeThumbnail(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a readable image"})
		return nil, false
	}
	return &imageUpload{data: data, mimeType: mimeType, thumb: thumb}, true
}

// storeImage puts img and its thumbnail under key. Nothing is left behind
// when either put fails.
func storeImage(ctx context.Context, requestID string, key string, img *imageUpload) (thumbKey string, err error) {
	thumbKey = thumbnailObjectKey(key)
	if err := imageStore.Put(ctx, key, img.data, img.mimeType); err != nil {
		logUploadError(config.GetLogger(), err, "gcs", requestID)
		return "", errImageStore
	}
	if err := imageStore.Put(ctx, thumbKey, img.thumb, "image/jpeg"); err != nil {
		logUploadError(config.GetLogger(), err, "gcs", requestID)
		removeImageObjects(ctx, requestID, key)
		return "", errImageStore
	}
	return thumbKey, nil
}

// saveCompanyLogo stores img as the company's logo, replacing any earlier one.
func saveCompanyLogo(ctx context.Context, requestID string, companyId int, img *imageUpload) (*companyLogoResponse, error) {
	logoKey := logoObjectKey(companyId, extensionFromMimeType(img.mimeType))
	thumbKey, err := storeImage(ctx, requestID, logoKey, img)
	if err != nil {
		return nil, err
	}
	old, err := models.SetCompanyLogo(ctx, companyId, logoKey, thumbKey)
	if err != nil {
		removeImageObjects(ctx, requestID, logoKey, thumbKey)
		return nil, err
	}
	removeImageObjects(ctx, requestID, old.LogoKey, old.LogoThumbnailKey)
	return &companyLogoResponse{
		CompanyID:    companyId,
		LogoURL:      imageStore.URL(logoKey),
		ThumbnailURL: imageStore.URL(thumbKey),
	}, nil
}

func updateItemPictureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := requestIDFromHeaders(c)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes+multipartOverhead)

		img, ok := readImage(c, "File", "uploads", "updateItemPictureHandler")
		if !ok {
			return
		}
		itemID, err := strconv.Atoi(strings.TrimSpace(c.PostForm("ItemID")))
		if err != nil || itemID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ItemID is required"})
			return
		}

		ctx := c.Request.Context()
		if _, err := models.GetItem(ctx, itemID); err != nil {
			respondError(c, "uploads", "updateItemPictureHandler", err)
			return
		}

		companyId, _ := utils.GetCompanyIdFromContext(ctx)
		pictureKey := pictureObjectKey(companyId, extensionFromMimeType(img.mimeType))
		thumbKey, err := storeImage(ctx, requestID, pictureKey, img)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store picture"})
			return
		}

		old, err := models.SetItemPicture(ctx, itemID, pictureKey, thumbKey)
		if err != nil {
			removeImageObjects(ctx, requestID, pictureKey, thumbKey)
			respondError(c, "uploads", "updateItemPictureHandler", err)
			return
		}
		removeImageObjects(ctx, requestID, old.PictureKey, old.ThumbnailKey)

		c.JSON(http.StatusOK, itemPictureResponse{
			ItemID:       itemID,
			PictureURL:   imageStore.URL(pictureKey),
			ThumbnailURL: imageStore.URL(thumbKey),
		})
	}
}

// updateCompanyLogoHandler replaces the caller's company logo.
func updateCompanyLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes+multipartOverhead)

		img, ok := readImage(c, "File", "uploads", "updateCompanyLogoHandler")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		companyId, _ := utils.GetCompanyIdFromContext(ctx)
		res, err := saveCompanyLogo(ctx, requestIDFromHeaders(c), companyId, img)
		if errors.Is(err, errImageStore) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store logo"})
			return
		}
		if err != nil {
			respondError(c, "uploads", "updateCompanyLogoHandler", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// itemPictureURLHandler answers the picture (or thumbnail) URL as plain text.
func itemPictureURLHandler(thumbnail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		pictureKey, thumbKey, err := models.GetItemPicture(c.Request.Context(), id)
		if err != nil {
			respondError(c, "uploads", "itemPictureURLHandler", err)
			return
		}
		key := pictureKey
		if thumbnail {
			key = thumbKey
		}
		if key == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item has no picture"})
			return
		}
		c.String(http.StatusOK, imageStore.URL(key))
	}
}

// companyLogoURLHandler answers the logo (or thumbnail) URL as plain text.
// Logos are shown on the sign-in page, so no token is needed.
func companyLogoURLHandler(thumbnail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		logoKey, thumbKey, err := models.GetCompanyLogo(c.Request.Context(), id)
		if err != nil {
			respondError(c, "uploads", "companyLogoURLHandler", err)
			return
		}
		key := logoKey
		if thumbnail {
			key = thumbKey
		}
		if key == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company has no logo"})
			return
		}
		c.String(http.StatusOK, imageStore.URL(key))
	}
}

// makeThumbnail scales an image to thumbnailWidth, keeping the aspect ratio,
// and encodes it as JPEG.
func makeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumbnail := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pictureObjectKey(companyId int, ext string) string {
	return path.Join("items", strconv.Itoa(companyId), uuid.NewString()+ext)
}

func logoObjectKey(companyId int, ext string) string {
	return path.Join("companies", strconv.Itoa(companyId), uuid.NewString()+ext)
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := path.Base(objectKey)
	return path.Join(dir, "thumbnails", filename)
}

// removeImageObjects deletes stored objects; failures are only logged.
func removeImageObjects(ctx context.Context, requestID string, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := imageStore.Delete(ctx, key); err != nil {
			logUploadError(config.GetLogger(), err, "gcs", requestID)
		}
	}
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

func logUploadError(logger *logrus.Logger, err error, provider string, requestID string) {
	logger.WithFields(logrus.Fields{
		"error":      err.Error(),
		"provider":   provider,
		"request_id": requestID,
	}).Error("[upload.error]")
}

func requestIDFromHeaders(c *gin.Context) string {
	if id, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok && id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetHeader("X-Request-Id")); id != "" {
		return id
	}
	return fmt.Sprintf("upload-%d", time.Now().UnixNano())
}
