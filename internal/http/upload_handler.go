package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/placement"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultSlot        = "design"
	multipartMemory    = 8 << 20
	DefaultPreviewSize = 600
	minPreviewSize     = 64
	maxPreviewSize     = 1200
)

// Consumers define this interface
type ImageLibrary interface {
	Ingest(ctx context.Context, key string, data []byte, mimeType string, mirror bool) (*domain.NormalizedImage, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.NormalizedImage, error)
	SlotStatus(key string) (*domain.NormalizedImage, bool)
	Release(ctx context.Context, ref string)
}

type UploadHandler struct {
	images    ImageLibrary
	limiter   *keyedLimiter
	log       *zap.Logger
	timeout   time.Duration
	maxUpload int64
}

func NewUploadHandler(images ImageLibrary, log *zap.Logger, timeout time.Duration, maxUpload int64, perMinute, burst int) *UploadHandler {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &UploadHandler{
		images:    images,
		limiter:   newKeyedLimiter(limit, burst),
		log:       log,
		timeout:   timeout,
		maxUpload: maxUpload,
	}
}

type UploadResponse struct {
	*domain.NormalizedImage
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
}

// Upload normalizes the multipart "file" into the editing slot named by the
// "slot" field. A newer upload to the same slot wins; the older request gets
// 409.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r.Context())
	if !h.limiter.Allow(sid) {
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many uploads, try again shortly")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := parseForm(w, r, h.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	data, mimeType, ok, err := formFile(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_file", "file is required")
		return
	}

	slot, _ := formValue(r, "slot")
	if slot == "" {
		slot = defaultSlot
	}

	img, err := h.images.Ingest(ctx, sid+":"+slot, data, mimeType, false)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, uploadResponse(img))
}

func uploadResponse(img *domain.NormalizedImage) *UploadResponse {
	return &UploadResponse{
		NormalizedImage: img,
		URL:             imageURL(img),
		PreviewURL:      "/api/v1/uploads/" + img.ID.String() + "/preview",
	}
}

type SlotStatusResponse struct {
	Slot  string          `json:"slot"`
	Busy  bool            `json:"busy"`
	Image *UploadResponse `json:"image"`
}

// SlotStatus tells the editor whether an upload is still being normalized in
// one of the caller's slots and which image the slot currently holds.
func (h *UploadHandler) SlotStatus(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	img, busy := h.images.SlotStatus(getSessionID(r.Context()) + ":" + slot)

	resp := &SlotStatusResponse{Slot: slot, Busy: busy}
	if img != nil {
		resp.Image = uploadResponse(img)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "image id must be a UUID")
		return
	}
	img, err := h.images.Get(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondPNG(w, img.Data)
}

// Preview renders the image on a product mockup with the transform given by
// ?scale=&x=&y=, on a ?size= pixel canvas.
func (h *UploadHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "image id must be a UUID")
		return
	}
	q := r.URL.Query()
	t := domain.NewPlacementTransform(
		queryInt(q.Get("scale"), domain.DefaultScale),
		queryInt(q.Get("x"), domain.DefaultOffset),
		queryInt(q.Get("y"), domain.DefaultOffset),
	)
	size := previewSize(q.Get("size"))

	img, err := h.images.Get(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	out, err := renderPreview(img, t, size)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondPNG(w, out)
}

func renderPreview(img *domain.NormalizedImage, t domain.PlacementTransform, size int) ([]byte, error) {
	design, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("decode stored image %s: %w", img.ID, err)
	}

	canvas := placement.Render(size, design, t)
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

func previewSize(raw string) int {
	size := queryInt(raw, DefaultPreviewSize)
	if size < minPreviewSize {
		return minPreviewSize
	}
	if size > maxPreviewSize {
		return maxPreviewSize
	}
	return size
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// imageURL prefers the CDN copy when one exists.
func imageURL(img *domain.NormalizedImage) string {
	if img.MirrorURL != "" {
		return img.MirrorURL
	}
	return "/api/v1/uploads/" + img.ID.String()
}

// parseForm parses a multipart or urlencoded body of at most limit bytes.
func parseForm(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return fmt.Errorf("invalid multipart body: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form body: %w", err)
	}
	return nil
}

func formValue(r *http.Request, key string) (string, bool) {
	vals, ok := r.PostForm[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return strings.TrimSpace(vals[0]), true
}

// formFile reads an uploaded file. ok is false when the field is absent.
func formFile(r *http.Request, field string) (data []byte, mimeType string, ok bool, err error) {
	if r.MultipartForm == nil {
		return nil, "", false, nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("read %s: %w", field, err)
	}
	defer f.Close()

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, "", false, fmt.Errorf("read %s: %w", field, err)
	}

	mimeType = hdr.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		// let the decoder sniff formats the detector does not know, such as TIFF
		mimeType = ""
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			mimeType = sniffed
		}
	}
	return data, mimeType, true, nil
}
