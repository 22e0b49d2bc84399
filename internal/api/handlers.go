package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/detect"
	"github.com/harrylevesque/txt2qr/internal/models"
	"github.com/harrylevesque/txt2qr/internal/ocr"
	"github.com/harrylevesque/txt2qr/internal/platform"
	"github.com/harrylevesque/txt2qr/internal/premium"
	"github.com/harrylevesque/txt2qr/internal/render"
	"github.com/harrylevesque/txt2qr/internal/service"
	"github.com/harrylevesque/txt2qr/internal/upload"
	"github.com/harrylevesque/txt2qr/internal/utils"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 50 << 20
)

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		utils.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// parseType reads an optional content type; empty means classify.
func parseType(w http.ResponseWriter, s string) (models.ContentType, bool) {
	if s == "" {
		return "", true
	}
	typ, err := detect.ParseContentType(s)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return typ, true
}

// GetTimeHandler returns the current server time in RFC3339 format
func (h *Handler) GetTimeHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"time": h.now().Format(time.RFC3339)})
}

func (h *Handler) CapabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, platform.Summarize(h.app.Platform))
}

type textRequest struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

type classifyResponse struct {
	Type      models.ContentType `json:"type"`
	Formatted string             `json:"formatted"`
	Label     detect.Label       `json:"label"`
}

func (h *Handler) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, maxJSONBody, &req) {
		return
	}
	typ := detect.Classify(req.Text)
	utils.WriteJSON(w, http.StatusOK, classifyResponse{
		Type:      typ,
		Formatted: detect.Format(req.Text, typ),
		Label:     detect.Describe(typ),
	})
}

type qrRequest struct {
	Text   string `json:"text"`
	Type   string `json:"type,omitempty"`
	Size   int    `json:"size,omitempty"`
	FG     string `json:"fg,omitempty"`
	BG     string `json:"bg,omitempty"`
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

// QRHandler renders the formatted text as PNG (default) or SVG.
func (h *Handler) QRHandler(w http.ResponseWriter, r *http.Request) {
	var req qrRequest
	if !decode(w, r, maxJSONBody, &req) {
		return
	}
	typ, ok := parseType(w, req.Type)
	if !ok {
		return
	}
	if typ == "" {
		typ = detect.Classify(req.Text)
	}
	code, err := render.Render(detect.Format(req.Text, typ), render.Options{
		Size:       req.Size,
		Foreground: req.FG,
		Background: req.BG,
		Level:      req.Level,
	})
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("X-Content-Type-Detected", string(typ))
	switch strings.ToLower(req.Format) {
	case "", "png":
		out, err := code.PNG()
		if err != nil {
			h.log.Error("render png", zap.Error(err))
			utils.WriteError(w, http.StatusInternalServerError, "could not render QR code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(out)
	case "svg":
		out, err := code.SVG()
		if err != nil {
			h.log.Error("render svg", zap.Error(err))
			utils.WriteError(w, http.StatusInternalServerError, "could not render QR code")
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		io.WriteString(w, out)
	default:
		w.Header().Del("X-Content-Type-Detected")
		utils.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", req.Format))
	}
}

func (h *Handler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, maxJSONBody, &req) {
		return
	}
	typ, ok := parseType(w, req.Type)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.app.Service.Preview(req.Text, typ))
}

func (h *Handler) GetPreviewHandler(w http.ResponseWriter, r *http.Request) {
	cur := h.app.Service.Current()
	if cur == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cur)
}

func (h *Handler) DismissPreviewHandler(w http.ResponseWriter, r *http.Request) {
	h.app.Service.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.app.History.List())
}

type saveRequest struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
	SVG  bool   `json:"svg,omitempty"`
}

func (h *Handler) SaveHistoryHandler(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decode(w, r, maxJSONBody, &req) {
		return
	}
	typ, ok := parseType(w, req.Type)
	if !ok {
		return
	}
	saved, err := h.app.Service.Save(r.Context(), req.Text, typ, req.SVG)
	if errors.Is(err, service.ErrEmptyText) {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error("save qr", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "could not save QR code")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.app.History.Get(mux.Vars(r)["id"])
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "record not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, rec)
}

// DeleteHistoryHandler removes one record. Unknown ids succeed too.
func (h *Handler) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.app.History.Remove(r.Context(), mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.app.History.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type ocrRequest struct {
	Image string `json:"image"`
}

type ocrResponse struct {
	service.Preview
	Progress []string `json:"progress"`
}

// OCRHandler extracts text from a base64 image and previews it. Failures
// the user can fix by retaking the photo come back as 422 with retry set.
func (h *Handler) OCRHandler(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	maxImage := h.app.Config.OCR.MaxImageBytes
	if maxImage <= 0 {
		maxImage = ocr.DefaultMaxImageBytes
	}
	limit := int64(maxImage)*2 + maxJSONBody
	if !decode(w, r, limit, &req) {
		return
	}
	var progress []string
	p, err := h.app.Service.Scan(r.Context(), req.Image, func(s string) { progress = append(progress, s) })
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrEmptyImage):
			utils.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ocr.ErrImageTooLarge):
			utils.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			utils.WriteJSON(w, http.StatusUnprocessableEntity, &utils.APIError{
				Code:    http.StatusUnprocessableEntity,
				Message: err.Error(),
				Retry:   true,
			})
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, ocrResponse{Preview: p, Progress: progress})
}

type uploadResponse struct {
	upload.Result
	SizeLabel string `json:"sizeLabel"`
}

// UploadHandler stores the multipart "file" field and returns its link.
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if h.app.Uploader == nil {
		utils.WriteError(w, http.StatusServiceUnavailable, upload.ErrNotConfigured.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	res, err := h.app.Uploader.Upload(r.Context(), header.Filename, file, nil)
	if err != nil {
		if errors.Is(err, upload.ErrEmptyName) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusCreated, uploadResponse{Result: res, SizeLabel: upload.FormatFileSize(res.FileSize)})
}

type premiumResponse struct {
	Premium   bool `json:"premium"`
	Purchases bool `json:"purchases"`
}

func (h *Handler) PremiumStatusHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, premiumResponse{
		Premium:   h.app.Premium.IsPremium(),
		Purchases: h.app.Platform.Purchases(),
	})
}

type purchaseRequest struct {
	Receipt string `json:"receipt"`
}

func (h *Handler) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decode(w, r, maxJSONBody, &req) {
		return
	}
	err := h.app.Premium.Purchase(r.Context(), req.Receipt)
	switch {
	case err == nil:
		h.app.Ads.ResetCount()
		utils.WriteJSON(w, http.StatusOK, premiumResponse{Premium: true, Purchases: true})
	case errors.Is(err, premium.ErrAlreadyPremium):
		utils.WriteError(w, http.StatusConflict, "You already have premium access!")
	case errors.Is(err, premium.ErrStoreUnavailable):
		utils.WriteError(w, http.StatusServiceUnavailable, "Store connection not ready. Please try again.")
	case errors.Is(err, premium.ErrInvalidReceipt):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("purchase", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Could not complete purchase. Please try again.")
	}
}

type restoreResponse struct {
	Premium bool   `json:"premium"`
	Message string `json:"message"`
}

func (h *Handler) RestoreHandler(w http.ResponseWriter, r *http.Request) {
	resp := restoreResponse{Message: "No previous purchases to restore."}
	if h.app.Premium.Restore(r.Context()) {
		resp = restoreResponse{Premium: true, Message: "Your premium access has been restored."}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

type adResponse struct {
	Show    bool   `json:"show"`
	Network string `json:"network"`
	Count   int    `json:"count"`
}

// NextAdHandler reports whether the next save will be followed by an interstitial.
func (h *Handler) NextAdHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, adResponse{
		Show:    h.app.Ads.Next(),
		Network: h.app.Platform.AdNetwork(),
		Count:   h.app.Ads.Count(),
	})
}
