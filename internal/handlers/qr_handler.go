package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/classbank/backend/internal/services"
)

type QRHandler struct {
	service   *services.QRService
	validator *services.ValidationHelper
}

func NewQRHandler(service *services.QRService) *QRHandler {
	return &QRHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GenerateReceiveQR issues a receive code for the caller's account
// @Summary Generate receive QR
// @Description Generate a short-lived QR code identifying the caller as a transfer target
// @Tags QR
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{code=string,qrImage=string}
// @Failure 401 {object} services.ErrorResponse
// @Router /qr/receive [post]
func (h *QRHandler) GenerateReceiveQR(w http.ResponseWriter, r *http.Request) {
	accountID, ok := services.CallerID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	code, qrImage, err := h.service.GenerateReceiveCode(r.Context(), accountID)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"code":    code,
		"qrImage": qrImage,
	})
}

// ResolveReceiveQR resolves a scanned receive code
// @Summary Resolve receive QR
// @Description Resolve a scanned receive code to its transfer target
// @Tags QR
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{code=string} true "Scanned code"
// @Success 200 {object} object{accountId=int64,username=string}
// @Failure 400 {object} services.ErrorResponse
// @Router /qr/resolve [post]
func (h *QRHandler) ResolveReceiveQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.ResolveReceiveCode(r.Context(), req.Code)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    result,
	})
}
