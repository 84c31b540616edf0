package accesskey

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/platform/httpx"
	"github.com/gatewarden/gatewarden/internal/shared"
)

// Handler wires the access key endpoints: redemption and revocation for
// users, issue and lifecycle management for administrators.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountUserRoutes registers the identity-scoped redemption routes.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/", h.listMyRedemptions)
	r.Post("/", h.redeem)
	r.Delete("/{id}", h.revoke)
}

// MountAdminRoutes registers key management routes. The caller mounts these
// behind the admin role check; the service itself does not re-check caller
// identity.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.listKeys)
	r.Post("/", h.issue)
	r.Patch("/{id}", h.setActive)
	r.Delete("/{id}", h.deleteKey)
}

type keyResponse struct {
	ID           uuid.UUID  `json:"id"`
	Token        string     `json:"token,omitempty"`
	TokenHint    string     `json:"tokenHint,omitempty"`
	Name         string     `json:"name"`
	IsActive     bool       `json:"isActive"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	TargetUserID *uuid.UUID `json:"targetUserId,omitempty"`
	Permissions  []string   `json:"permissions,omitempty"`
	MenuPaths    []string   `json:"menuPaths,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// toKeyResponse renders a key. The plaintext token is included only on
// issue; every other view carries a hint of the first segment.
func toKeyResponse(k AccessKey, includeToken bool) keyResponse {
	resp := keyResponse{
		ID:           k.ID,
		Name:         k.Name,
		IsActive:     k.IsActive,
		ExpiresAt:    k.ExpiresAt,
		TargetUserID: k.TargetUserID,
		Permissions:  k.Permissions,
		MenuPaths:    k.MenuPaths,
		CreatedAt:    k.CreatedAt,
	}
	if includeToken {
		resp.Token = k.Token
	} else {
		resp.TokenHint = maskToken(k.Token)
	}
	return resp
}

func maskToken(token string) string {
	if i := strings.IndexByte(token, '-'); i > 0 {
		return token[:i] + "-…"
	}
	return ""
}

type redemptionResponse struct {
	ID          uuid.UUID   `json:"id"`
	ActivatedAt time.Time   `json:"activatedAt"`
	Key         keyResponse `json:"key"`
}

func toRedemptionResponse(red Redemption) redemptionResponse {
	return redemptionResponse{
		ID:          red.ID,
		ActivatedAt: red.ActivatedAt,
		Key:         toKeyResponse(red.Key, false),
	}
}

type issueRequest struct {
	Name         string     `json:"name" validate:"required"`
	ExpiresAt    time.Time  `json:"expiresAt" validate:"required"`
	TargetUserID *uuid.UUID `json:"targetUserId,omitempty"`
	Permissions  []string   `json:"permissions,omitempty"`
	MenuPaths    []string   `json:"menuPaths,omitempty"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	key, err := h.service.Issue(r.Context(), actor.UserID, IssueInput{
		Name:         req.Name,
		ExpiresAt:    req.ExpiresAt,
		TargetUserID: req.TargetUserID,
		Permissions:  req.Permissions,
		MenuPaths:    req.MenuPaths,
	})
	if err != nil {
		h.respondDomainError(w, "issue access key", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"accessKey": toKeyResponse(key, true)})
}

func (h *Handler) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.ListKeys(r.Context())
	if err != nil {
		h.respondDomainError(w, "list access keys", err)
		return
	}
	out := make([]keyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toKeyResponse(k, false))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accessKeys": out})
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid key id")
		return
	}
	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "isActive is required")
		return
	}
	key, err := h.service.SetActive(r.Context(), id, *req.IsActive)
	if err != nil {
		h.respondDomainError(w, "toggle access key", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accessKey": toKeyResponse(key, false)})
}

func (h *Handler) deleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid key id")
		return
	}
	if err := h.service.DeleteKey(r.Context(), id); err != nil {
		h.respondDomainError(w, "delete access key", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) listMyRedemptions(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	reds, err := h.service.ListUserRedemptions(r.Context(), id.UserID)
	if err != nil {
		h.respondDomainError(w, "list redemptions", err)
		return
	}
	out := make([]redemptionResponse, 0, len(reds))
	for _, red := range reds {
		out = append(out, toRedemptionResponse(red))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"redemptions": out})
}

type redeemRequest struct {
	Key string `json:"key" validate:"required"`
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req redeemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "key is required")
		return
	}
	red, err := h.service.Redeem(r.Context(), id.UserID, req.Key)
	if err != nil {
		h.respondDomainError(w, "redeem access key", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"redemption": toRedemptionResponse(red)})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	redemptionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid redemption id")
		return
	}
	if err := h.service.RevokeRedemption(r.Context(), id.UserID, redemptionID); err != nil {
		h.respondDomainError(w, "revoke redemption", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// respondDomainError maps the redemption-path taxonomy to stable response
// classes: unknown token 404, inactive/expired/wrong-recipient 403, already
// redeemed 409, validation 400. Messages stay distinct so clients can show
// precise feedback.
func (h *Handler) respondDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidKey):
		httpx.Problem(w, http.StatusNotFound, "Invalid Access Key", "no access key matches the submitted token")
	case errors.Is(err, ErrKeyInactive):
		httpx.Problem(w, http.StatusForbidden, "Key Deactivated", "this access key has been deactivated")
	case errors.Is(err, ErrKeyExpired):
		httpx.Problem(w, http.StatusForbidden, "Key Expired", "this access key has expired")
	case errors.Is(err, ErrWrongRecipient):
		httpx.Problem(w, http.StatusForbidden, "Wrong Recipient", "this access key was issued to another user")
	case errors.Is(err, ErrAlreadyRedeemed):
		httpx.Problem(w, http.StatusConflict, "Already Redeemed", "you have already redeemed this access key")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
