package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"post-it/auth"
	"post-it/contract"
	"post-it/domain"
	"post-it/errors"
	"post-it/services"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/lo"
)

// RoleChecker verifies that a credential carries a given role.
type RoleChecker interface {
	RequireRole(credential, role string) (domain.UserID, error)
}

type NotificationRequest struct {
	Type     domain.NotificationType `json:"type" validate:"required,oneof=like comment new-post"`
	ActorID  domain.UserID           `json:"actorId" validate:"required"`
	TargetID string                  `json:"targetId" validate:"required"`
	OwnerID  domain.UserID           `json:"ownerId" validate:"required"`
}

type MessageRequest struct {
	SenderID    domain.UserID `json:"senderId" validate:"required,excludes=:"`
	RecipientID domain.UserID `json:"recipientId" validate:"required,excludes=:"`
	Body        string        `json:"body" validate:"required"`
}

type ReceiptResponse struct {
	MessageID      string                `json:"messageId,omitempty"`
	ConversationID domain.ConversationID `json:"conversationId,omitempty"`
	Status         domain.DeliveryStatus `json:"status"`
	Timestamp      time.Time             `json:"timestamp"`
}

type MessageView struct {
	ID             string                `json:"id"`
	ConversationID domain.ConversationID `json:"conversationId"`
	SenderID       domain.UserID         `json:"senderId"`
	RecipientID    domain.UserID         `json:"recipientId"`
	Body           string                `json:"body"`
	CreatedAt      time.Time             `json:"createdAt"`
	Read           bool                  `json:"read"`
}

type MessagesResponse struct {
	Messages []MessageView `json:"messages"`
	Cursor   *string       `json:"cursor,omitempty"`
}

type PresenceResponse struct {
	UserID   domain.UserID `json:"userId"`
	Online   bool          `json:"online"`
	Sessions int           `json:"sessions"`
}

// API serves the collaborators of the realtime layer: the REST handlers call it
// after their own writes, and clients reach the socket through it.
type API struct {
	log           *slog.Logger
	roles         RoleChecker
	notifications services.INotificationService
	messages      services.IDirectMessageService
	registry      contract.IPresenceRegistry
	maxBodyBytes  int64
	now           func() time.Time
}

func NewAPI(log *slog.Logger, roles RoleChecker, notifications services.INotificationService,
	messages services.IDirectMessageService, registry contract.IPresenceRegistry, maxBodyBytes int64) *API {
	return &API{
		log:           log,
		roles:         roles,
		notifications: notifications,
		messages:      messages,
		registry:      registry,
		maxBodyBytes:  maxBodyBytes,
		now:           time.Now,
	}
}

// Router mounts the session endpoint next to the ingestion routes.
func (a *API) Router(sessions http.Handler) *httprouter.Router {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/ws", sessions)
	router.GET("/health", a.handleHealth)

	router.POST("/internal/notifications", a.requireService(a.handleNotification))
	router.POST("/internal/messages", a.requireService(a.handleMessage))
	router.GET("/internal/conversations/:id/messages", a.requireService(a.handleMessages))
	router.GET("/internal/presence/:userId", a.requireService(a.handlePresence))
	return router
}

func (a *API) requireService(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		caller, err := a.roles.RequireRole(auth.CredentialFromRequest(r), auth.RoleService)
		if err != nil {
			a.log.Debug("Ingestion call refused", "path", r.URL.Path, "error", err)
			a.writeError(w, err)
			return
		}
		a.log.Debug("Ingestion call", "path", r.URL.Path, "caller", caller)
		next(w, r, ps)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	a.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": a.now().UTC()})
}

func (a *API) handleNotification(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body NotificationRequest
	if err := a.decode(w, r, &body); err != nil {
		a.writeError(w, err)
		return
	}
	err := a.notifications.RecordAndNotify(r.Context(), body.Type, body.ActorID, body.TargetID, body.OwnerID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleMessage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body MessageRequest
	if err := a.decode(w, r, &body); err != nil {
		a.writeError(w, err)
		return
	}
	receipt, err := a.messages.Send(r.Context(), body.SenderID, body.RecipientID, body.Body)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, ReceiptResponse{
		MessageID:      receipt.MessageID.String(),
		ConversationID: receipt.ConversationID,
		Status:         receipt.Status,
		Timestamp:      receipt.At,
	})
}

func (a *API) handleMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := a.messages.History(r.Context(), domain.ConversationID(ps.ByName("id")), cursor)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, MessagesResponse{
		Messages: lo.Map(messages, func(m domain.Message, _ int) MessageView {
			return MessageView{
				ID:             m.ID.String(),
				ConversationID: m.ConversationID,
				SenderID:       m.SenderID,
				RecipientID:    m.RecipientID,
				Body:           m.Body,
				CreatedAt:      m.CreatedAt,
				Read:           m.Read,
			}
		}),
		Cursor: next,
	})
}

func (a *API) handlePresence(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	userID := domain.UserID(ps.ByName("userId"))
	sessions := a.registry.Lookup(userID)
	a.writeJSON(w, http.StatusOK, PresenceResponse{UserID: userID, Online: len(sessions) > 0, Sessions: len(sessions)})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return auth.ValidatePayload(target)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("Ingestion call failed", "status", status, "error", err)
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Warn("Response not written", "error", err)
	}
}
