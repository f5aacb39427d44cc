package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
)

var ErrNotRecipient = errors.New("notification belongs to another user")

type NotificationPage struct {
	Items  []models.Notification `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type NotificationService struct {
	r       repo.Notifications
	devices repo.DeviceTokens
}

func NewNotificationService(r repo.Notifications, d repo.DeviceTokens) *NotificationService {
	return &NotificationService{r: r, devices: d}
}

func (s *NotificationService) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if !n.Type.Valid() {
		return models.Notification{}, ErrUnknownKind
	}
	return s.r.Create(ctx, n)
}

func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int, unreadOnly bool) (NotificationPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.r.ListByUser(ctx, userID, limit, offset, unreadOnly)
	if err != nil {
		return NotificationPage{}, err
	}
	return NotificationPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.r.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	n, err := s.r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotRecipient
	}
	if n.Read {
		return nil
	}
	return s.r.MarkRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.r.MarkAllRead(ctx, userID)
}

var ErrInvalidDeviceToken = errors.New("device token is required")

func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidDeviceToken
	}
	return s.devices.Register(ctx, userID, token)
}
