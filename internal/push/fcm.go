package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"
)

// ErrInvalidToken means the device token is no longer registered with FCM
// and should be dropped rather than retried.
var ErrInvalidToken = errors.New("push: device token not registered")

// Sender delivers one push notification to one device.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

type FCM struct {
	client *messaging.Client
}

// NewFCM builds a Firebase Cloud Messaging sender from a service account file.
func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCM{client: client}, nil
}

func (f *FCM) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := f.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
