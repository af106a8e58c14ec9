package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"textalert/internal/logger"
	"textalert/pkg/models"
)

// DefaultUserID addresses the mailbox of the authenticated account.
const DefaultUserID = "me"

// GmailConfig holds the OAuth client credentials used for dispatch.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// AccessToken is used as-is only when no refresh token is configured,
	// since a pre-issued token has no known expiry.
	AccessToken string

	// UserID is the sending mailbox, "me" when empty.
	UserID string
}

// Gmail sends notifications through the Gmail API.
type Gmail struct {
	service *gmail.Service
	userID  string
	log     zerolog.Logger
}

// NewGmail creates a Gmail mailer. ctx scopes the token refresh HTTP client and
// should live as long as the mailer.
func NewGmail(ctx context.Context, cfg GmailConfig, opts ...option.ClientOption) (*Gmail, error) {
	const op = "NewGmail"

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%s: %w: client id and client secret are required", op, ErrMissingCredentials)
	}
	if cfg.RefreshToken == "" && cfg.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: a refresh token or access token is required", op, ErrMissingCredentials)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}

	token := &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"}
	if cfg.RefreshToken == "" {
		token.AccessToken = cfg.AccessToken
	}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(oauthCfg.Client(ctx, token))}, opts...)
	service, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create gmail service: %w", op, err)
	}

	return newGmailWithService(service, cfg.UserID), nil
}

func newGmailWithService(service *gmail.Service, userID string) *Gmail {
	if userID == "" {
		userID = DefaultUserID
	}
	return &Gmail{
		service: service,
		userID:  userID,
		log:     logger.WithComponent("gmail"),
	}
}

// Send delivers msg as a single Gmail message.
func (g *Gmail) Send(ctx context.Context, msg models.NotificationMessage) error {
	const op = "Send"

	raw := base64.URLEncoding.EncodeToString(BuildRawMessage(msg))

	sent, err := g.service.Users.Messages.Send(g.userID, &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: gmail send to %s: %w", op, msg.Recipient, err)
	}

	g.log.Debug().
		Str("message_id", sent.Id).
		Str("recipient", msg.Recipient).
		Msg("Gmail message sent")

	return nil
}

// BuildRawMessage renders msg as an RFC 5322 message with a base64 encoded body.
func BuildRawMessage(msg models.NotificationMessage) []byte {
	contentType := msg.ContentType
	if contentType == "" {
		contentType = ContentTypePlain
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", msg.Sender)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString([]byte(msg.Body))
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")

	return buf.Bytes()
}
