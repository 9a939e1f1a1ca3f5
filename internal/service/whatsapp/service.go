package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	client "github.com/mamadbah2/inventory/pkg/clients/whatsapp"
)

// ErrDisabled is returned when no WhatsApp credentials are configured.
var ErrDisabled = errors.New("whatsapp messaging is not configured")

// MessagingService sends operator notifications.
type MessagingService interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
	SendAlert(ctx context.Context, req models.AlertRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	client client.Sender
	logger *zap.Logger
}

var _ MessagingService = (*MetaWhatsAppService)(nil)

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(c client.Sender, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaWhatsAppService{client: c, logger: logger}
}

// SendOutbound pushes a text message to one recipient.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, client.Message{To: req.To, Body: req.Message, PreviewURL: req.PreviewURL})
}

// SendAlert renders the alert and sends it to its recipient.
func (s *MetaWhatsAppService) SendAlert(ctx context.Context, req models.AlertRequest) error {
	return s.send(ctx, client.Message{To: req.To, Body: RenderAlert(req)})
}

func (s *MetaWhatsAppService) send(ctx context.Context, msg client.Message) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	id, err := s.client.SendText(ctxWithTimeout, msg)
	if err != nil {
		return err
	}
	s.logger.Debug("outbound message sent", zap.String("to", msg.To), zap.String("message_id", id))
	return nil
}

// RenderAlert formats an alert as a bold title and its lines. Lines that would push the
// body past the API limit are replaced by a count of what was left out.
func RenderAlert(req models.AlertRequest) string {
	var b strings.Builder
	if req.Title != "" {
		b.WriteString("*" + req.Title + "*")
	}
	for i, line := range req.Lines {
		more := fmt.Sprintf("\n... and %d more", len(req.Lines)-i)
		reserve := len(more)
		if i == len(req.Lines)-1 {
			reserve = 0
		}
		if len([]rune(b.String()))+1+len([]rune(line))+reserve > client.MaxBodyLength {
			b.WriteString(more)
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// DisabledService refuses every message. It stands in when WhatsApp is not configured.
type DisabledService struct{}

func (DisabledService) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return ErrDisabled
}

func (DisabledService) SendAlert(context.Context, models.AlertRequest) error {
	return ErrDisabled
}
