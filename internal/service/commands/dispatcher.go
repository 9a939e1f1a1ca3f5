package commands

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// Recorder records the movement a command describes.
type Recorder interface {
	RecordTransaction(ctx context.Context, req models.RecordTransactionRequest) (*models.RecordResult, error)
}

// Translator rewrites free text into the command grammar.
type Translator interface {
	TranslateToCommand(ctx context.Context, input string) (string, error)
}

// Dispatcher executes typed or transcribed stock commands.
type Dispatcher interface {
	Execute(ctx context.Context, text string) (*models.RecordResult, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	recorder   Recorder
	translator Translator
	logger     *zap.Logger
}

var _ Dispatcher = (*Service)(nil)

// NewService constructs a command dispatcher. translator may be nil.
func NewService(recorder Recorder, translator Translator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		recorder:   recorder,
		translator: translator,
		logger:     logger,
	}
}

// Execute parses text and records the matching purchase or sale. Text outside the
// grammar is translated once when a translator is configured.
func (s *Service) Execute(ctx context.Context, text string) (*models.RecordResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("text", "is required")
	}

	cmd := models.ParseCommand(text)
	if cmd.Type == models.CommandUnknown {
		cmd = s.translate(ctx, text)
	}
	if cmd.Type == models.CommandUnknown {
		return nil, models.NewValidationError("text", "could not be understood. "+models.CommandHelp)
	}

	s.logger.Debug("dispatching command",
		zap.String("command", string(cmd.Type)),
		zap.String("product", cmd.Product),
		zap.Int("quantity", cmd.Quantity),
		zap.Float64("unit_price", cmd.UnitPrice))

	quantity, price := cmd.Quantity, cmd.UnitPrice
	return s.recorder.RecordTransaction(ctx, models.RecordTransactionRequest{
		Product:   cmd.Product,
		Quantity:  &quantity,
		UnitPrice: &price,
		Type:      string(cmd.TransactionType()),
	})
}

func (s *Service) translate(ctx context.Context, text string) models.Command {
	unknown := models.Command{Type: models.CommandUnknown, Raw: text}
	if s.translator == nil {
		return unknown
	}

	translated, err := s.translator.TranslateToCommand(ctx, text)
	if err != nil {
		s.logger.Warn("command translation failed", zap.Error(err))
		return unknown
	}
	s.logger.Debug("command translated", zap.String("input", text), zap.String("command", translated))
	return models.ParseCommand(translated)
}
