package telegram

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

const maxListedFailures = 10

const (
	msgRunOK     = "✅ Генерация масок и DensePose завершена"
	msgRunFailed = "⚠️ Генерация завершена с ошибками"
	msgRunAbort  = "❌ Генерация прервана"
)

// Notifier отправляет сводку запуска в Telegram-чат
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewNotifier создаёт бота по токену
func NewNotifier(token string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	return NewNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID, &http.Client{}, logger)
}

// NewNotifierWithEndpoint позволяет указать свой Bot API сервер
func NewNotifierWithEndpoint(token, endpoint string, chatID int64, client *http.Client, logger *zap.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("account", api.Self.UserName))

	return &Notifier{
		api:    api,
		chatID: chatID,
		logger: logger,
	}, nil
}

// NotifyRun отправляет итоги запуска
func (n *Notifier) NotifyRun(ctx context.Context, summary *entity.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(summary))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}

// FormatSummary текст сообщения со сводкой
func FormatSummary(s *entity.RunSummary) string {
	var b strings.Builder

	switch {
	case s.Aborted:
		b.WriteString(msgRunAbort)
	case s.Failed > 0:
		b.WriteString(msgRunFailed)
	default:
		b.WriteString(msgRunOK)
	}

	fmt.Fprintf(&b, "\n\n📄 Манифест: %s", filepath.Base(s.Manifest))
	fmt.Fprintf(&b, "\n🆔 Запуск: %s", s.RunID)
	fmt.Fprintf(&b, "\n📊 Всего: %d, готово: %d, ошибок: %d, пропущено: %d",
		s.Total, s.Succeeded, s.Failed, s.Skipped)
	if d := s.Duration(); d > 0 {
		fmt.Fprintf(&b, "\n⏱ Время: %s", d.Round(time.Second))
	}

	if len(s.Failures) > 0 {
		b.WriteString("\n\nОшибки:")
		for i, f := range s.Failures {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "\n• ... и ещё %d", len(s.Failures)-maxListedFailures)
				break
			}
			fmt.Fprintf(&b, "\n• строка %d (%s): %s", f.Pair.Line, f.Pair.Image, f.Code)
		}
	}
	return b.String()
}

var _ port.RunNotifier = (*Notifier)(nil)
