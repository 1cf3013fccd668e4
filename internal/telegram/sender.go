package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender отправляет сообщения и документы через бота.
// Ядро только шлёт: разбор входящих апдейтов живёт в ботах-фронтах.
type Sender struct {
	bot *tgbotapi.BotAPI
}

// NewSender создаёт отправителя по токену бота
func NewSender(token string) (*Sender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Sender{bot: bot}, nil
}

// SendMessage отправляет текстовое сообщение
func (s *Sender) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := s.bot.Send(msg)
	return err
}

// SendDocument отправляет файл с диска с подписью
func (s *Sender) SendDocument(chatID int64, path, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	_, err := s.bot.Send(doc)
	return err
}

// SendDocumentBytes отправляет файл из памяти с подписью
func (s *Sender) SendDocumentBytes(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := s.bot.Send(doc)
	return err
}
