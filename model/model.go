package model

import "time"

// UnknownSender подставляется вместо пустого имени автора или канала.
const UnknownSender = "Unknown"

// KeywordMatchType помечает сообщение о совпадении ключевого слова.
const KeywordMatchType = "KEYWORD_MATCH"

// ChatMessage описывает сообщение из живой ленты чата. Живёт только до проверки на совпадение.
type ChatMessage struct {
	ID       string
	Channel  string
	Username string
	Text     string
	SentAt   time.Time
}

// MatchEvent описывает найденное в сообщении ключевое слово.
// Keyword хранит написание из настроек, а не из текста сообщения.
type MatchEvent struct {
	Keyword  string
	Message  string
	Username string
	Channel  string
}

// KeywordMatchMessage передаёт MatchEvent от наблюдателя к нотификатору.
type KeywordMatchMessage struct {
	Type     string `json:"type"`
	Keyword  string `json:"keyword"`
	Message  string `json:"message"`
	Username string `json:"username"`
	Channel  string `json:"channel"`
}

// NewKeywordMatchMessage оборачивает событие в тегированное сообщение.
func NewKeywordMatchMessage(e MatchEvent) KeywordMatchMessage {
	return KeywordMatchMessage{
		Type:     KeywordMatchType,
		Keyword:  e.Keyword,
		Message:  e.Message,
		Username: e.Username,
		Channel:  e.Channel,
	}
}

// Event возвращает MatchEvent из сообщения.
func (m KeywordMatchMessage) Event() MatchEvent {
	return MatchEvent{
		Keyword:  m.Keyword,
		Message:  m.Message,
		Username: m.Username,
		Channel:  m.Channel,
	}
}

// Notification описывает запрос на показ системного уведомления.
type Notification struct {
	Type     string `json:"type"`
	IconURL  string `json:"iconUrl"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}
