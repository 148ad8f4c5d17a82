// Package matcher ищет ключевые слова в тексте сообщений чата.
package matcher

import (
	"strings"

	"github.com/samber/lo"
)

// FindMatch возвращает первое по порядку списка ключевое слово, которое
// без учёта регистра входит в text. Порядок вхождений в тексте не важен.
//
// Ключевые слова не обрезаются: строка из одних пробелов совпадёт с любым
// текстом, где есть пробел.
func FindMatch(text string, keywords []string) (string, bool) {
	if text == "" || len(keywords) == 0 {
		return "", false
	}

	lower := strings.ToLower(text)
	return lo.Find(keywords, func(keyword string) bool {
		return strings.Contains(lower, strings.ToLower(keyword))
	})
}
