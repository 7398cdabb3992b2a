// Package settings — detector.go определяет, содержит ли сообщение
// слова из фильтра.
package settings

import "strings"

// DetectWords возвращает слова фильтра, встретившиеся в тексте,
// вместе с их баллами. Регистр не важен, поиск по вхождению подстроки.
func DetectWords(text string, words map[string]int) map[string]int {
	if len(words) == 0 || text == "" {
		return nil
	}

	lowered := strings.ToLower(text)
	var hits map[string]int
	for word, points := range words {
		if strings.Contains(lowered, strings.ToLower(word)) {
			if hits == nil {
				hits = make(map[string]int)
			}
			hits[word] = points
		}
	}
	return hits
}

// TotalPoints суммирует баллы по сработавшим словам.
func TotalPoints(hits map[string]int) int {
	total := 0
	for _, points := range hits {
		total += points
	}
	return total
}
