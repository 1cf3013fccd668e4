package matching

import "strings"

// NormalizeName приводит имя к сравнимому виду:
// нижний регистр, ё → е, схлопнутые пробелы
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "ё", "е")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens разбивает нормализованное имя на слова
func Tokens(name string) []string {
	return strings.Fields(NormalizeName(name))
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// NamesMatch сравнивает имя клиента из расписания с именем атлета,
// которое сообщила платформа. Совпадением считается точное равенство
// нормализованных имён, равенство множеств слов ("Иванов Пётр" и
// "Петр Иванов") или вхождение всех слов клиента в имя атлета.
func NamesMatch(clientName, athleteName string) bool {
	client := NormalizeName(clientName)
	athlete := NormalizeName(athleteName)
	if client == "" || athlete == "" {
		return false
	}
	if client == athlete {
		return true
	}

	clientTokens := Tokens(clientName)
	athleteSet := tokenSet(Tokens(athleteName))
	for _, t := range clientTokens {
		if !athleteSet[t] {
			return false
		}
	}
	return true
}
