package matching

import (
	"time"

	"krutilka/internal/repository"
)

// Matcher сопоставляет наблюдаемую активность с бронью расписания.
// Платформа не сообщает, какой клиент крутил, поэтому сопоставление —
// эвристика: окно слота с допуском по времени плюс запасной поиск
// по имени атлета.
type Matcher struct {
	Grace time.Duration  // допуск по обе стороны окна слота
	Loc   *time.Location // зона, в которой живёт расписание
}

// NewMatcher создаёт Matcher с допуском окна grace
func NewMatcher(grace time.Duration, loc *time.Location) *Matcher {
	return &Matcher{Grace: grace, Loc: loc}
}

// window строит границы слота брони в локальной зоне
func (m *Matcher) window(b repository.BookedReservation) (time.Time, time.Time, bool) {
	start, err := repository.ParseClock(b.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := repository.ParseClock(b.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	y, mo, d := b.SlotDate.Date()
	from := time.Date(y, mo, d, start.Hour(), start.Minute(), 0, 0, m.Loc)
	to := time.Date(y, mo, d, end.Hour(), end.Minute(), 0, 0, m.Loc)
	return from, to, true
}

// inWindow проверяет попадание старта активности в расширенное окно слота
func (m *Matcher) inWindow(activityStart time.Time, b repository.BookedReservation) (time.Duration, bool) {
	from, to, ok := m.window(b)
	if !ok {
		return 0, false
	}
	if activityStart.Before(from.Add(-m.Grace)) || activityStart.After(to.Add(m.Grace)) {
		return 0, false
	}

	dist := activityStart.Sub(from)
	if dist < 0 {
		dist = -dist
	}
	return dist, true
}

// MatchByStand ищет среди кандидатов бронь, в чьё расширенное окно
// попадает старт активности. При нескольких попаданиях побеждает
// бронь с ближайшим началом слота.
func (m *Matcher) MatchByStand(activityStart time.Time, candidates []repository.BookedReservation) *repository.BookedReservation {
	var best *repository.BookedReservation
	var bestDist time.Duration

	for i := range candidates {
		dist, ok := m.inWindow(activityStart, candidates[i])
		if !ok {
			continue
		}
		if best == nil || dist < bestDist {
			best = &candidates[i]
			bestDist = dist
		}
	}
	return best
}

// MatchByName ищет бронь по имени атлета среди всех станков на дату.
// Нужен, когда клиент сел не на свой станок: привязка аккаунта к станку
// статична, а люди иногда меняются местами.
func (m *Matcher) MatchByName(activityStart time.Time, athleteName string, candidates []repository.BookedReservation) *repository.BookedReservation {
	if NormalizeName(athleteName) == "" {
		return nil
	}

	var best *repository.BookedReservation
	var bestDist time.Duration

	for i := range candidates {
		if !NamesMatch(candidates[i].ClientName, athleteName) {
			continue
		}
		dist, ok := m.inWindow(activityStart, candidates[i])
		if !ok {
			continue
		}
		if best == nil || dist < bestDist {
			best = &candidates[i]
			bestDist = dist
		}
	}
	return best
}

// Resolve выбирает между результатами поиска по станку и по имени.
// Если имя клиента станковой брони совпадает с именем атлета — станок
// надёжнее; иначе доверяем имени. Когда найден только один вариант,
// берётся он; когда оба пусты — активность остаётся без атрибуции.
func (m *Matcher) Resolve(standMatch, nameMatch *repository.BookedReservation, athleteName string) *repository.BookedReservation {
	switch {
	case standMatch != nil && nameMatch != nil:
		if athleteName == "" || NormalizeName(standMatch.ClientName) == NormalizeName(athleteName) {
			return standMatch
		}
		return nameMatch
	case standMatch != nil:
		return standMatch
	default:
		return nameMatch
	}
}
