package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"krutilka/internal/accounts"
	"krutilka/internal/intervals"
	"krutilka/internal/matching"
	"krutilka/internal/repository"
	"krutilka/internal/strava"
	"krutilka/internal/telegram"
	"krutilka/internal/wattattack"
)

// Reconciler прогоняет цикл «лента → сопоставление → архив → доставка
// → леджер» по всем аккаунтам. Безопасен для частых повторных запусков:
// леджер отсекает уже обработанные активности, а флаги доставки не дают
// переслать уже доставленное.
type Reconciler struct {
	repos      *repository.Repository
	watt       *wattattack.Client
	strava     *strava.Client
	intervals  *intervals.Client
	clientBot  *telegram.Sender
	adminBot   *telegram.Sender
	adminChat  int64
	registry   *accounts.Registry
	matcher    *matching.Matcher
	archive    *Archive
	loc        *time.Location
	fitWait    time.Duration
	log        *zap.Logger
}

// ReconcilerDeps — зависимости реконсилятора
type ReconcilerDeps struct {
	Repos     *repository.Repository
	Watt      *wattattack.Client
	Strava    *strava.Client
	Intervals *intervals.Client
	ClientBot *telegram.Sender
	AdminBot  *telegram.Sender
	AdminChat int64
	Registry  *accounts.Registry
	Matcher   *matching.Matcher
	Archive   *Archive
	Location  *time.Location
	FitWait   time.Duration
	Log       *zap.Logger
}

// NewReconciler создаёт реконсилятор
func NewReconciler(d ReconcilerDeps) *Reconciler {
	return &Reconciler{
		repos:     d.Repos,
		watt:      d.Watt,
		strava:    d.Strava,
		intervals: d.Intervals,
		clientBot: d.ClientBot,
		adminBot:  d.AdminBot,
		adminChat: d.AdminChat,
		registry:  d.Registry,
		matcher:   d.Matcher,
		archive:   d.Archive,
		loc:       d.Location,
		fitWait:   d.FitWait,
		log:       d.Log,
	}
}

// Run обрабатывает все аккаунты последовательно. Сбой одного аккаунта
// не мешает остальным.
func (r *Reconciler) Run() {
	for _, acc := range r.registry.All() {
		if err := r.processAccount(acc); err != nil {
			r.log.Error("аккаунт пропущен", zap.String("account", acc.ID), zap.Error(err))
		}
	}
}

func (r *Reconciler) processAccount(acc accounts.Account) error {
	session, err := r.watt.Login(acc.Login, acc.Password)
	if err != nil {
		return fmt.Errorf("логин: %w", err)
	}

	feed, err := r.watt.Activities(session)
	if err != nil {
		return fmt.Errorf("лента: %w", err)
	}

	for _, act := range feed {
		if err := r.processActivity(acc, session, act); err != nil {
			r.log.Error("активность пропущена",
				zap.String("account", acc.ID),
				zap.String("activity", act.ID),
				zap.Error(err))
		}
	}
	return nil
}

// shouldDefer решает, отложить ли безфайловую активность до следующего
// тика: FIT-экспорт платформы отстаёт от сводки, молодую активность
// имеет смысл подождать
func shouldDefer(hasFit bool, started, now time.Time, wait time.Duration) bool {
	return !hasFit && now.Sub(started) < wait
}

func (r *Reconciler) processActivity(acc accounts.Account, session *wattattack.Session, act wattattack.Activity) error {
	seen, err := r.repos.Activity.WasSeen(acc.ID, act.ID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	now := time.Now().In(r.loc)
	if shouldDefer(act.FitFileID != "", act.StartTime, now, r.fitWait) {
		r.log.Debug("активность отложена до появления FIT",
			zap.String("account", acc.ID), zap.String("activity", act.ID))
		return nil
	}

	localStart := act.StartTime.In(r.loc)
	match, err := r.match(acc, localStart, act.AthleteName)
	if err != nil {
		return err
	}

	fitPath, fitData := r.archiveFit(acc, session, act)

	rec := repository.ActivityRecord{
		AccountID:  acc.ID,
		ActivityID: act.ID,
		StartTime:  sql.NullTime{Time: act.StartTime, Valid: true},
	}
	if act.AthleteName != "" {
		rec.ProfileName = sql.NullString{String: act.AthleteName, Valid: true}
	}
	if fitPath != "" {
		rec.FitPath = sql.NullString{String: fitPath, Valid: true}
	}
	fillMetrics(&rec, act)

	if match != nil {
		rec.ClientID = sql.NullInt64{Int64: match.ClientID, Valid: true}
		rec.ScheduledName = sql.NullString{String: match.ClientName, Valid: true}

		sent := r.deliver(int(match.ClientID), formatActivityMessage(act, r.loc), fitPath, fitData, deliveryFlags{})
		rec.SentClientBot = sent.ClientBot
		rec.SentStrava = sent.Strava
		rec.SentIntervals = sent.Intervals
	} else {
		r.notifyAdminUnmatched(acc, act, fitPath)
	}

	_, err = r.repos.Activity.RecordSeen(rec)
	return err
}

// match выполняет оба поиска — по станкам аккаунта и по имени атлета —
// и сводит их в итоговую атрибуцию
func (r *Reconciler) match(acc accounts.Account, localStart time.Time, athleteName string) (*repository.BookedReservation, error) {
	date := time.Date(localStart.Year(), localStart.Month(), localStart.Day(), 0, 0, 0, 0, time.UTC)

	standCands, err := r.repos.Reservation.ListBookedByDateAndStands(date, acc.StandIDs)
	if err != nil {
		return nil, err
	}
	standMatch := r.matcher.MatchByStand(localStart, standCands)

	var nameMatch *repository.BookedReservation
	if athleteName != "" {
		allCands, err := r.repos.Reservation.ListBookedByDate(date)
		if err != nil {
			return nil, err
		}
		nameMatch = r.matcher.MatchByName(localStart, athleteName, allCands)
	}

	return r.matcher.Resolve(standMatch, nameMatch, athleteName), nil
}

// archiveFit скачивает и архивирует FIT-файл активности. Любой сбой
// здесь не фатален — активность обрабатывается без файла.
func (r *Reconciler) archiveFit(acc accounts.Account, session *wattattack.Session, act wattattack.Activity) (string, []byte) {
	if act.FitFileID == "" {
		return "", nil
	}

	if r.archive.Exists(acc.ID, act.ID) {
		data, err := r.archive.Read(acc.ID, act.ID)
		if err != nil {
			r.log.Warn("архивный FIT не прочитан", zap.String("activity", act.ID), zap.Error(err))
			return r.archive.Path(acc.ID, act.ID), nil
		}
		return r.archive.Path(acc.ID, act.ID), data
	}

	data, err := r.watt.DownloadFit(session, act.FitFileID)
	if err != nil {
		r.log.Warn("FIT не скачан", zap.String("activity", act.ID), zap.Error(err))
		return "", nil
	}

	path, _, err := r.archive.Store(acc.ID, act.ID, data)
	if err != nil {
		r.log.Warn("FIT не сохранён в архив", zap.String("activity", act.ID), zap.Error(err))
		return "", nil
	}
	return path, data
}

// deliveryFlags — состояние трёх каналов доставки
type deliveryFlags struct {
	ClientBot bool
	Strava    bool
	Intervals bool
}

// deliver разносит активность по каналам. Каналы независимы: сбой
// одного не прерывает остальные. Уже взведённые флаги не переотправляются.
func (r *Reconciler) deliver(clientID int, caption, fitPath string, fitData []byte, already deliveryFlags) deliveryFlags {
	sent := already

	if !already.ClientBot {
		if ok := r.sendClientBot(clientID, caption, fitPath); ok {
			sent.ClientBot = true
		}
	}

	if len(fitData) > 0 && !already.Strava {
		if ok := r.sendStrava(clientID, caption, fitData); ok {
			sent.Strava = true
		}
	}

	if len(fitData) > 0 && !already.Intervals {
		if ok := r.sendIntervals(clientID, caption, fitData); ok {
			sent.Intervals = true
		}
	}

	return sent
}

func (r *Reconciler) sendClientBot(clientID int, caption, fitPath string) bool {
	telegramID, err := r.repos.Client.GetTelegramID(clientID)
	if err != nil {
		r.log.Warn("связка Telegram не получена", zap.Int("client", clientID), zap.Error(err))
		return false
	}
	if telegramID == 0 {
		return false
	}

	if fitPath != "" {
		err = r.clientBot.SendDocument(telegramID, fitPath, caption)
	} else {
		err = r.clientBot.SendMessage(telegramID, caption)
	}
	if err != nil {
		r.log.Warn("доставка в клиентский бот не удалась", zap.Int("client", clientID), zap.Error(err))
		return false
	}
	return true
}

func (r *Reconciler) sendStrava(clientID int, caption string, fitData []byte) bool {
	connected, err := r.strava.IsConnected(clientID)
	if err != nil {
		r.log.Warn("статус Strava не получен", zap.Int("client", clientID), zap.Error(err))
		return false
	}
	if !connected {
		return false
	}

	if err := r.strava.Upload(clientID, "Крутилка", caption, fitData); err != nil {
		r.log.Warn("загрузка в Strava не удалась", zap.Int("client", clientID), zap.Error(err))
		return false
	}
	return true
}

func (r *Reconciler) sendIntervals(clientID int, caption string, fitData []byte) bool {
	client, err := r.repos.Client.GetByID(clientID)
	if err != nil {
		r.log.Warn("клиент не получен", zap.Int("client", clientID), zap.Error(err))
		return false
	}
	if client == nil || !client.IntervalsAPIKey.Valid {
		return false
	}

	if err := r.intervals.Upload(client.IntervalsAPIKey.String, "Крутилка", fitData); err != nil {
		r.log.Warn("загрузка в Intervals не удалась", zap.Int("client", clientID), zap.Error(err))
		return false
	}
	return true
}

func (r *Reconciler) notifyAdminUnmatched(acc accounts.Account, act wattattack.Activity, fitPath string) {
	text := fmt.Sprintf("⚠️ Активность без атрибуции\nАккаунт: %s\nID: %s\n%s",
		acc.ID, act.ID, formatActivityMessage(act, r.loc))
	var err error
	if fitPath != "" {
		err = r.adminBot.SendDocument(r.adminChat, fitPath, text)
	} else {
		err = r.adminBot.SendMessage(r.adminChat, text)
	}
	if err != nil {
		r.log.Warn("уведомление админам не отправлено", zap.String("activity", act.ID), zap.Error(err))
	}
}

func fillMetrics(rec *repository.ActivityRecord, act wattattack.Activity) {
	if act.DistanceM > 0 {
		rec.DistanceM = sql.NullFloat64{Float64: act.DistanceM, Valid: true}
	}
	if act.ElapsedSec > 0 {
		rec.ElapsedSec = sql.NullInt64{Int64: act.ElapsedSec, Valid: true}
	}
	if act.ElevationM > 0 {
		rec.ElevationM = sql.NullFloat64{Float64: act.ElevationM, Valid: true}
	}
	if act.AvgPower > 0 {
		rec.AvgPower = sql.NullFloat64{Float64: act.AvgPower, Valid: true}
	}
	if act.AvgCadence > 0 {
		rec.AvgCadence = sql.NullFloat64{Float64: act.AvgCadence, Valid: true}
	}
	if act.AvgHeartrate > 0 {
		rec.AvgHeartrate = sql.NullFloat64{Float64: act.AvgHeartrate, Valid: true}
	}
}

// formatLedgerMessage строит сводку по данным леджера (для бэкфилла)
func formatLedgerMessage(rec repository.ActivityRecord, loc *time.Location) string {
	act := wattattack.Activity{
		ID:           rec.ActivityID,
		DistanceM:    rec.DistanceM.Float64,
		ElapsedSec:   rec.ElapsedSec.Int64,
		ElevationM:   rec.ElevationM.Float64,
		AvgPower:     rec.AvgPower.Float64,
		AvgCadence:   rec.AvgCadence.Float64,
		AvgHeartrate: rec.AvgHeartrate.Float64,
	}
	if rec.StartTime.Valid {
		act.StartTime = rec.StartTime.Time
	}
	return formatActivityMessage(act, loc)
}

// formatActivityMessage строит текст сводки активности для Telegram
func formatActivityMessage(act wattattack.Activity, loc *time.Location) string {
	elapsed := time.Duration(act.ElapsedSec) * time.Second
	return fmt.Sprintf(
		"🚴 Тренировка %s\nДистанция: %.1f км\nВремя: %s\nНабор: %.0f м\nМощность: %.0f Вт\nКаденс: %.0f\nПульс: %.0f",
		act.StartTime.In(loc).Format("02.01.2006 15:04"),
		act.DistanceM/1000,
		elapsed.Truncate(time.Second),
		act.ElevationM,
		act.AvgPower,
		act.AvgCadence,
		act.AvgHeartrate,
	)
}
