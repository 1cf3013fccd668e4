package scheduler

import (
	"os"

	"go.uber.org/zap"

	"krutilka/internal/repository"
	"krutilka/internal/wattattack"
)

// Backfill — путь восстановления: докачивает FIT-файлы, появившиеся
// позже сводки, и повторяет неудавшиеся каналы доставки. Уже
// доставленные каналы пропускаются по флагам леджера.
func (r *Reconciler) Backfill(limit int) {
	r.recoverMissingFits(limit)
	r.retryUndelivered(limit)
}

func (r *Reconciler) recoverMissingFits(limit int) {
	missing, err := r.repos.Activity.ListMissingFit(limit)
	if err != nil {
		r.log.Error("записи без FIT не получены", zap.Error(err))
		return
	}
	if len(missing) == 0 {
		return
	}

	byAccount := make(map[string][]repository.ActivityRecord)
	for _, rec := range missing {
		byAccount[rec.AccountID] = append(byAccount[rec.AccountID], rec)
	}

	for accountID, records := range byAccount {
		acc := r.registry.ByID(accountID)
		if acc == nil {
			continue
		}

		session, err := r.watt.Login(acc.Login, acc.Password)
		if err != nil {
			r.log.Warn("бэкфилл: логин не удался", zap.String("account", accountID), zap.Error(err))
			continue
		}
		feed, err := r.watt.Activities(session)
		if err != nil {
			r.log.Warn("бэкфилл: лента не получена", zap.String("account", accountID), zap.Error(err))
			continue
		}

		byID := make(map[string]wattattack.Activity, len(feed))
		for _, act := range feed {
			byID[act.ID] = act
		}

		for _, rec := range records {
			act, ok := byID[rec.ActivityID]
			if !ok || act.FitFileID == "" {
				continue
			}

			data, err := r.watt.DownloadFit(session, act.FitFileID)
			if err != nil {
				r.log.Warn("бэкфилл: FIT не скачан", zap.String("activity", rec.ActivityID), zap.Error(err))
				continue
			}
			path, stored, err := r.archive.Store(accountID, rec.ActivityID, data)
			if err != nil {
				r.log.Warn("бэкфилл: FIT не сохранён", zap.String("activity", rec.ActivityID), zap.Error(err))
				continue
			}
			if err := r.repos.Activity.SetFitPath(accountID, rec.ActivityID, path); err != nil {
				r.log.Warn("бэкфилл: путь FIT не записан", zap.String("activity", rec.ActivityID), zap.Error(err))
				continue
			}
			if stored {
				r.log.Info("бэкфилл: FIT восстановлен",
					zap.String("account", accountID), zap.String("activity", rec.ActivityID))
			}
		}
	}
}

func (r *Reconciler) retryUndelivered(limit int) {
	rows, err := r.repos.Activity.ListUndelivered(limit)
	if err != nil {
		r.log.Error("недоставленные записи не получены", zap.Error(err))
		return
	}

	for _, rec := range rows {
		clientID := rec.ClientID
		if rec.OverrideClientID.Valid {
			clientID = rec.OverrideClientID
		}
		if !clientID.Valid {
			continue
		}

		var fitPath string
		var fitData []byte
		if rec.FitPath.Valid {
			fitPath = rec.FitPath.String
			if data, err := os.ReadFile(fitPath); err == nil {
				fitData = data
			}
		}

		already := deliveryFlags{
			ClientBot: rec.SentClientBot,
			Strava:    rec.SentStrava,
			Intervals: rec.SentIntervals,
		}
		sent := r.deliver(int(clientID.Int64), formatLedgerMessage(rec, r.loc), fitPath, fitData, already)
		if sent == already {
			continue
		}

		_, err := r.repos.Activity.RecordSeen(repository.ActivityRecord{
			AccountID:     rec.AccountID,
			ActivityID:    rec.ActivityID,
			SentClientBot: sent.ClientBot,
			SentStrava:    sent.Strava,
			SentIntervals: sent.Intervals,
		})
		if err != nil {
			r.log.Error("флаги доставки не записаны",
				zap.String("account", rec.AccountID),
				zap.String("activity", rec.ActivityID),
				zap.Error(err))
		}
	}
}
