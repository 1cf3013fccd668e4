//go:build integration

package repository

import (
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"
)

// Тесты гоняются против живого Postgres:
//
//	KRUTILKA_TEST_DSN="host=localhost dbname=krutilka_test ..." go test -tags integration ./internal/repository
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("KRUTILKA_TEST_DSN")
	if dsn == "" {
		t.Skip("KRUTILKA_TEST_DSN не задан")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("открытие БД: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Fatalf("пинг БД: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("миграции: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE
		public.workout_notifications,
		public.schedule_account_assignments,
		public.seen_activity_ids,
		public.schedule_reservations,
		public.schedule_slots,
		public.schedule_weeks,
		public.client_telegram_links,
		public.clients,
		public.stands
		RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("очистка таблиц: %v", err)
	}
	return db
}

func nextMonday() time.Time {
	return MondayOf(time.Now()).AddDate(0, 0, 7)
}

func TestRecordSeen_Merge(t *testing.T) {
	repos := New(testDB(t))

	inserted, err := repos.Activity.RecordSeen(ActivityRecord{
		AccountID:  "acc-1",
		ActivityID: "act-1",
		DistanceM:  sql.NullFloat64{Float64: 25300, Valid: true},
	})
	if err != nil {
		t.Fatalf("RecordSeen() error = %v", err)
	}
	if !inserted {
		t.Error("RecordSeen() inserted = false for first write")
	}

	// Дозапись: клиент и флаг добавляются, дистанция (NULL) не затирает старую
	inserted, err = repos.Activity.RecordSeen(ActivityRecord{
		AccountID:  "acc-1",
		ActivityID: "act-1",
		ClientID:   sql.NullInt64{Int64: 7, Valid: true},
		SentStrava: true,
	})
	if err != nil {
		t.Fatalf("second RecordSeen() error = %v", err)
	}
	if inserted {
		t.Error("second RecordSeen() inserted = true, want false")
	}

	rec, err := repos.Activity.GetSeen("acc-1", "act-1")
	if err != nil || rec == nil {
		t.Fatalf("GetSeen() = %v, %v", rec, err)
	}
	if !rec.DistanceM.Valid || rec.DistanceM.Float64 != 25300 {
		t.Errorf("DistanceM = %+v, want kept 25300", rec.DistanceM)
	}
	if !rec.ClientID.Valid || rec.ClientID.Int64 != 7 {
		t.Errorf("ClientID = %+v, want 7", rec.ClientID)
	}
	if !rec.SentStrava {
		t.Error("SentStrava = false after OR merge")
	}

	// Флаги только взводятся: запись с false их не сбрасывает
	if _, err := repos.Activity.RecordSeen(ActivityRecord{
		AccountID:  "acc-1",
		ActivityID: "act-1",
	}); err != nil {
		t.Fatalf("third RecordSeen() error = %v", err)
	}
	rec, err = repos.Activity.GetSeen("acc-1", "act-1")
	if err != nil || rec == nil {
		t.Fatalf("GetSeen() = %v, %v", rec, err)
	}
	if !rec.SentStrava {
		t.Error("SentStrava lowered back to false")
	}
	if !rec.ClientID.Valid {
		t.Error("ClientID lost after merge with empty record")
	}
}

func makeSlot(t *testing.T, repos *Repository) *Slot {
	t.Helper()
	week, err := repos.Schedule.GetOrCreateWeek(nextMonday())
	if err != nil {
		t.Fatalf("GetOrCreateWeek() error = %v", err)
	}
	slot, _, err := repos.Schedule.CreateSlot(week.ID, week.WeekStartDate, "10:00", "12:00", KindSelfService, "", 0)
	if err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}
	return slot
}

func TestBookAvailableReservation_Conditional(t *testing.T) {
	repos := New(testDB(t))

	if _, err := repos.Stand.Create("T1", "", 0); err != nil {
		t.Fatalf("Create stand: %v", err)
	}
	slot := makeSlot(t, repos)

	reservations, err := repos.Reservation.ListForSlot(slot.ID)
	if err != nil || len(reservations) != 1 {
		t.Fatalf("ListForSlot() = %d rows, %v", len(reservations), err)
	}
	id := reservations[0].ID

	clientID, err := repos.Client.Create("Иванов Пётр", "")
	if err != nil {
		t.Fatalf("Create client: %v", err)
	}

	booked, err := repos.Reservation.BookAvailableReservation(id, clientID, "Иванов Пётр", "test", "")
	if err != nil {
		t.Fatalf("BookAvailableReservation() error = %v", err)
	}
	if booked == nil || booked.Status != StatusBooked {
		t.Fatalf("BookAvailableReservation() = %+v, want booked row", booked)
	}

	// Бронь уже не available — второй вызов проигрывает
	again, err := repos.Reservation.BookAvailableReservation(id, clientID, "Сидоров Павел", "test", "")
	if err != nil {
		t.Fatalf("second BookAvailableReservation() error = %v", err)
	}
	if again != nil {
		t.Errorf("second BookAvailableReservation() = %+v, want nil", again)
	}
}

func TestBookAvailableReservation_Race(t *testing.T) {
	repos := New(testDB(t))

	if _, err := repos.Stand.Create("T1", "", 0); err != nil {
		t.Fatalf("Create stand: %v", err)
	}
	slot := makeSlot(t, repos)
	reservations, err := repos.Reservation.ListForSlot(slot.ID)
	if err != nil || len(reservations) != 1 {
		t.Fatalf("ListForSlot() = %d rows, %v", len(reservations), err)
	}
	id := reservations[0].ID

	clientID, err := repos.Client.Create("Иванов Пётр", "")
	if err != nil {
		t.Fatalf("Create client: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			booked, err := repos.Reservation.BookAvailableReservation(id, clientID, "Иванов Пётр", "race", "")
			if err != nil {
				t.Errorf("BookAvailableReservation() error = %v", err)
				return
			}
			if booked != nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestEnsureSlotCapacity_Idempotent(t *testing.T) {
	repos := New(testDB(t))

	if _, err := repos.Stand.Create("T1", "", 0); err != nil {
		t.Fatalf("Create stand: %v", err)
	}
	if _, err := repos.Stand.Create("T2", "", 1); err != nil {
		t.Fatalf("Create stand: %v", err)
	}
	slot := makeSlot(t, repos)

	// Заглушки уже созданы вместе со слотом
	created, err := repos.Reservation.EnsureSlotCapacity(slot.ID)
	if err != nil {
		t.Fatalf("EnsureSlotCapacity() error = %v", err)
	}
	if created != 0 {
		t.Errorf("EnsureSlotCapacity() on full slot = %d, want 0", created)
	}

	// Пропавшая заглушка восстанавливается, лишние не плодятся
	if _, err := testDBExec(t, repos,
		"DELETE FROM public.schedule_reservations WHERE slot_id = $1 AND stand_code = 'T2'", slot.ID); err != nil {
		t.Fatalf("delete placeholder: %v", err)
	}
	created, err = repos.Reservation.EnsureSlotCapacity(slot.ID)
	if err != nil {
		t.Fatalf("EnsureSlotCapacity() error = %v", err)
	}
	if created != 1 {
		t.Errorf("EnsureSlotCapacity() after delete = %d, want 1", created)
	}

	reservations, err := repos.Reservation.ListForSlot(slot.ID)
	if err != nil {
		t.Fatalf("ListForSlot() error = %v", err)
	}
	if len(reservations) != 2 {
		t.Errorf("ListForSlot() = %d rows, want 2", len(reservations))
	}
}

func testDBExec(t *testing.T, repos *Repository, query string, args ...any) (sql.Result, error) {
	t.Helper()
	return repos.Reservation.db.Exec(query, args...)
}

func TestCreateDefaultSlots_SecondCallNoop(t *testing.T) {
	repos := New(testDB(t))

	week, err := repos.Schedule.GetOrCreateWeek(nextMonday())
	if err != nil {
		t.Fatalf("GetOrCreateWeek() error = %v", err)
	}

	created, err := repos.Schedule.CreateDefaultSlots(week.ID, false)
	if err != nil {
		t.Fatalf("CreateDefaultSlots() error = %v", err)
	}
	if created != 56 {
		t.Errorf("CreateDefaultSlots() = %d, want 56 (7 дней × 8 окон)", created)
	}

	created, err = repos.Schedule.CreateDefaultSlots(week.ID, false)
	if err != nil {
		t.Fatalf("second CreateDefaultSlots() error = %v", err)
	}
	if created != 0 {
		t.Errorf("second CreateDefaultSlots() = %d, want 0", created)
	}

	slots, err := repos.Schedule.ListSlotsForWeek(week.ID)
	if err != nil {
		t.Fatalf("ListSlotsForWeek() error = %v", err)
	}
	if len(slots) != 56 {
		t.Errorf("ListSlotsForWeek() = %d slots, want 56", len(slots))
	}
}

func TestCopySlotsFromWeek_ShiftAndSkip(t *testing.T) {
	repos := New(testDB(t))

	source, err := repos.Schedule.GetOrCreateWeek(nextMonday())
	if err != nil {
		t.Fatalf("GetOrCreateWeek(source) error = %v", err)
	}
	target, err := repos.Schedule.GetOrCreateWeek(nextMonday().AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("GetOrCreateWeek(target) error = %v", err)
	}

	if _, _, err := repos.Schedule.CreateSlot(source.ID, source.WeekStartDate, "10:00", "12:00", KindSelfService, "", 0); err != nil {
		t.Fatalf("CreateSlot(source) error = %v", err)
	}
	if _, _, err := repos.Schedule.CreateSlot(source.ID, source.WeekStartDate.AddDate(0, 0, 2), "18:00", "20:00", KindInstructor, "", 1); err != nil {
		t.Fatalf("CreateSlot(source) error = %v", err)
	}

	// Конфликтующий слот уже есть в целевой неделе — копия его пропустит
	if _, _, err := repos.Schedule.CreateSlot(target.ID, target.WeekStartDate, "10:00", "12:00", KindSelfService, "", 0); err != nil {
		t.Fatalf("CreateSlot(target) error = %v", err)
	}

	copied, _, err := repos.Schedule.CopySlotsFromWeek(source.ID, target.ID)
	if err != nil {
		t.Fatalf("CopySlotsFromWeek() error = %v", err)
	}
	if copied != 1 {
		t.Errorf("CopySlotsFromWeek() copied = %d, want 1", copied)
	}

	slots, err := repos.Schedule.ListSlotsForWeek(target.ID)
	if err != nil {
		t.Fatalf("ListSlotsForWeek() error = %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("target slots = %d, want 2", len(slots))
	}
	wantDate := target.WeekStartDate.AddDate(0, 0, 2).Format("2006-01-02")
	if got := slots[1].SlotDate.Format("2006-01-02"); got != wantDate {
		t.Errorf("copied slot date = %s, want shifted %s", got, wantDate)
	}

	target, err = repos.Schedule.GetWeekByID(target.ID)
	if err != nil || target == nil {
		t.Fatalf("GetWeekByID() = %v, %v", target, err)
	}
	if !target.CopiedFromWeekID.Valid || target.CopiedFromWeekID.Int64 != int64(source.ID) {
		t.Errorf("CopiedFromWeekID = %+v, want %d", target.CopiedFromWeekID, source.ID)
	}
}

func TestCopySlotSeating_ReportsMissingStands(t *testing.T) {
	repos := New(testDB(t))

	standA, err := repos.Stand.Create("T1", "", 0)
	if err != nil {
		t.Fatalf("Create stand: %v", err)
	}
	standB, err := repos.Stand.Create("T2", "", 1)
	if err != nil {
		t.Fatalf("Create stand: %v", err)
	}

	sourceSlot := makeSlot(t, repos)

	// Целевой слот создаётся уже без второго станка
	if _, err := repos.Stand.SetActive(standB.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	week, err := repos.Schedule.GetOrCreateWeek(nextMonday())
	if err != nil {
		t.Fatalf("GetOrCreateWeek() error = %v", err)
	}
	targetSlot, _, err := repos.Schedule.CreateSlot(week.ID, week.WeekStartDate, "12:00", "14:00", KindSelfService, "", 1)
	if err != nil {
		t.Fatalf("CreateSlot(target) error = %v", err)
	}

	clientID, err := repos.Client.Create("Иванов Пётр", "")
	if err != nil {
		t.Fatalf("Create client: %v", err)
	}
	sourceRows, err := repos.Reservation.ListForSlot(sourceSlot.ID)
	if err != nil {
		t.Fatalf("ListForSlot() error = %v", err)
	}
	for _, rv := range sourceRows {
		if rv.StandID.Valid && rv.StandID.Int64 == int64(standA.ID) {
			if _, err := repos.Reservation.BookAvailableReservation(rv.ID, clientID, "Иванов Пётр", "test", ""); err != nil {
				t.Fatalf("BookAvailableReservation() error = %v", err)
			}
		}
	}

	result, err := repos.Reservation.CopySlotSeating(sourceSlot.ID, targetSlot.ID)
	if err != nil {
		t.Fatalf("CopySlotSeating() error = %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d, want 1", result.Updated)
	}

	// Второй станок есть в источнике, но отсутствует в цели —
	// он попадает в отчёт даже без клиента
	if len(result.MissingStands) != 1 || result.MissingStands[0] != "T2" {
		t.Errorf("MissingStands = %v, want [T2]", result.MissingStands)
	}
}
