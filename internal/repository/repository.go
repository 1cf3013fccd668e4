package repository

import "database/sql"

// Repository содержит все репозитории
type Repository struct {
	Stand       *StandRepository
	Schedule    *ScheduleRepository
	Reservation *ReservationRepository
	Activity    *ActivityRepository
	Client      *ClientRepository
	Assignment  *AssignmentRepository
}

// New создаёт новый экземпляр Repository
func New(db *sql.DB) *Repository {
	return &Repository{
		Stand:       NewStandRepository(db),
		Schedule:    NewScheduleRepository(db),
		Reservation: NewReservationRepository(db),
		Activity:    NewActivityRepository(db),
		Client:      NewClientRepository(db),
		Assignment:  NewAssignmentRepository(db),
	}
}
