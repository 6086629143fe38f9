package repository

import (
	"context"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/store"
)

// StudentRepository persists reward-economy student state.
type StudentRepository struct {
	store store.Store
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(s store.Store) *StudentRepository {
	return &StudentRepository{store: s}
}

// List returns every student.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := store.Load(ctx, r.store, store.CollectionStudents, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// ListActive returns students participating in the current roster.
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.Student, error) {
	students, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Student
	for _, st := range students {
		if st.Active {
			out = append(out, st)
		}
	}
	return out, nil
}

// Find returns a student by id, or nil when unknown.
func (r *StudentRepository) Find(ctx context.Context, id string) (*models.Student, error) {
	students, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].ID == id {
			return &students[i], nil
		}
	}
	return nil, nil
}

// Save upserts one student by id.
func (r *StudentRepository) Save(ctx context.Context, student *models.Student) error {
	students, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range students {
		if students[i].ID == student.ID {
			students[i] = *student
			replaced = true
			break
		}
	}
	if !replaced {
		students = append(students, *student)
	}
	return store.Save(ctx, r.store, store.CollectionStudents, students)
}
