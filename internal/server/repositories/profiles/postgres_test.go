package profiles

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+profiles\b.*VALUES\s*\(\$1,.*\$8\)\s*RETURNING\s+created_at\s*$`
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q).
		WithArgs(sqlmock.AnyArg(), "u1", "doctor", "Gregory", "House", "", "Diagnostics", "LIC-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	p := &models.Profile{UserID: "u1", Role: models.RoleDoctor, FirstName: "Gregory", LastName: "House", Specialty: "Diagnostics", LicenseNumber: "LIC-1"}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" || !p.CreatedAt.Equal(created) {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+profiles\b`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Profile{UserID: "u1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUserID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+id,\s*user_id,\s*role,.*FROM\s+profiles\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	rows := sqlmock.NewRows([]string{"id", "user_id", "role", "first_name", "last_name", "phone", "specialty", "license_number", "created_at"}).
		AddRow("p1", "u1", "patient", "Ann", "Lee", "+100", "", "", time.Now())
	mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(rows)

	got, err := repo.GetByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Role != models.RolePatient || got.FirstName != "Ann" || got.Phone != "+100" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestGetByUserID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\s+id,.*FROM\s+profiles`).WithArgs("u1").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserID(context.Background(), "u1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
