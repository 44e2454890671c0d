package store

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
)

func TestInsertBulkStatementShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := New(db, []string{"ph", "do"})

	expectedQuery := regexp.QuoteMeta(
		"INSERT OR IGNORE INTO sensordata (timestamp, ph, do, status) VALUES (?,?,?,?),(?,?,?,?)")
	mock.ExpectBegin()
	mock.ExpectExec(expectedQuery).
		WithArgs(
			1.0, 7.0, nil, nil,
			2.0, 7.1, 55.0, domain.StatusStarted,
		).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	records := []domain.Reading{
		{Timestamp: 1, Values: map[string]float64{"ph": 7.0}},
		{Timestamp: 2, Values: map[string]float64{"ph": 7.1, "do": 55.0}, Status: domain.StatusStarted},
	}
	if err := s.InsertBulk(records); err != nil {
		t.Fatalf("insert bulk: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertBulkRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := New(db, []string{"ph"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT OR IGNORE INTO sensordata").
		WillReturnError(fmt.Errorf("disk I/O error"))
	mock.ExpectRollback()

	err = s.InsertBulk([]domain.Reading{{Timestamp: 1, Values: map[string]float64{"ph": 7}}})
	if err == nil {
		t.Fatalf("expected insert error to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
