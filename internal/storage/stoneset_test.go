package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/todmy/stoneweight/pkg/models"
)

func TestPostgresStoneSetRepository_Update_ClearsLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresStoneSetRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stone_sets").
		WithArgs("ss1", "Halo", "outer ring", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM stone_set_items WHERE stone_set_id").
		WithArgs("ss1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	set := &models.StoneSet{ID: "ss1", Name: "Halo", Description: "outer ring"}
	if err := repo.Update(context.Background(), set); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if set.Stones == nil {
		t.Error("expected stones to be normalized to an empty list")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStoneSetRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresStoneSetRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "stones"}).
		AddRow("ss1", "Halo", "", []byte(`[{"stoneId":"s1","quantity":12},{"stoneId":"s2","quantity":1}]`))

	mock.ExpectQuery("SELECT (.+) FROM stone_sets ss").WillReturnRows(rows)

	sets, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sets) != 1 || len(sets[0].Stones) != 2 {
		t.Fatalf("unexpected sets %+v", sets)
	}
	if sets[0].Stones[0].StoneID != "s1" || sets[0].Stones[0].Quantity != 12 {
		t.Errorf("unexpected first line %+v", sets[0].Stones[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
