package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"lendfi/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestROSCAStoreIncrementMembersStopsAtCapacity(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewROSCAStore(db)

	guard := regexp.QuoteMeta("WHERE id = $1 AND status = 'active' AND current_members < max_members")
	mock.ExpectExec(guard).WithArgs("rosca-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(guard).WithArgs("rosca-1").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.IncrementMembers(context.Background(), db, "rosca-1")
	if err != nil || !ok {
		t.Fatalf("expected seat to be claimed: %v %v", ok, err)
	}
	ok, err = store.IncrementMembers(context.Background(), db, "rosca-1")
	if err != nil || ok {
		t.Fatalf("expected full rosca to refuse: %v %v", ok, err)
	}
}

func TestROSCAStoreAddMemberSurfacesDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewROSCAStore(db)
	joined := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rosca_members")).
		WithArgs("rosca-1", "user-1", joined).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.AddMember(context.Background(), db, "rosca-1", "user-1", joined)
	var pqErr *pq.Error
	if err == nil || !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestROSCAStoreListJoinedUsesRoster(t *testing.T) {
	store := NewROSCAStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM rosca_members m WHERE m.rosca_id = r.id AND m.user_id = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*int) = 1
			return nil
		},
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			*dest.(*[]roscaRow) = []roscaRow{{ROSCA: models.ROSCA{ID: "rosca-1", CreatedBy: "user-2"}, CreatorName: "Founder"}}
			return nil
		},
	})
	roscas, total, err := store.List(context.Background(), ROSCAFilter{View: ROSCAViewJoined, UserID: "user-1"}, Page{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || roscas[0].Creator == nil || roscas[0].Creator.Name != "Founder" {
		t.Fatalf("unexpected roscas: %#v", roscas)
	}
}

func TestROSCAStoreListAvailableFiltersActive(t *testing.T) {
	store := NewROSCAStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE r.status = 'active'") || len(args) != 0 {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			return nil
		},
	})
	if _, _, err := store.List(context.Background(), ROSCAFilter{View: ROSCAViewAvailable, UserID: "user-1"}, Page{Limit: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestROSCAStoreMembersFlagsContributions(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewROSCAStore(db)
	joined := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"rosca_id", "user_id", "name", "email", "joined_at", "contributed_this_cycle"}).
		AddRow("rosca-1", "user-1", "Ann", "ann@x.com", joined, true).
		AddRow("rosca-1", "user-2", "Ben", "ben@x.com", joined.Add(time.Hour), false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rosca_members m")).WithArgs("rosca-1", int64(2)).WillReturnRows(rows)

	members, err := store.Members(context.Background(), "rosca-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 || !members[0].ContributedThisCycle || members[1].ContributedThisCycle {
		t.Fatalf("unexpected members: %#v", members)
	}
}

func TestROSCAStoreGetByInviteCodeNotFound(t *testing.T) {
	store := NewROSCAStore(stubDB{})
	_, err := store.GetByInviteCode(context.Background(), stubGetter{
		getFn: func(_ context.Context, _ any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE r.invite_code = $1") || args[0] != "ABCD1234" {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			return sql.ErrNoRows
		},
	}, "ABCD1234")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
