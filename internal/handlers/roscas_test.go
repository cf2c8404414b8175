package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"lendfi/internal/models"
	"lendfi/internal/money"
	"lendfi/internal/services"
)

func TestCreateROSCA(t *testing.T) {
	var got services.ROSCAInput
	handler := newTestHandler(t, testDeps{roscas: stubROSCAService{
		createFn: func(_ context.Context, founderID string, input services.ROSCAInput) (services.CreatedROSCA, error) {
			if founderID != "borrower" {
				t.Fatalf("unexpected founder %q", founderID)
			}
			got = input
			return services.CreatedROSCA{
				ROSCA:     models.ROSCA{ID: "r1", InviteCode: "ABCD1234"},
				InviteURL: "http://localhost:3000/rosca/join/ABCD1234",
			}, nil
		},
	}})
	body := `{"name":"Market Women","contributionAmount":"0.1","cycleDuration":30,"maxMembers":5}`
	rr := serve(t, handler, http.MethodPost, "/roscas", "borrower", body)
	env := expectStatus(t, rr, http.StatusCreated)
	var created services.CreatedROSCA
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.InviteURL != "http://localhost:3000/rosca/join/ABCD1234" {
		t.Fatalf("unexpected invite url %q", created.InviteURL)
	}
	if got.ContributionAmount != money.MustParse("0.1") || got.MaxMembers != 5 || got.CycleDuration != 30 {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestCreateROSCAValidation(t *testing.T) {
	handler := newTestHandler(t, testDeps{})
	rr := serve(t, handler, http.MethodPost, "/roscas", "borrower", `{"name":"ab","contributionAmount":0.1,"cycleDuration":30,"maxMembers":1}`)
	env := expectStatus(t, rr, http.StatusBadRequest)
	if len(env.Errors) != 2 {
		t.Fatalf("expected name and maxMembers errors, got %v", env.Errors)
	}
}

func TestJoinByInviteRoutesCode(t *testing.T) {
	var gotCode string
	joinCalled := false
	handler := newTestHandler(t, testDeps{roscas: stubROSCAService{
		joinByInviteFn: func(_ context.Context, code, _ string) (models.ROSCA, error) {
			gotCode = code
			return models.ROSCA{ID: "r1"}, nil
		},
		joinFn: func(context.Context, string, string) (models.ROSCA, error) {
			joinCalled = true
			return models.ROSCA{}, nil
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/roscas/join/ABCD1234", "lender", "")
	env := expectStatus(t, rr, http.StatusOK)
	if gotCode != "ABCD1234" || joinCalled {
		t.Fatalf("expected invite join with code, got %q (join by id called: %v)", gotCode, joinCalled)
	}
	if env.Message != "Successfully joined ROSCA" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestJoinROSCAErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"full":         {services.ErrROSCAFull, http.StatusBadRequest},
		"inactive":     {services.ErrROSCANotActive, http.StatusBadRequest},
		"member":       {services.ErrAlreadyMember, http.StatusBadRequest},
		"missing":      {services.ErrROSCANotFound, http.StatusNotFound},
		"kyc required": {nil, http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := newTestHandler(t, testDeps{roscas: stubROSCAService{
				joinFn: func(context.Context, string, string) (models.ROSCA, error) {
					return models.ROSCA{}, tc.err
				},
			}})
			user := "lender"
			if tc.err == nil {
				user = "unverified"
			}
			rr := serve(t, handler, http.MethodPost, "/roscas/r1/join", user, "")
			env := expectStatus(t, rr, tc.status)
			if tc.err != nil && env.Message != tc.err.Error() {
				t.Fatalf("expected %q, got %q", tc.err.Error(), env.Message)
			}
		})
	}
}

func TestContribute(t *testing.T) {
	var gotAmount money.Amount
	handler := newTestHandler(t, testDeps{roscas: stubROSCAService{
		contributeFn: func(_ context.Context, roscaID, userID string, amount money.Amount) (models.Transaction, error) {
			if roscaID != "r1" || userID != "lender" {
				t.Fatalf("unexpected contribution target %q %q", roscaID, userID)
			}
			gotAmount = amount
			return models.Transaction{ID: "t1", Amount: amount}, nil
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/roscas/r1/contribute", "lender", `{"amount":0.1}`)
	env := expectStatus(t, rr, http.StatusOK)
	if env.Message != "Contribution successful" || gotAmount != money.MustParse("0.1") {
		t.Fatalf("unexpected result %q %s", env.Message, gotAmount)
	}
}

func TestContributeMismatch(t *testing.T) {
	handler := newTestHandler(t, testDeps{roscas: stubROSCAService{
		contributeFn: func(context.Context, string, string, money.Amount) (models.Transaction, error) {
			return models.Transaction{}, services.ErrContributionMismatch
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/roscas/r1/contribute", "lender", `{"amount":0.2}`)
	env := expectStatus(t, rr, http.StatusBadRequest)
	if env.Message != services.ErrContributionMismatch.Error() {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestROSCAReadsDoNotRequireKYC(t *testing.T) {
	handler := newTestHandler(t, testDeps{})
	for _, path := range []string{"/roscas", "/roscas/r1", "/roscas/r1/members"} {
		rr := serve(t, handler, http.MethodGet, path, "unverified", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestListROSCAsView(t *testing.T) {
	var got services.ROSCAQuery
	handler := newTestHandler(t, testDeps{roscas: stubROSCAService{
		listFn: func(_ context.Context, _ string, q services.ROSCAQuery) ([]models.ROSCA, services.Pagination, error) {
			got = q
			return []models.ROSCA{}, services.Pagination{}, nil
		},
	}})
	rr := serve(t, handler, http.MethodGet, "/roscas?type=my-roscas", "borrower", "")
	expectStatus(t, rr, http.StatusOK)
	if got.View != "my-roscas" || got.Page != 1 || got.Limit != 10 {
		t.Fatalf("unexpected query: %+v", got)
	}
}
