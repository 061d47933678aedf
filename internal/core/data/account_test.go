package data

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func seedRandomAccounts(t *testing.T, db *gorm.DB) {
	t.Helper()
	for i := 0; i < 10; i++ {
		if err := CreateAccount(db, generateAccount(t)); err != nil {
			t.Fatalf("error seeding test account: %v", err)
		}
	}
}

func generateAccount(t *testing.T) *Account {
	t.Helper()
	return &Account{
		Login:    "Player" + strconv.Itoa(rand.Int()),
		Password: strconv.Itoa(rand.Int()),
		Mail:     fmt.Sprintf("%d@%d.c", rand.Int(), rand.Int()),
	}
}

func assertAccountsMatch(t *testing.T, expected *Account, got *Account) {
	t.Helper()
	if diff := cmp.Diff(expected, got,
		cmpopts.EquateEmpty(),
		cmpopts.EquateApproxTime(time.Second),
	); diff != "" {
		t.Errorf("account did not match expected; diff:\n%s", diff)
	}
}

func TestFindAccountByLogin(t *testing.T) {
	db := setUpDatabase(t)
	seedRandomAccounts(t, db)

	testAccount := generateAccount(t)
	tests := []struct {
		name     string
		seedData func(db *gorm.DB)
		login    string
		want     *Account
		wantErr  bool
	}{
		{
			name:     "account does not exist",
			seedData: func(db *gorm.DB) {},
			login:    testAccount.Login,
			want:     nil,
			wantErr:  false,
		},
		{
			name: "account exists",
			seedData: func(db *gorm.DB) {
				if err := CreateAccount(db, testAccount); err != nil {
					t.Fatalf("error creating test account data: %s", err)
				}
			},
			login:   testAccount.Login,
			want:    testAccount,
			wantErr: false,
		},
		{
			name:     "login differs only by case",
			seedData: func(db *gorm.DB) {},
			login:    "  " + LoginKey(testAccount.Login),
			want:     testAccount,
			wantErr:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.seedData(db)

			account, err := FindAccountByLogin(db, tt.login)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindAccountByLogin() wantErr = %v, error = %v", tt.wantErr, err)
			}
			assertAccountsMatch(t, tt.want, account)
		})
	}
}

func TestCreateAccount_LoginIsUnique(t *testing.T) {
	db := setUpDatabase(t)

	if err := CreateAccount(db, &Account{Login: "Alice", Password: "x"}); err != nil {
		t.Fatalf("error creating test account: %v", err)
	}
	if err := CreateAccount(db, &Account{Login: "ALICE", Password: "y"}); err == nil {
		t.Errorf("expected an error creating an account whose login differs only by case")
	}
}

func TestUpdateColumns(t *testing.T) {
	db := setUpDatabase(t)
	account := generateAccount(t)
	if err := CreateAccount(db, account); err != nil {
		t.Fatalf("error creating test account: %v", err)
	}

	until := time.Now().Add(48 * time.Hour)
	columns := map[string]interface{}{"banned": true, "banned_until": until, "experience": 500}
	if err := UpdateColumns(db, account.ID, columns); err != nil {
		t.Fatalf("UpdateColumns() returned an unexpected error: %v", err)
	}
	account.Banned = true
	account.BannedUntil = &until
	account.Experience = 500

	got, err := FindAccountByLogin(db, account.Login)
	if err != nil {
		t.Fatalf("FindAccountByLogin() returned an unexpected error: %v", err)
	}
	assertAccountsMatch(t, account, got)
}

func TestReplaceItems(t *testing.T) {
	db := setUpDatabase(t)
	account := generateAccount(t)
	if err := CreateAccount(db, account); err != nil {
		t.Fatalf("error creating test account: %v", err)
	}

	if err := ReplaceItems(db, account.ID, []Item{{ItemID: 1}, {ItemID: 2, Equipped: true}}); err != nil {
		t.Fatalf("ReplaceItems() returned an unexpected error: %v", err)
	}
	if err := ReplaceItems(db, account.ID, []Item{{ItemID: 3, Equipped: true}}); err != nil {
		t.Fatalf("ReplaceItems() returned an unexpected error: %v", err)
	}

	got, err := FindAccountByLogin(db, account.Login)
	if err != nil {
		t.Fatalf("FindAccountByLogin() returned an unexpected error: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ItemID != 3 || !got.Items[0].Equipped {
		t.Errorf("expected only item 3 (equipped), got %+v", got.Items)
	}
}

func TestSetCharacter_KeepsOtherColumns(t *testing.T) {
	db := setUpDatabase(t)
	account := generateAccount(t)
	if err := CreateAccount(db, account); err != nil {
		t.Fatalf("error creating test account: %v", err)
	}
	stale := *account

	if err := UpdateColumns(db, account.ID, map[string]interface{}{"locked": true}); err != nil {
		t.Fatalf("UpdateColumns() returned an unexpected error: %v", err)
	}
	if err := SetCharacter(db, stale.ID, 4); err != nil {
		t.Fatalf("SetCharacter() returned an unexpected error: %v", err)
	}

	got, err := FindAccountByLogin(db, account.Login)
	if err != nil {
		t.Fatalf("FindAccountByLogin() returned an unexpected error: %v", err)
	}
	if got.Character != 4 || !got.Locked {
		t.Errorf("expected character 4 on a still locked account, got character %d locked %v", got.Character, got.Locked)
	}

	if err := SetCharacter(db, 999999, 1); err != gorm.ErrRecordNotFound {
		t.Errorf("expected gorm.ErrRecordNotFound for an unknown account, got %v", err)
	}
}

func TestFindAccess(t *testing.T) {
	db := setUpDatabase(t)
	account := generateAccount(t)
	if err := CreateAccount(db, account); err != nil {
		t.Fatalf("error creating test account: %v", err)
	}
	until := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := UpdateColumns(db, account.ID, map[string]interface{}{"banned": true, "banned_until": until}); err != nil {
		t.Fatalf("UpdateColumns() returned an unexpected error: %v", err)
	}

	got, err := FindAccess(db, account.ID)
	if err != nil {
		t.Fatalf("FindAccess() returned an unexpected error: %v", err)
	}
	if !got.Banned || got.BannedUntil == nil || !got.BannedUntil.Equal(until) || got.Locked {
		t.Errorf("unexpected access flags: %+v", got)
	}
	if got.Password != "" {
		t.Errorf("expected FindAccess to leave the password unread")
	}
	if _, err := FindAccess(db, 999999); err != gorm.ErrRecordNotFound {
		t.Errorf("expected gorm.ErrRecordNotFound for an unknown account, got %v", err)
	}
}

func TestFindLoginsByMail(t *testing.T) {
	db := setUpDatabase(t)
	seedRandomAccounts(t, db)

	for _, login := range []string{"bob", "alice"} {
		if err := CreateAccount(db, &Account{Login: login, Password: "x", Mail: "Shared@Example.com"}); err != nil {
			t.Fatalf("error creating test account: %v", err)
		}
	}

	logins, err := FindLoginsByMail(db, "shared@example.com ")
	if err != nil {
		t.Fatalf("FindLoginsByMail() returned an unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"alice", "bob"}, logins); diff != "" {
		t.Errorf("FindLoginsByMail() diff:\n%s", diff)
	}
}

func TestAccount_IsBanned(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	tests := []struct {
		name    string
		account Account
		want    bool
	}{
		{name: "not banned", account: Account{}, want: false},
		{name: "permanent ban", account: Account{Banned: true}, want: true},
		{name: "ban not yet expired", account: Account{Banned: true, BannedUntil: &future}, want: true},
		{name: "expired ban", account: Account{Banned: true, BannedUntil: &past}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.IsBanned(now); got != tt.want {
				t.Errorf("IsBanned() = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingWriter struct{ lines []string }

func (w *recordingWriter) Printf(format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestFindAccount_MissingIsNotLogged(t *testing.T) {
	w := &recordingWriter{}
	db := setUpDatabase(t).Session(&gorm.Session{
		Logger: logger.New(w, logger.Config{LogLevel: logger.Error}),
	})

	if account, err := FindAccountByLogin(db, "nobody"); account != nil || err != nil {
		t.Fatalf("FindAccountByLogin() = %v, %v; want nil, nil", account, err)
	}
	if _, err := FindAccess(db, 404); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
	}
	if len(w.lines) != 0 {
		t.Errorf("expected no error logged for a missing account, got %q", w.lines)
	}
}
