package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"accountcore/internal/user/entity"
	userrepo "accountcore/internal/user/repo"
)

// fakeStore is an in-memory Store used by service and handler tests.
type fakeStore struct {
	nextID  int64
	byEmail map[string]*entity.User
	byID    map[int64]*entity.User

	createErr error
	touchErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:  1,
		byEmail: map[string]*entity.User{},
		byID:    map[int64]*entity.User{},
	}
}

func (f *fakeStore) Create(ctx context.Context, u *entity.User) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return 0, userrepo.ErrDuplicateEmail
	}
	u.ID = f.nextID
	f.nextID++
	u.RegistrationTime = time.Now()
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u.ID, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) List(ctx context.Context) ([]entity.User, error) {
	out := []entity.User{}
	for id := int64(1); id < f.nextID; id++ {
		if u, ok := f.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	var n int64
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			u.Status = status
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Delete(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			delete(f.byEmail, u.Email)
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) TouchLastLogin(ctx context.Context, id int64) (time.Time, error) {
	if f.touchErr != nil {
		return time.Time{}, f.touchErr
	}
	u, ok := f.byID[id]
	if !ok {
		return time.Time{}, sql.ErrNoRows
	}
	now := time.Now()
	if u.LastLogin == nil || u.LastLogin.Before(now) {
		u.LastLogin = &now
	}
	return *u.LastLogin, nil
}

func newTestService(store Store) *Service {
	// low bcrypt cost keeps the tests quick
	return NewService(nil, store, BcryptHasher{Cost: bcrypt.MinCost})
}

func TestRegister_HashesPassword(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	id, err := svc.Register(context.Background(), "Alice", "A@X.com", "p1")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	u := store.byID[id]
	if u == nil {
		t.Fatal("no row created")
	}
	if u.Email != "a@x.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "p1" || u.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("p1")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if u.Status != entity.StatusActive {
		t.Fatalf("new account status: got %q want active", u.Status)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.Register(context.Background(), "A", "a@x.com", "p1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), "A2", "a@x.com", "p2")
	if !errors.Is(err, userrepo.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if len(store.byID) != 1 {
		t.Fatalf("conflict must not create a row, have %d", len(store.byID))
	}
}

func TestLogin_Success(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	id, _ := svc.Register(context.Background(), "A", "a@x.com", "p1")

	u, err := svc.Login(context.Background(), "a@x.com", "p1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if u.ID != id {
		t.Fatalf("wrong account: got %d want %d", u.ID, id)
	}
	if u.LastLogin == nil {
		t.Fatal("last_login not stamped on success")
	}
	if store.byID[id].LastLogin == nil {
		t.Fatal("last_login not persisted")
	}
}

func TestLogin_NoExistenceLeakage(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.Register(context.Background(), "A", "a@x.com", "p1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// wrong password for a real account and a nonexistent email must be
	// indistinguishable
	_, err1 := svc.Login(context.Background(), "a@x.com", "wrong")
	_, err2 := svc.Login(context.Background(), "ghost@x.com", "p1")
	if !errors.Is(err1, ErrInvalidCredentials) || !errors.Is(err2, ErrInvalidCredentials) {
		t.Fatalf("expected uniform ErrInvalidCredentials, got %v / %v", err1, err2)
	}
}

func TestLogin_Blocked(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	id, _ := svc.Register(context.Background(), "A", "a@x.com", "p1")
	if _, err := svc.Block(context.Background(), []int64{id}); err != nil {
		t.Fatalf("block: %v", err)
	}

	_, err := svc.Login(context.Background(), "a@x.com", "p1")
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked after credential match, got %v", err)
	}
	if store.byID[id].LastLogin != nil {
		t.Fatal("blocked login must not stamp last_login")
	}

	// wrong password on the blocked account still reads as bad credentials
	_, err = svc.Login(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestBlockUnblockCounts(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	id1, _ := svc.Register(context.Background(), "A", "a@x.com", "p1")
	id2, _ := svc.Register(context.Background(), "B", "b@x.com", "p2")

	n, err := svc.Block(context.Background(), []int64{id1, id2, 999})
	if err != nil {
		t.Fatalf("Block error: %v", err)
	}
	if n != 2 {
		t.Fatalf("block count: got %d want 2", n)
	}
	if store.byID[id1].Status != entity.StatusBlocked || store.byID[id2].Status != entity.StatusBlocked {
		t.Fatal("accounts not blocked")
	}

	n, err = svc.Unblock(context.Background(), []int64{id1})
	if err != nil {
		t.Fatalf("Unblock error: %v", err)
	}
	if n != 1 || store.byID[id1].Status != entity.StatusActive {
		t.Fatalf("unblock did not restore active status (count %d)", n)
	}
}

func TestRemove(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	id, _ := svc.Register(context.Background(), "A", "a@x.com", "p1")
	n, err := svc.Remove(context.Background(), []int64{id})
	if err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if n != 1 {
		t.Fatalf("delete count: got %d want 1", n)
	}
	if _, err := store.GetByID(context.Background(), id); !errors.Is(err, sql.ErrNoRows) {
		t.Fatal("row still present after delete")
	}
}
