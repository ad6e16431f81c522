package fakeapi

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/smartpocket/console/core"
)

var (
	// errors
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailExists     = errors.New("an account with this email already exists")
)

// Account is a platform user known to the stub API.
type Account struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	SchoolID     string `json:"school_id,omitempty"`
	SchoolName   string `json:"school_name,omitempty"`
	IsActive     bool   `json:"is_active"`
	PasswordHash []byte `json:"-"`
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// identity is the wire representation used by login and profile responses.
func (a *Account) identity() map[string]interface{} {
	ident := map[string]interface{}{
		"id":    a.ID,
		"email": a.Email,
		"role":  a.Role,
		"name":  a.Name,
	}
	if a.SchoolID != "" {
		ident["school_id"] = a.SchoolID
		ident["school_name"] = a.SchoolName
	}
	return ident
}

// NewAccount contains information needed to seed an Account.
type NewAccount struct {
	Name       string
	Email      string
	Password   string
	Role       string
	SchoolID   string
	SchoolName string
}

// AccountStore is the stub API's in-memory account table.
type AccountStore struct {
	mu      sync.RWMutex
	byID    map[int]*Account
	pkCount int
}

func NewAccountStore() *AccountStore {
	return &AccountStore{byID: make(map[int]*Account)}
}

func (store *AccountStore) Create(na NewAccount) (Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	email := core.CleanString(na.Email, true /* lower */)
	for _, acct := range store.byID {
		if acct.Email == email {
			return Account{}, ErrEmailExists
		}
	}

	store.pkCount++
	acct := Account{
		ID:         store.pkCount,
		Name:       core.CleanString(na.Name),
		Email:      email,
		Role:       na.Role,
		SchoolID:   na.SchoolID,
		SchoolName: na.SchoolName,
		IsActive:   true,
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, err
	}
	store.byID[acct.ID] = &acct
	return acct, nil
}

func (store *AccountStore) GetByID(id int) (Account, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	if acct, ok := store.byID[id]; ok {
		return *acct, nil
	}
	return Account{}, ErrAccountNotFound
}

func (store *AccountStore) GetByEmail(email string) (Account, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	email = core.CleanString(email, true /* lower */)
	for _, acct := range store.byID {
		if acct.Email == email {
			return *acct, nil
		}
	}
	return Account{}, ErrAccountNotFound
}
