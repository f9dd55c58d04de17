package inmemdb

import (
	"github.com/acevedod1974/gradebook/core/auth"
)

type credentialStore struct {
	db *credentialTable
}

var _ auth.CredentialStore = (*credentialStore)(nil)

func NewCredentialStore(db *DB) auth.CredentialStore {
	return &credentialStore{db: db.cred}
}

func (store *credentialStore) SetPassword(email, password string) error {
	store.db.Lock()
	defer store.db.Unlock()

	store.db.table[email] = password
	return nil
}

func (store *credentialStore) GetPassword(email string) (string, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	pwd, ok := store.db.table[email]
	if !ok {
		return "", auth.ErrCredentialNotFound
	}
	return pwd, nil
}

func (store *credentialStore) DeletePassword(email string) error {
	store.db.Lock()
	defer store.db.Unlock()

	if _, ok := store.db.table[email]; !ok {
		return auth.ErrCredentialNotFound
	}
	delete(store.db.table, email)
	return nil
}

func (store *credentialStore) AllPasswords() (map[string]string, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	passwords := make(map[string]string, len(store.db.table))
	for email, pwd := range store.db.table {
		passwords[email] = pwd
	}
	return passwords, nil
}

func (store *credentialStore) ReplaceAll(passwords map[string]string) error {
	store.db.Lock()
	defer store.db.Unlock()

	store.db.table = make(map[string]string, len(passwords))
	for email, pwd := range passwords {
		store.db.table[email] = pwd
	}
	return nil
}
