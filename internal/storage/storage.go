// Package storage keeps the two persisted documents (accounts and content)
// in memory behind a single writer lock, mirroring every mutation to disk
// before the mutation is reported as successful.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Khosro2099/Gut-Crush-bot/internal/models"
)

// ErrPersist wraps any failure to write a document to disk. A mutation that
// hits it is rolled back by reloading the documents, so callers may treat it
// as "nothing happened".
var ErrPersist = errors.New("storage: persist failed")

// Store holds both documents. Each document is read entirely at startup and
// rewritten entirely after every mutation; there are no partial writes.
type Store struct {
	mu           sync.Mutex
	accountsPath string
	contentPath  string
	accounts     *models.Accounts
	content      *models.Content
}

// Open loads the documents at the given paths. Missing files yield empty
// documents; malformed files are an error.
func Open(accountsPath, contentPath string) (*Store, error) {
	s := &Store{accountsPath: accountsPath, contentPath: contentPath}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	accounts := models.NewAccounts()
	if err := readDocument(s.accountsPath, accounts); err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	// Older documents may predate some maps.
	if accounts.Admins == nil {
		accounts.Admins = make(map[string]*models.Admin)
	}
	if accounts.AdminRequests == nil {
		accounts.AdminRequests = make(map[string]*models.AdminRequest)
	}
	if accounts.Users == nil {
		accounts.Users = make(map[string]*models.User)
	}
	if accounts.CoinRequests == nil {
		accounts.CoinRequests = make(map[string]*models.CoinRequest)
	}
	if accounts.MessageHistory == nil {
		accounts.MessageHistory = make(map[string][]models.HistoryEntry)
	}

	content := &models.Content{}
	if err := readDocument(s.contentPath, content); err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	s.accounts = accounts
	s.content = content
	return nil
}

// View runs fn with read access to both documents under the store lock.
// fn must not retain or mutate what it is given.
func (s *Store) View(fn func(a *models.Accounts, c *models.Content)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.accounts, s.content)
}

// Update runs fn under the store lock and, if it succeeds, rewrites both
// documents. If fn fails it must leave the documents untouched (validate
// first, mutate after). If the rewrite fails the in-memory state is reloaded
// from disk, undoing the mutation, and ErrPersist is returned.
func (s *Store) Update(fn func(a *models.Accounts, c *models.Content) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.accounts, s.content); err != nil {
		return err
	}

	if err := s.persist(); err != nil {
		if loadErr := s.load(); loadErr != nil {
			// Disk state is unreadable on top of the failed write; keep the
			// in-memory documents rather than dropping everything.
			return fmt.Errorf("%w: %v (rollback reload also failed: %v)", ErrPersist, err, loadErr)
		}
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// persist stages both documents as temp files before renaming either, so a
// failure while writing one never leaves the other half-updated on disk.
func (s *Store) persist() error {
	accTmp, err := stageDocument(s.accountsPath, s.accounts)
	if err != nil {
		return err
	}
	conTmp, err := stageDocument(s.contentPath, s.content)
	if err != nil {
		os.Remove(accTmp)
		return err
	}
	if err := os.Rename(accTmp, s.accountsPath); err != nil {
		os.Remove(accTmp)
		os.Remove(conTmp)
		return err
	}
	if err := os.Rename(conTmp, s.contentPath); err != nil {
		os.Remove(conTmp)
		return err
	}
	return nil
}

func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// stageDocument writes v to a temp file next to path and returns the temp
// name; the caller renames it into place once every document is staged.
func stageDocument(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}
