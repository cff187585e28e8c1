package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/farelProject/v-technology/internal/model"
)

const (
	usersFile = "users.json"
	chatsFile = "chats.json"
)

// FileStore keeps users in users.json (an array) and sessions in chats.json
// (a map of user id to sessions). Every operation reads the files fresh so
// edits made by other tools are picked up; writes are serialized.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

type chatDatabase map[string][]model.ChatSession

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// writeJSON replaces the file atomically via a temp file and rename.
func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) readUsers() ([]model.User, error) {
	var users []model.User
	if err := s.readJSON(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *FileStore) readChats() (chatDatabase, error) {
	db := chatDatabase{}
	if err := s.readJSON(chatsFile, &db); err != nil {
		return nil, err
	}
	if db == nil {
		db = chatDatabase{}
	}
	return db, nil
}

func findUser(users []model.User, match func(*model.User) bool) int {
	for i := range users {
		if match(&users[i]) {
			return i
		}
	}
	return -1
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CreateUser appends a user; emails are unique ignoring case.
func (s *FileStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}
	if findUser(users, func(u *model.User) bool { return sameEmail(u.Email, user.Email) }) >= 0 {
		return ErrUserAlreadyExists
	}

	users = append(users, *user)
	return s.writeJSON(usersFile, users)
}

func (s *FileStore) getUser(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	i := findUser(users, match)
	if i < 0 {
		return nil, ErrUserNotFound
	}
	u := users[i]
	return &u, nil
}

func (s *FileStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(func(u *model.User) bool { return u.ID == id })
}

func (s *FileStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(func(u *model.User) bool { return sameEmail(u.Email, email) })
}

func (s *FileStore) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	return s.getUser(func(u *model.User) bool { return u.ResetTokenValid(token, now) })
}

func (s *FileStore) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUsers()
}

func (s *FileStore) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}
	i := findUser(users, func(u *model.User) bool { return u.ID == user.ID })
	if i < 0 {
		return ErrUserNotFound
	}
	limit := users[i].ChatLimit
	users[i] = *user
	users[i].ChatLimit = limit
	return s.writeJSON(usersFile, users)
}

func (s *FileStore) DeleteUser(ctx context.Context, id string) ([]model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	i := findUser(users, func(u *model.User) bool { return u.ID == id })
	if i < 0 {
		return nil, ErrUserNotFound
	}

	db, err := s.readChats()
	if err != nil {
		return nil, err
	}
	removed := db[id]
	if _, ok := db[id]; ok {
		delete(db, id)
		if err := s.writeJSON(chatsFile, db); err != nil {
			return nil, err
		}
	}

	users = append(users[:i], users[i+1:]...)
	if err := s.writeJSON(usersFile, users); err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *FileStore) UpdateChatLimit(ctx context.Context, userID string, fn func(*model.ChatLimit) error) (model.ChatLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return model.ChatLimit{}, err
	}
	i := findUser(users, func(u *model.User) bool { return u.ID == userID })
	if i < 0 {
		return model.ChatLimit{}, ErrUserNotFound
	}

	limit := users[i].ChatLimit
	if err := fn(&limit); err != nil {
		return users[i].ChatLimit, err
	}
	if limit == users[i].ChatLimit {
		return limit, nil
	}
	users[i].ChatLimit = limit
	if err := s.writeJSON(usersFile, users); err != nil {
		return model.ChatLimit{}, err
	}
	return limit, nil
}

func (s *FileStore) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.readChats()
	if err != nil {
		return nil, err
	}
	sessions := db[userID]
	sortRecentFirst(sessions)
	return sessions, nil
}

func (s *FileStore) GetSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.readChats()
	if err != nil {
		return nil, err
	}
	for _, session := range db[userID] {
		if session.ID == sessionID {
			return &session, nil
		}
	}
	return nil, ErrSessionNotFound
}

// SaveSession replaces the session with the same id or appends it.
func (s *FileStore) SaveSession(ctx context.Context, userID string, session *model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}
	if findUser(users, func(u *model.User) bool { return u.ID == userID }) < 0 {
		return ErrUserNotFound
	}

	db, err := s.readChats()
	if err != nil {
		return err
	}

	saved := *session
	saved.UserID = userID
	saved.Messages = append([]model.Message(nil), session.Messages...)
	stripLoading(&saved)

	sessions := db[userID]
	replaced := false
	for i := range sessions {
		if sessions[i].ID == saved.ID {
			sessions[i] = saved
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, saved)
	}
	db[userID] = sessions

	return s.writeJSON(chatsFile, db)
}

func (s *FileStore) DeleteSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.readChats()
	if err != nil {
		return nil, err
	}

	sessions := db[userID]
	for i := range sessions {
		if sessions[i].ID == sessionID {
			removed := sessions[i]
			db[userID] = append(sessions[:i], sessions[i+1:]...)
			if err := s.writeJSON(chatsFile, db); err != nil {
				return nil, err
			}
			return &removed, nil
		}
	}
	return nil, ErrSessionNotFound
}

// Ping checks the data directory is still writable.
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data dir unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.dir)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
