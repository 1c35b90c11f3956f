package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/internal/store"
)

type fakeObjectStore struct {
	mu        sync.Mutex
	uploads   []string
	deletes   [][]string
	failOn    map[string]error
	deleteErr error
	next      int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{failOn: map[string]error{}}
}

func (f *fakeObjectStore) Upload(_ context.Context, localPath string) (*models.MediaAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, localPath)
	if err, ok := f.failOn[localPath]; ok {
		return nil, err
	}
	f.next++
	id := fmt.Sprintf("asset-%d", f.next)
	return &models.MediaAsset{PublicID: id, URL: "https://cdn.example.com/image/upload/v1/" + id + ".png"}, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, publicIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, append([]string(nil), publicIDs...))
	return f.deleteErr
}

// fakeUserStore is an in-memory store.UserStore keyed by id.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	seq     int
	creates int

	existsErr   error
	createErr   error
	findErr     error
	setTokenErr error
	updateErr   error
	// dropAfterCreate makes FindByID miss the record just inserted.
	dropAfterCreate bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (s *fakeUserStore) put(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		s.seq++
		u.ID = fmt.Sprintf("u%d", s.seq)
	}
	cp := *u
	s.users[u.ID] = &cp
	return &cp
}

func (s *fakeUserStore) get(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (s *fakeUserStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) Create(_ context.Context, u *models.User) (string, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	cp := *u
	cp.ID = ""
	stored := s.put(&cp)
	if s.dropAfterCreate {
		s.mu.Lock()
		delete(s.users, stored.ID)
		s.mu.Unlock()
	}
	return stored.ID, nil
}

func (s *fakeUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.FindByIDWithSecrets(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (s *fakeUserStore) FindByIDWithSecrets(_ context.Context, id string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if u := s.get(id); u != nil {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeUserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeUserStore) mutate(id string, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	return nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, id, token string) error {
	if s.setTokenErr != nil {
		return s.setTokenErr
	}
	return s.mutate(id, func(u *models.User) { u.RefreshToken = token })
}

func (s *fakeUserStore) ClearRefreshToken(_ context.Context, id string) error {
	return s.mutate(id, func(u *models.User) { u.RefreshToken = "" })
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, hash string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.mutate(id, func(u *models.User) { u.Password = hash })
}

func (s *fakeUserStore) updated(id string, fn func(u *models.User)) (*models.User, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if err := s.mutate(id, fn); err != nil {
		return nil, err
	}
	return s.get(id).Public(), nil
}

func (s *fakeUserStore) UpdateDetails(_ context.Context, id, fullName, email string) (*models.User, error) {
	s.mu.Lock()
	for _, u := range s.users {
		if u.ID != id && u.Email == email {
			s.mu.Unlock()
			return nil, store.ErrDuplicate
		}
	}
	s.mu.Unlock()
	return s.updated(id, func(u *models.User) { u.FullName, u.Email = fullName, email })
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id string, avatar models.MediaAsset) (*models.User, error) {
	return s.updated(id, func(u *models.User) { u.Avatar = avatar })
}

func (s *fakeUserStore) UpdateCoverImage(_ context.Context, id string, cover *models.MediaAsset) (*models.User, error) {
	return s.updated(id, func(u *models.User) { u.CoverImage = cover })
}

var errBoom = errors.New("boom")

var _ store.UserStore = (*fakeUserStore)(nil)
