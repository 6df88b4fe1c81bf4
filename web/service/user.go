package service

import (
	"context"
	"errors"

	"github.com/userhub/userhub/database"
	"github.com/userhub/userhub/database/model"
	"github.com/userhub/userhub/logger"
	"github.com/userhub/userhub/util/crypto"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserService is the user record store. Every call opens its own gorm session bound to ctx.
type UserService struct {
	db     *gorm.DB
	hasher crypto.Hasher
}

func NewUserService(db *gorm.DB, hasher crypto.Hasher) *UserService {
	return &UserService{db: db, hasher: hasher}
}

func (s *UserService) session(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// CreateUser inserts a record whose password is already digested and returns it with its id.
func (s *UserService) CreateUser(ctx context.Context, name, passwordHash, role string) (*model.User, error) {
	user := &model.User{
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
	}
	err := s.session(ctx).Create(user).Error
	if database.IsDuplicate(err) {
		return nil, ErrUserExists
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// AddUser digests the plaintext password and stores the new user.
func (s *UserService) AddUser(ctx context.Context, name, password, role string) (*model.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := s.CreateUser(ctx, name, hash, role)
	if err != nil {
		return nil, err
	}
	logger.Infof("user %q created with id %d", user.Name, user.Id)
	return user, nil
}

// ListUsers returns every user in storage order.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0)
	if err := s.session(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserService) GetUserById(ctx context.Context, id int) (*model.User, error) {
	user := &model.User{}
	err := s.session(ctx).
		Where("id = ?", id).
		First(user).
		Error
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByName looks a user up by name; names are unique.
func (s *UserService) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	user := &model.User{}
	err := s.session(ctx).
		Where("name = ?", name).
		First(user).
		Error
	if database.IsNotFound(err) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// CheckUser authenticates name/password. An unknown name and a wrong password both yield
// ErrInvalidCredentials.
func (s *UserService) CheckUser(ctx context.Context, name, password string) (*model.User, error) {
	user, err := s.GetUserByName(ctx, name)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		logger.Warning("check user err:", err)
		return nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
