package userstore

import (
	"errors"

	"gorm.io/gorm"

	"ragchatbot/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Store wraps the relational database handle for user persistence.
type Store struct {
	DB *gorm.DB
}

// NewStore creates a Store and migrates the user table.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// CreateUser inserts a new user record.
func (s *Store) CreateUser(user *models.User) error {
	return s.DB.Create(user).Error
}

// GetUserByUsername looks a user up by login name.
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID looks a user up by primary key.
func (s *Store) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser saves changes to an existing user.
func (s *Store) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}
