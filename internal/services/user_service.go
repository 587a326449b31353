package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/microblog-be/internal/database"
	"github.com/isdelr/microblog-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, username, email, password string) (models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (models.User, error)
	UpdateProfile(ctx context.Context, id, username, aboutMe string) (models.User, error)
	TouchLastSeen(ctx context.Context, id string) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// UserService provides business logic for user accounts.
type UserService struct {
	db     *database.DB
	events EventServiceProvider
	now    Clock
}

// NewUserService creates a new UserService.
func NewUserService(db *database.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events, now: systemClock}
}

// WithClock replaces the time source.
func (s *UserService) WithClock(now Clock) *UserService {
	s.now = now
	return s
}

const userColumns = "id, username, email, password_hash, about_me, last_seen, created_at"

func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.AboutMe, &user.LastSeen, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("user with ID %s: %w", id, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// GetUserByUsername retrieves a single user by their username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	user, err := s.getWithHash(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) getWithHash(ctx context.Context, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("user %s: %w", username, err)
	}
	return user, nil
}

// UsernameTaken reports whether a username is already registered.
func (s *UserService) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username)
}

// EmailTaken reports whether an email is already registered.
func (s *UserService) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email)
}

func (s *UserService) exists(ctx context.Context, query, arg string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateUser registers a new user, hashing their password.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (models.User, error) {
	if taken, err := s.UsernameTaken(ctx, username); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, ErrUsernameTaken
	}
	if taken, err := s.EmailTaken(ctx, email); err != nil {
		return models.User{}, err
	} else if taken {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := stamp(s.now)
	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		LastSeen:     now,
		CreatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, about_me, last_seen, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.AboutMe, user.LastSeen, user.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	record(ctx, s.events, user.ID, models.EventUserRegister, fmt.Sprintf("Registered as %s.", user.Username))

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.getWithHash(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	record(ctx, s.events, user.ID, models.EventUserLogin, "Signed in.")

	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile changes a user's username and about-me text.
func (s *UserService) UpdateProfile(ctx context.Context, id, username, aboutMe string) (models.User, error) {
	current, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if username != current.Username {
		if taken, err := s.UsernameTaken(ctx, username); err != nil {
			return models.User{}, err
		} else if taken {
			return models.User{}, ErrUsernameTaken
		}
	}

	_, err = s.db.ExecContext(ctx, "UPDATE users SET username = ?, about_me = ? WHERE id = ?", username, aboutMe, id)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to update profile: %w", err)
	}

	record(ctx, s.events, id, models.EventProfileUpdate, "Updated profile.")
	return s.GetUserByID(ctx, id)
}

// TouchLastSeen marks the user as active now.
func (s *UserService) TouchLastSeen(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET last_seen = ? WHERE id = ?", stamp(s.now), id)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user with ID %s: %w", id, ErrUserNotFound)
	}
	return nil
}
