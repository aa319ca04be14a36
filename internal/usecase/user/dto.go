package user

import (
	"time"

	domain "usuarios-service/internal/domain/user"
)

// CreateUserRequest represents the request payload for creating a new user.
// Any identifier sent by the caller is ignored; storage assigns one.
type CreateUserRequest struct {
	Name      string
	Email     string
	CPF       string
	BirthDate time.Time
}

// UpdateUserRequest represents the request payload for replacing an existing user.
// ID always comes from the request path.
type UpdateUserRequest struct {
	ID        int64
	Name      string
	Email     string
	CPF       string
	BirthDate time.Time
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID int64
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// FilterUsersRequest selects users born strictly after BornAfter (YYYY-MM-DD).
type FilterUsersRequest struct {
	BornAfter string
}

// ListUsersResponse represents the response payload for user listing.
type ListUsersResponse struct {
	Users []User
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID        int64
	Name      string
	Email     string
	CPF       string
	BirthDate time.Time
}

func toDTO(u domain.User) User {
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CPF:       u.CPF,
		BirthDate: u.BirthDate,
	}
}

func toDTOs(users []domain.User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = toDTO(u)
	}
	return out
}
