// Package entity defines the request and response bodies of the HTTP API.
package entity

import "github.com/userhub/userhub/database/model"

// AddUserForm is the body of POST /add_user. Fields are pointers so that an absent or null
// field fails binding while an empty string is accepted.
type AddUserForm struct {
	Name     *string `json:"Name" form:"Name" binding:"required"`
	Password *string `json:"Password" form:"Password" binding:"required"`
	Role     *string `json:"Role" form:"Role" binding:"required"`
}

// LoginForm is the body of POST /login.
type LoginForm struct {
	Name     *string `json:"name" form:"name" binding:"required"`
	Password *string `json:"password" form:"password" binding:"required"`
}

// UserResponse is the public view of a user; the digest never leaves the service.
type UserResponse struct {
	Name string `json:"Name"`
	Role string `json:"Role"`
}

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Detail string `json:"detail"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{Name: u.Name, Role: u.Role}
}

func NewUserResponses(users []model.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
