package model

import "time"

// Trainee represents a learner working through training modules.
type Trainee struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TraineeLoginRequest is the payload for trainee authentication.
type TraineeLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// TraineeLoginResponse is returned after successful trainee login.
type TraineeLoginResponse struct {
	Token   string  `json:"token"`
	Trainee Trainee `json:"trainee"`
}
