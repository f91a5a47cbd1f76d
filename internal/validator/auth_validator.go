package validator

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"eatoff/internal/repository"
	"eatoff/internal/usecase"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

const (
	minPasswordLen = 8
	// bcryptは72バイトまでしか見ない
	maxPasswordBytes = 72
	maxNameLen       = 100
)

type authValidator struct {
	users repository.UserRepository
}

func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

func (v *authValidator) ValidateRegister(ctx context.Context, req usecase.AuthRegisterRequest) error {
	if err := checkCredentials(req.Email, req.Password); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLen || len(req.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLen, maxPasswordBytes)
	}
	if utf8.RuneCountInString(req.FirstName) > maxNameLen || utf8.RuneCountInString(req.LastName) > maxNameLen {
		return fmt.Errorf("%w: name too long", ErrInvalidInput)
	}

	// email重複（DBが落ちているときは登録させない）
	_, err := v.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return ErrEmailAlreadyUsed
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	return checkCredentials(email, password)
}

func checkCredentials(email string, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	// "Name <a@b.c>" 形式は受け付けない
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@'):], ".") {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}
