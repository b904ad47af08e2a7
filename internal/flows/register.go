package flows

import (
	"context"
	"errors"
	"strings"
)

// RegisterFailureKind classifies registration failures.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalid
	RegisterFailureExistsLookup
	RegisterFailureDuplicate
	RegisterFailureHash
	RegisterFailureCreate
)

// NewAccount is a registration after hashing.
type NewAccount struct {
	Email        string
	PasswordHash string
	Nickname     string
	Role         string
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	Exists func(ctx context.Context, email string) (bool, error)
	Hash   func(plaintext string) (string, error)
	// Create persists the account. Extra profile fields travel in the closure.
	Create      func(ctx context.Context, acct NewAccount) (Account, error)
	DefaultRole string
	// Duplicate is the error Create returns when a concurrent registration won.
	Duplicate error
}

// RegisterInput is the caller-supplied part of a registration.
type RegisterInput struct {
	Email    string
	Password string
	Nickname string
}

// RegisterResult carries the created account or failure metadata.
type RegisterResult struct {
	Failure RegisterFailureKind
	Err     error
	Account Account
}

// RunRegister validates, checks uniqueness, hashes and creates an account with the default role.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) RegisterResult {
	if err := validateRegistration(in); err != nil {
		return RegisterResult{Failure: RegisterFailureInvalid, Err: err}
	}

	exists, err := deps.Exists(ctx, in.Email)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureExistsLookup, Err: err}
	}
	if exists {
		return RegisterResult{Failure: RegisterFailureDuplicate}
	}

	hash, err := deps.Hash(in.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err}
	}

	acct, err := deps.Create(ctx, NewAccount{
		Email:        in.Email,
		PasswordHash: hash,
		Nickname:     in.Nickname,
		Role:         deps.DefaultRole,
	})
	if err != nil {
		if deps.Duplicate != nil && errors.Is(err, deps.Duplicate) {
			return RegisterResult{Failure: RegisterFailureDuplicate, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureCreate, Err: err}
	}

	return RegisterResult{Failure: RegisterFailureNone, Account: acct}
}

func validateRegistration(in RegisterInput) error {
	at := strings.IndexByte(in.Email, '@')
	switch {
	case in.Email == "":
		return errors.New("email is required")
	case at <= 0 || at == len(in.Email)-1:
		return errors.New("email is malformed")
	case in.Password == "":
		return errors.New("password is required")
	case in.Nickname == "":
		return errors.New("nickname is required")
	}
	return nil
}
