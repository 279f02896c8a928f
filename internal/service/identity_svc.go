package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mathieu-neron/postrate/internal/auth"
	"github.com/mathieu-neron/postrate/internal/model"
	"github.com/mathieu-neron/postrate/pkg/hash"
)

// TokenValidator resolves a session token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// IdentityService turns request credentials into a model.Identity.
type IdentityService struct {
	voters    VoterStore
	validator TokenValidator
	salt      string
}

func NewIdentityService(voters VoterStore, validator TokenValidator, salt string) *IdentityService {
	return &IdentityService{voters: voters, validator: validator, salt: salt}
}

// Resolve returns Anonymous when no bearer credential is presented and
// Registered when the credential names a known voter. A credential that is
// present but unusable yields model.ErrInvalidSession.
func (s *IdentityService) Resolve(ctx context.Context, ip, authorization string) (model.Identity, error) {
	address := hash.HashIP(ip, s.salt)

	token, ok := auth.BearerToken(authorization)
	if !ok {
		if authorization != "" {
			return nil, fmt.Errorf("%w: unsupported authorization scheme", model.ErrInvalidSession)
		}
		return model.Anonymous{Address: address}, nil
	}
	if s.validator == nil {
		return nil, fmt.Errorf("%w: sessions are not configured", model.ErrInvalidSession)
	}

	userID, err := s.validator.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSession, err)
	}

	profile, err := s.voters.FindVoter(ctx, userID)
	if errors.Is(err, model.ErrVoterNotFound) {
		return nil, fmt.Errorf("%w: unknown user", model.ErrInvalidSession)
	}
	if err != nil {
		return nil, err
	}
	return model.Registered{Address: address, Profile: profile}, nil
}
