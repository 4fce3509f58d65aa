package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// SessionRegistry tracks a login generation per user. A token is only
// accepted while its generation is the user's current one, so bumping the
// generation revokes every token issued before.
type SessionRegistry struct {
	mu   sync.Mutex
	gens map[string]int64
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{gens: map[string]int64{}}
}

// Current returns the user's generation
func (r *SessionRegistry) Current(userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[userID]
}

// Bump moves the user to a new generation and returns it
func (r *SessionRegistry) Bump(userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[userID]++
	return r.gens[userID]
}

var (
	compareSecret = bcrypt.CompareHashAndPassword

	dummyHash = sync.OnceValue(func() []byte {
		hash, err := bcrypt.GenerateFromPassword([]byte("kasciraya-no-such-user"), bcrypt.DefaultCost)
		if err != nil {
			panic(fmt.Sprintf("hash dummy password: %v", err))
		}
		return hash
	})
)

// Authentication methods
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	// Unknown users are checked against a fixed hash so both failures cost
	// one bcrypt comparison
	hash := dummyHash()
	if user != nil {
		hash = []byte(user.Password)
	}
	if err := compareSecret(hash, []byte(req.Password)); err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	// A caller that gave up while the hash was compared gets no session
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Generate JWT token
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", utils.FieldActor, user.ID, "username", user.Username)

	return &models.AuthResponse{
		Status:       "success",
		UserID:       user.ID,
		Username:     user.Username,
		Name:         user.Name,
		Role:         user.Role,
		Capabilities: models.CapabilitiesFor(user.Role),
		Token:        token,
		ExpiresIn:    int(s.tokenDuration.Seconds()),
	}, nil
}

// Logout revokes every token the actor holds
func (s *DefaultService) Logout(ctx context.Context, actor *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	s.sessions.Bump(actor.ID)
	s.logger.InfoContext(ctx, "user logged out", utils.FieldActor, actor.ID)
	return nil
}

// Authenticate resolves a bearer token to the current state of its user
func (s *DefaultService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	// Extract claims from the token
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: invalid user ID in token", ErrUnauthenticated)
	}

	gen, ok := claims["gen"].(float64)
	if !ok || int64(gen) != s.sessions.Current(userID) {
		return nil, fmt.Errorf("%w: session has ended", ErrUnauthenticated)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
	}

	return user, nil
}

// Me describes the actor and what their role allows
func (s *DefaultService) Me(_ context.Context, actor *models.User) (*models.MeResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return &models.MeResponse{
		Status:       "success",
		User:         *actor,
		Capabilities: models.CapabilitiesFor(actor.Role),
	}, nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"gen": s.sessions.Current(user.ID),
		"exp": now.Add(s.tokenDuration).Unix(),
		"iat": now.Unix(),
	})

	return token.SignedString(s.jwtSecret)
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hashed), nil
}
