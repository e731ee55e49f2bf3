package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	userrepo "github.com/yungbote/estrella-backend/internal/data/repos/user"
	types "github.com/yungbote/estrella-backend/internal/domain/user"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
)

const minPasswordLength = 8

type JWTClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type Token struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Role        ctxutil.Role `json:"role"`
	SessionID   uuid.UUID    `json:"session_id"`
}

type Identity struct {
	Role      ctxutil.Role `json:"role"`
	SessionID uuid.UUID    `json:"session_id"`
	User      *types.User  `json:"user,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*types.User, error)
	// Login keeps the caller's session id when the context already carries
	// one, so a guest cart survives signing in.
	Login(ctx context.Context, email, password string) (Token, error)
	Guest(ctx context.Context) (Token, error)
	Me(ctx context.Context) (Identity, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	EnsureAdmin(ctx context.Context, email, password string) error
	GetAccessTTL() time.Duration
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     userrepo.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo userrepo.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	serviceLog := log.With("service", "AuthService")
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		db:           db,
		log:          serviceLog,
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

func normalizeCredentials(email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password required: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", fmt.Errorf("invalid email: %w", pkgerrors.ErrInvalidArgument)
	}
	return email, password, nil
}

func (as *authService) Register(ctx context.Context, email, password, name string) (*types.User, error) {
	email, password, err := normalizeCredentials(email, password)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, pkgerrors.ErrInvalidArgument)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *types.User
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := as.userRepo.EmailExists(ctx, tx, email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("email already registered: %w", pkgerrors.ErrConflict)
		}
		u, err := as.userRepo.Create(ctx, tx, &types.User{
			Email:    email,
			Password: string(hashed),
			Name:     strings.TrimSpace(name),
			Role:     string(ctxutil.RoleUser),
		})
		if err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("User registered", "user_id", created.ID)
	return created, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (Token, error) {
	email, password, err := normalizeCredentials(email, password)
	if err != nil {
		return Token{}, err
	}
	u, err := as.userRepo.GetByEmail(ctx, nil, email)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return Token{}, fmt.Errorf("invalid credentials: %w", pkgerrors.ErrUnauthorized)
	}
	if err != nil {
		return Token{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return Token{}, fmt.Errorf("invalid credentials: %w", pkgerrors.ErrUnauthorized)
	}

	sessionID := uuid.New()
	if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.SessionID != uuid.Nil {
		sessionID = rd.SessionID
	}
	role := ctxutil.Role(u.Role)
	if !role.Valid() || role == ctxutil.RoleGuest {
		role = ctxutil.RoleUser
	}
	return as.issue(u.ID, sessionID, role)
}

func (as *authService) Guest(ctx context.Context) (Token, error) {
	return as.issue(uuid.New(), uuid.New(), ctxutil.RoleGuest)
}

func (as *authService) issue(subject, sessionID uuid.UUID, role ctxutil.Role) (Token, error) {
	now := as.now()
	expiresAt := now.Add(as.accessTTL)
	claims := JWTClaims{
		SessionID: sessionID.String(),
		Role:      string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, ExpiresAt: expiresAt, Role: role, SessionID: sessionID}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", pkgerrors.ErrUnauthorized)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired token: %w", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid subject in token: %w", pkgerrors.ErrUnauthorized)
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return ctx, fmt.Errorf("invalid session in token: %w", pkgerrors.ErrUnauthorized)
	}
	role := ctxutil.Role(claims.Role)
	if !role.Valid() {
		return ctx, fmt.Errorf("invalid role in token: %w", pkgerrors.ErrUnauthorized)
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		SessionID:   sessionID,
		Role:        role,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) Me(ctx context.Context) (Identity, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.SessionID == uuid.Nil {
		return Identity{Role: ctxutil.RoleNone}, fmt.Errorf("no session: %w", pkgerrors.ErrUnauthorized)
	}
	out := Identity{Role: rd.Role, SessionID: rd.SessionID}
	if rd.Role == ctxutil.RoleGuest {
		return out, nil
	}
	u, err := as.userRepo.GetByID(ctx, nil, rd.UserID)
	if err != nil {
		return out, err
	}
	out.User = u
	return out, nil
}

// EnsureAdmin creates or promotes the bootstrap admin. Empty inputs are a no-op.
func (as *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}
	u, err := as.userRepo.GetByEmail(ctx, nil, email)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		created, err := as.Register(ctx, email, password, "Admin")
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		u = created
	} else if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if u.Role == string(ctxutil.RoleAdmin) {
		return nil
	}
	if err := as.userRepo.UpdateRole(ctx, nil, u.ID, string(ctxutil.RoleAdmin)); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	as.log.Info("Admin account ready", "user_id", u.ID)
	return nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
