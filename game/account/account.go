// Package account registers players, issues session tokens and checks them
// on every authenticated request.
package account

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/config"
	"github.com/kasuganosora/dreamrealm/game/clock"
	"github.com/kasuganosora/dreamrealm/game/errs"
	"github.com/kasuganosora/dreamrealm/model"
	"github.com/kasuganosora/dreamrealm/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MinUsername = 2
	MaxUsername = 32
	MinPassword = 6
	// bcrypt ignores input past 72 bytes.
	MaxPassword = 72
)

// Provisioner creates the starting world of a new account inside the
// registration transaction.
type Provisioner interface {
	Provision(tx *gorm.DB, accountID int64) error
}

// Session is returned by Register and Login.
type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Service implements Register, Login, Logout and token checks.
type Service struct {
	gw     *store.Gateway
	kv     cache.Cache
	prov   Provisioner
	tokens *Tokens
	cost   int
	clock  clock.Clock
	logger *zap.Logger
}

// NewService wires the account service.
func NewService(gw *store.Gateway, kv cache.Cache, prov Provisioner, sec config.SecurityConfig, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cost := sec.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		gw:     gw,
		kv:     kv,
		prov:   prov,
		tokens: NewTokens(sec.JWTSecret, sec.JWTTTLH, clk),
		cost:   cost,
		clock:  clk,
		logger: logger,
	}
}

func sessionKey(token string) string { return "session:" + token }

func bannedKey(accountID int64) string { return fmt.Sprintf("banned:%d", accountID) }

func validateUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinUsername || n > MaxUsername {
		return errs.Newf(errs.KindInvalidArgument, "username must be %d-%d characters", MinUsername, MaxUsername)
	}
	return nil
}

// Register creates the account and its starting world in one unit.
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < MinPassword {
		return nil, errs.Newf(errs.KindWeakPassword, "password must be at least %d characters", MinPassword)
	}
	if len(password) > MaxPassword {
		return nil, errs.Newf(errs.KindInvalidArgument, "password must be at most %d bytes", MaxPassword)
	}

	if _, err := store.AccountByUsername(s.gw.DB(ctx), username); err == nil {
		return nil, errs.New(errs.KindUsernameTaken, "username already taken")
	} else if !errs.Is(err, errs.KindNotFound) {
		return nil, errs.Unavailable(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &model.Account{Username: username, PasswordHash: string(hash), Status: model.AccountNormal}
	err = s.gw.Atomic(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(acc).Error; err != nil {
			if store.IsUniqueViolation(err) {
				return errs.New(errs.KindUsernameTaken, "username already taken")
			}
			return err
		}
		return s.prov.Provision(tx, acc.ID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered", zap.Int64("account_id", acc.ID), zap.String("username", username))
	return s.open(ctx, acc)
}

// Login verifies credentials and opens a new session. ip is recorded as the
// last login address.
func (s *Service) Login(ctx context.Context, username, password, ip string) (*Session, error) {
	acc, err := store.AccountByUsername(s.gw.DB(ctx), strings.TrimSpace(username))
	if errs.Is(err, errs.KindNotFound) {
		return nil, errs.New(errs.KindInvalidCredentials, "invalid credentials")
	}
	if err != nil {
		return nil, errs.Unavailable(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, errs.New(errs.KindInvalidCredentials, "invalid credentials")
	}
	if acc.Status == model.AccountBanned {
		return nil, errs.Forbidden("account banned")
	}

	// Best effort.
	now := s.clock.Now().UTC()
	if err := s.gw.DB(ctx).Model(acc).Updates(map[string]interface{}{
		"last_login_at": now,
		"last_login_ip": ip,
	}).Error; err != nil {
		s.logger.Warn("record login failed", zap.Int64("account_id", acc.ID), zap.Error(err))
	}
	return s.open(ctx, acc)
}

func (s *Service) open(ctx context.Context, acc *model.Account) (*Session, error) {
	token, err := s.tokens.Generate(acc.ID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	if err := s.kv.Set(ctx, sessionKey(token), strconv.FormatInt(acc.ID, 10), s.tokens.TTL()); err != nil {
		return nil, errs.Unavailable(err)
	}
	return &Session{UserID: acc.ID, Username: acc.Username, Token: token}, nil
}

// Logout revokes token. Revoking an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return errs.InvalidArgument("missing token")
	}
	if err := s.kv.Del(ctx, sessionKey(token)); err != nil {
		return errs.Unavailable(err)
	}
	return nil
}

// Authenticate returns the account behind a live session token.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return 0, errs.Wrap(errs.KindInvalidCredentials, "invalid token", err)
	}
	ok, err := s.kv.Exists(ctx, sessionKey(token))
	if err != nil {
		return 0, errs.Unavailable(err)
	}
	if !ok {
		return 0, errs.New(errs.KindInvalidCredentials, "session expired")
	}
	banned, err := s.kv.Exists(ctx, bannedKey(claims.AccountID))
	if err != nil {
		return 0, errs.Unavailable(err)
	}
	if banned {
		return 0, errs.Forbidden("account banned")
	}
	return claims.AccountID, nil
}

// SetBanned bans or unbans an account. Live sessions of a banned account
// are refused until their tokens expire.
func (s *Service) SetBanned(ctx context.Context, accountID int64, banned bool) error {
	status := model.AccountNormal
	if banned {
		status = model.AccountBanned
	}
	err := s.gw.Atomic(ctx, func(tx *gorm.DB) error {
		if _, err := store.Account(tx, accountID); err != nil {
			return err
		}
		return tx.Model(&model.Account{}).Where("id = ?", accountID).Update("status", status).Error
	})
	if err != nil {
		return err
	}
	if banned {
		err = s.kv.Set(ctx, bannedKey(accountID), "1", s.tokens.TTL())
	} else {
		err = s.kv.Del(ctx, bannedKey(accountID))
	}
	if err != nil {
		return errs.Unavailable(err)
	}
	s.logger.Info("account status changed", zap.Int64("account_id", accountID), zap.Bool("banned", banned))
	return nil
}

// Tokens exposes the signer, mostly for tests.
func (s *Service) Tokens() *Tokens { return s.tokens }

func newTokenID() string { return uuid.NewString() }
