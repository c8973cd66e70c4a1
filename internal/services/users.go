package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartfarm-iot/apiserver/internal/identity"
	"github.com/smartfarm-iot/apiserver/internal/store"
	"github.com/smartfarm-iot/apiserver/types"
)

// ErrAccountDisabled is returned when an operation targets a
// soft-deleted account.
var ErrAccountDisabled = errors.New("account disabled")

// ErrSelfDelete is returned when an admin tries to soft-delete their
// own account.
var ErrSelfDelete = errors.New("cannot delete own account")

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByUID(ctx context.Context, uid string) (types.Account, error)
	Create(ctx context.Context, account types.Account) error
	UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) error
	List(ctx context.Context) ([]types.Account, error)
	UsernameTaken(ctx context.Context, username, excludeUID string) (bool, error)
	SoftDelete(ctx context.Context, account types.Account, now time.Time) error
}

// AuditRecorder appends audit log entries. Audit failures never fail
// the triggering request; they are logged and dropped.
type AuditRecorder interface {
	AppendAudit(ctx context.Context, entry types.AuditLogEntry) error
}

// RegisterInput is the validated payload for account registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Username string
	Phone    string
	Role     string
}

// ProfileUpdate is the set of profile fields a user may change.
// Nil pointers mean "leave unchanged".
type ProfileUpdate struct {
	Name     *string
	Username *string
	Phone    *string
}

// LoginResult is a session joined with the account's effective role.
type LoginResult struct {
	identity.Session
	Role string `json:"role"`
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo    AccountRepository
	gateway identity.Gateway
	audit   AuditRecorder
	log     logrus.FieldLogger
}

func NewUserService(repo AccountRepository, gateway identity.Gateway, audit AuditRecorder, log logrus.FieldLogger) *UserService {
	return &UserService{repo: repo, gateway: gateway, audit: audit, log: log}
}

// Register provisions an identity, sets its role claim, and creates
// the account document. Only RoleAdmin survives as-is; anything else
// becomes RoleFarmer.
func (s *UserService) Register(ctx context.Context, actorUID string, in RegisterInput) (string, error) {
	role := types.RoleFarmer
	if in.Role == types.RoleAdmin {
		role = types.RoleAdmin
	}

	if in.Username != "" {
		taken, err := s.repo.UsernameTaken(ctx, in.Username, "")
		if err != nil {
			return "", err
		}
		if taken {
			return "", fmt.Errorf("%w: username already in use", store.ErrConflict)
		}
	}

	uid, err := s.gateway.CreateAccount(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		return "", err
	}

	if err := s.gateway.SetClaims(ctx, uid, map[string]interface{}{"role": role}); err != nil {
		return "", err
	}

	account := types.Account{
		UID:       uid,
		Email:     in.Email,
		Name:      in.Name,
		Username:  in.Username,
		Phone:     in.Phone,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return "", err
	}

	s.recordAudit(ctx, "user.register", actorUID, map[string]interface{}{
		"uid":   uid,
		"email": in.Email,
		"role":  role,
	})
	return uid, nil
}

// Login signs in against the identity provider and joins the role
// from the account document. The persisted record is the source of
// truth for both the role and the soft-delete flag.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	session, err := s.gateway.SignIn(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}

	account, err := s.repo.GetByUID(ctx, session.UID)
	if err != nil {
		return LoginResult{}, err
	}
	if account.IsDeleted {
		return LoginResult{}, ErrAccountDisabled
	}

	return LoginResult{Session: session, Role: account.Role}, nil
}

func (s *UserService) GetProfile(ctx context.Context, uid string) (types.Account, error) {
	return s.repo.GetByUID(ctx, uid)
}

// UpdateProfile applies a partial profile update and returns the
// fields that were written.
func (s *UserService) UpdateProfile(ctx context.Context, uid string, in ProfileUpdate) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.Username != nil {
		taken, err := s.repo.UsernameTaken(ctx, *in.Username, uid)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: username already in use", store.ErrConflict)
		}
		fields["username"] = *in.Username
	}

	if err := s.repo.UpdateFields(ctx, uid, fields); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "user.update_profile", uid, fields)
	return fields, nil
}

// ChangePassword replaces the account's password on the identity
// provider. The password itself never reaches the record store.
func (s *UserService) ChangePassword(ctx context.Context, uid, newPassword string) error {
	if err := s.gateway.UpdatePassword(ctx, uid, newPassword); err != nil {
		return err
	}
	s.recordAudit(ctx, "user.change_password", uid, nil)
	return nil
}

func (s *UserService) ListAccounts(ctx context.Context) ([]types.Account, error) {
	return s.repo.List(ctx)
}

// SoftDelete archives the account document, flags the live one, and
// locks the identity out: isDeleted claim for the token fast path,
// token revocation so already-issued tokens fail the revocation check,
// and a provider-side disable.
func (s *UserService) SoftDelete(ctx context.Context, actorUID, uid string) error {
	if actorUID == uid {
		return ErrSelfDelete
	}

	account, err := s.repo.GetByUID(ctx, uid)
	if err != nil {
		return err
	}
	if account.IsDeleted {
		return store.ErrNotFound
	}

	now := time.Now().UTC()
	if err := s.repo.SoftDelete(ctx, account, now); err != nil {
		return err
	}

	if err := s.gateway.SetClaims(ctx, uid, map[string]interface{}{
		"role":      account.Role,
		"isDeleted": true,
	}); err != nil {
		return err
	}
	if err := s.gateway.RevokeTokens(ctx, uid); err != nil {
		return err
	}
	if err := s.gateway.Disable(ctx, uid); err != nil {
		return err
	}

	s.recordAudit(ctx, "user.soft_delete", actorUID, map[string]interface{}{
		"uid": uid,
	})
	return nil
}

func (s *UserService) recordAudit(ctx context.Context, action, actorUID string, payload map[string]interface{}) {
	entry := types.AuditLogEntry{
		Action:    action,
		ActorUID:  actorUID,
		NewValue:  payload,
		Timestamp: time.Now().UTC(),
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("failed to append audit log entry")
	}
}
