package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/pkg/validator"
)

// LoginResult is returned on a successful admin login
type LoginResult struct {
	Token string        `json:"token"`
	Admin *models.Admin `json:"admin"`
}

// AdminAuthService handles operator accounts
type AdminAuthService struct {
	admins      AdminStore
	credentials Credentials
	audit       *AuditService
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(admins AdminStore, credentials Credentials, audit *AuditService) *AdminAuthService {
	return &AdminAuthService{admins: admins, credentials: credentials, audit: audit}
}

// Login checks an email and password and issues a bearer token
func (s *AdminAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	email = validator.SanitizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.ErrInvalidLogin
	}

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidLogin
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	if err := s.credentials.VerifyPassword(admin.PasswordHash, password); err != nil {
		slog.Warn("Admin login failed", "email", email, "ip", ipAddress)
		return nil, apperr.ErrInvalidLogin
	}

	token, err := s.credentials.GenerateToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return nil, err
	}

	if err := s.admins.UpdateLastLogin(ctx, admin.ID); err != nil {
		slog.Warn("Failed to record admin login", "admin_id", admin.ID, "error", err)
	} else {
		now := time.Now()
		admin.LastLoginAt = &now
	}

	actor := Actor{ID: admin.ID, Email: admin.Email, Role: admin.Role, IPAddress: ipAddress, UserAgent: userAgent}
	s.audit.Log(ctx, actor, ActionAdminLogin, "admin:"+admin.ID, "")

	return &LoginResult{Token: token, Admin: admin}, nil
}

// EnsureAdmin creates or updates an operator account with the given password
func (s *AdminAuthService) EnsureAdmin(ctx context.Context, email, password, name, role string) (*models.Admin, error) {
	email = validator.SanitizeEmail(email)
	if err := validator.ValidateEmail(email); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := validator.ValidatePassword(password); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = models.RoleAdmin
	}
	if role != models.RoleAdmin && role != models.RoleSuperAdmin {
		return nil, apperr.Validation("role must be admin or superadmin")
	}

	hash, err := s.credentials.HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Email:        email,
		PasswordHash: hash,
		Name:         validator.SanitizeString(name),
		Role:         role,
	}
	if err := s.admins.CreateOrUpdate(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to save admin: %w", err)
	}

	slog.Info("Admin account ensured", "admin_id", admin.ID, "email", email, "role", role)
	return admin, nil
}

// Get returns one admin
func (s *AdminAuthService) Get(ctx context.Context, id string) (*models.Admin, error) {
	return s.admins.GetByID(ctx, id)
}
