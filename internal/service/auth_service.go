package service

import (
	"academic-scheduler/internal/auth"
	"academic-scheduler/internal/config"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"academic-scheduler/pkg/logger"
	"context"
	"fmt"
)

var _ serviceInterfaces.AuthService = (*AuthService)(nil)

type LoginRequest = serviceInterfaces.LoginRequest
type TokenResponse = serviceInterfaces.TokenResponse

// AuthService checks student and professor credentials and issues access tokens.
type AuthService struct {
	studentRepo   interfaces.StudentRepository
	professorRepo interfaces.ProfessorRepository
	verifier      auth.CredentialVerifier
	cfg           config.AuthConfig
}

func NewAuthService(
	studentRepo interfaces.StudentRepository,
	professorRepo interfaces.ProfessorRepository,
	verifier auth.CredentialVerifier,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		studentRepo:   studentRepo,
		professorRepo: professorRepo,
		verifier:      verifier,
		cfg:           cfg,
	}
}

// LoginStudent authenticates a student by matricule.
func (s *AuthService) LoginStudent(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	student, err := s.studentRepo.GetByMatricule(ctx, req.Identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		logger.Debug("Login attempt for unknown student %s", req.Identifier)
		return nil, auth.ErrInvalidCredentials
	}
	if err := s.verifier.Verify(student.PasswordHash, req.Password); err != nil {
		logger.Warn("Failed login for student %s", req.Identifier)
		return nil, auth.ErrInvalidCredentials
	}
	return s.issue(student.Matricule, auth.RoleStudent)
}

// LoginProfessor authenticates a professor by email.
func (s *AuthService) LoginProfessor(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	professor, err := s.professorRepo.GetByEmail(ctx, req.Identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load professor: %w", err)
	}
	if professor == nil {
		logger.Debug("Login attempt for unknown professor %s", req.Identifier)
		return nil, auth.ErrInvalidCredentials
	}
	if err := s.verifier.Verify(professor.PasswordHash, req.Password); err != nil {
		logger.Warn("Failed login for professor %s", professor.Matricule)
		return nil, auth.ErrInvalidCredentials
	}
	return s.issue(professor.Matricule, auth.RoleProfessor)
}

func (s *AuthService) issue(subject, role string) (*TokenResponse, error) {
	ttl := s.cfg.TokenTTLDuration()
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, ttl, auth.Claims{UserID: subject, Role: role})
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	logger.Info("Issued %s token for %s", role, subject)
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		Subject:     subject,
		Role:        role,
	}, nil
}
