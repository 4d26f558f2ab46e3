package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

var (
	ErrInvitationNotFound = errors.New("invalid or expired invitation")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrAlreadyMember      = errors.New("this email already belongs to a team member")
	ErrPasswordRequired   = errors.New("password is required for new users")
	ErrNoInvitations      = errors.New("at least one invitation is required")
)

// Mailer delivers invitation emails.
type Mailer interface {
	SendInvitation(inv *models.Invitation, org *models.Organization, inviter *models.User) error
}

// LogMailer writes invitations to the log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendInvitation(inv *models.Invitation, org *models.Organization, inviter *models.User) error {
	m.log.Info("Invitation email",
		zap.String("to", inv.Email),
		zap.String("organization", org.Name),
		zap.String("invited_by", inviter.DisplayName()),
		zap.String("accept_path", "/accept-invitation/"+inv.Token),
		zap.Time("expires_at", inv.ExpiresAt),
	)
	return nil
}

// InvitationService invites people into an organization and turns accepted
// invitations into accounts and team members.
type InvitationService struct {
	invitations repository.InvitationRepository
	users       repository.UserRepository
	members     repository.TeamMemberRepository
	roles       repository.RoleRepository
	mailer      Mailer
	log         *zap.Logger
	clock       func() time.Time
}

func NewInvitationService(
	invitations repository.InvitationRepository,
	users repository.UserRepository,
	members repository.TeamMemberRepository,
	roles repository.RoleRepository,
	mailer Mailer,
	log *zap.Logger,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		users:       users,
		members:     members,
		roles:       roles,
		mailer:      mailer,
		log:         log,
		clock:       time.Now,
	}
}

// InvitationInput is one person to invite, optionally with a title or role.
type InvitationInput struct {
	Email   string
	Name    string
	TitleID *uint64
	RoleID  *uint64
}

// Invite creates or refreshes one invitation per input and emails each.
// A pending invitation for the same email is reused with a fresh expiry.
func (s *InvitationService) Invite(p *access.Principal, inputs []InvitationInput) ([]models.Invitation, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInvitations
	}
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}

	out := make([]models.Invitation, 0, len(inputs))
	for _, in := range inputs {
		inv, err := s.invite(p, orgID, in)
		if err != nil {
			return nil, err
		}
		if err := s.mailer.SendInvitation(inv, p.Tenant.Organization, p.User); err != nil {
			s.log.Warn("Failed to send invitation email", zap.String("to", inv.Email), zap.Error(err))
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (s *InvitationService) invite(p *access.Principal, orgID uint64, in InvitationInput) (*models.Invitation, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.FindByEmail(orgID, email); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check team member: %w", err)
	}
	if err := s.checkGroupings(orgID, in.TitleID, in.RoleID); err != nil {
		return nil, err
	}

	expires := s.clock().AddDate(0, 0, constants.InvitationTTLDays)

	inv, err := s.invitations.FindPendingByEmail(orgID, email)
	switch {
	case err == nil:
		if name := strings.TrimSpace(in.Name); name != "" {
			inv.Name = name
		}
		inv.TitleID, inv.RoleID = in.TitleID, in.RoleID
		inv.InvitedByID = p.User.ID
		inv.ExpiresAt = expires
		if err := s.invitations.Update(inv); err != nil {
			return nil, fmt.Errorf("failed to update invitation: %w", err)
		}
		return inv, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	token, err := utils.GenerateToken(constants.InvitationTokenBytes)
	if err != nil {
		return nil, err
	}
	inv = &models.Invitation{
		OrganizationID: orgID,
		Email:          email,
		Name:           strings.TrimSpace(in.Name),
		TitleID:        in.TitleID,
		RoleID:         in.RoleID,
		Token:          token,
		InvitedByID:    p.User.ID,
		ExpiresAt:      expires,
	}
	if err := s.invitations.Create(inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationService) checkGroupings(orgID uint64, titleID, roleID *uint64) error {
	if titleID != nil {
		if _, err := s.roles.FindTitle(orgID, *titleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTitleNotFound
			}
			return fmt.Errorf("failed to find title: %w", err)
		}
	}
	if roleID != nil {
		if _, err := s.roles.FindRole(orgID, *roleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("failed to find role: %w", err)
		}
	}
	return nil
}

func (s *InvitationService) ListPending(p *access.Principal) ([]models.Invitation, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	invs, err := s.invitations.ListPending(orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

func (s *InvitationService) find(p *access.Principal, id uint64) (*models.Invitation, error) {
	orgID, err := p.Tenant.OrganizationID()
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.FindByID(orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	return inv, nil
}

// Resend emails a pending invitation again with a fresh expiry.
func (s *InvitationService) Resend(p *access.Principal, id uint64) error {
	inv, err := s.find(p, id)
	if err != nil {
		return err
	}
	inv.ExpiresAt = s.clock().AddDate(0, 0, constants.InvitationTTLDays)
	if err := s.invitations.Update(inv); err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return s.mailer.SendInvitation(inv, p.Tenant.Organization, p.User)
}

func (s *InvitationService) Delete(p *access.Principal, id uint64) error {
	inv, err := s.find(p, id)
	if err != nil {
		return err
	}
	if err := s.invitations.Delete(inv.ID); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	return nil
}

// InvitationCheck tells an invitee what accepting will do.
type InvitationCheck struct {
	Valid      bool               `json:"valid"`
	Invitation *models.Invitation `json:"invitation"`
	UserExists bool               `json:"user_exists"`
}

func (s *InvitationService) pending(token string) (*models.Invitation, error) {
	inv, err := s.invitations.FindPendingByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	if inv.Expired(s.clock()) {
		return nil, ErrInvitationExpired
	}
	return inv, nil
}

// Check validates a token without accepting it.
func (s *InvitationService) Check(token string) (*InvitationCheck, error) {
	inv, err := s.pending(token)
	if err != nil {
		return nil, err
	}
	_, err = s.users.FindByEmail(inv.Email)
	switch {
	case err == nil:
		return &InvitationCheck{Valid: true, Invitation: inv, UserExists: true}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &InvitationCheck{Valid: true, Invitation: inv}, nil
	default:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
}

// AcceptInput carries what a new user provides when accepting. Existing
// users need neither field.
type AcceptInput struct {
	Password string
	Name     string
}

// Accept joins the invitee to the organization. A new account is created
// when none exists for the invited email, and the team member with that
// email is linked or created.
func (s *InvitationService) Accept(token string, input AcceptInput) (*models.User, error) {
	inv, err := s.pending(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(inv.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if input.Password == "" {
			return nil, ErrPasswordRequired
		}
		hash, err := hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(input.Name)
		if name == "" {
			name = inv.Name
		}
		user = &models.User{Email: inv.Email, Name: name, PasswordHash: hash, OnboardingCompleted: true}
	case err != nil:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	member, err := s.members.FindByEmail(inv.OrganizationID, inv.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		member = &models.TeamMember{Email: inv.Email, Name: inv.Name}
		if member.Name == "" {
			member.Name = user.DisplayName()
		}
	case err != nil:
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}
	if inv.TitleID != nil {
		member.TitleID = inv.TitleID
	}
	if inv.RoleID != nil {
		member.RoleID = inv.RoleID
	}

	if err := s.invitations.Accept(inv, user, member); err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.log.Info("Invitation accepted",
		zap.Uint64("invitation_id", inv.ID),
		zap.Uint64("organization_id", inv.OrganizationID),
		zap.Uint64("user_id", user.ID),
	)
	return user, nil
}
