package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/store"
)

// SignUpInput is the self-service attendee registration form.
type SignUpInput struct {
	Name     string
	Email    string
	Company  string
	Password string
}

// StaffInput creates a staff account.  Role defaults to organizer.
type StaffInput struct {
	Username string
	Password string
	Role     string
	Email    string
}

// StaffPatch changes a staff account.  Nil fields are left alone.
type StaffPatch struct {
	Role   *string
	Active *bool
}

// Session is the result of a successful sign-up or login.  Principal is a
// model.UserView for staff and a model.AttendeeView for attendees.
type Session struct {
	Token     auth.Token
	Role      string
	Principal any
}

// AuthService owns accounts and session tokens.
type AuthService struct {
	store      *store.Store
	tokens     *auth.Tokens
	bcryptCost int
}

// NewAuthService returns an AuthService.
func NewAuthService(st *store.Store, tokens *auth.Tokens, bcryptCost int) *AuthService {
	return &AuthService{store: st, tokens: tokens, bcryptCost: bcryptCost}
}

// SignUp creates an attendee account and logs it in.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return Session{}, badRequest("name, email and password are required")
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return Session{}, err
	}

	var created model.Attendee
	err = s.store.Update(ctx, func(snap *store.Snapshot) error {
		if snap.AttendeeByEmail(in.Email) != nil {
			return conflict("email already registered")
		}
		created = model.Attendee{
			ID:           uuid.NewString(),
			Name:         in.Name,
			Email:        in.Email,
			Company:      in.Company,
			PasswordHash: hash,
		}
		snap.Attendees = append(snap.Attendees, created)
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return s.attendeeSession(created)
}

// Login authenticates identifier (an email or a staff username) with
// password.  Attendees are matched by email first, then staff by email,
// then staff by username.  A disabled staff account is refused only
// after its password matched.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Session{}, badRequest("email or username and password are required")
	}

	var (
		attendee *model.Attendee
		user     *model.User
	)
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		if a := snap.AttendeeByEmail(identifier); a != nil {
			cp := *a
			attendee = &cp
			return nil
		}
		u := snap.UserByEmail(identifier)
		if u == nil {
			u = snap.UserByUsername(identifier)
		}
		if u != nil {
			cp := *u
			user = &cp
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	switch {
	case attendee != nil:
		if !auth.VerifyPassword(attendee.PasswordHash, password) {
			return Session{}, unauthorized("invalid credentials")
		}
		return s.attendeeSession(*attendee)
	case user != nil:
		if !auth.VerifyPassword(user.PasswordHash, password) {
			return Session{}, unauthorized("invalid credentials")
		}
		if !user.Active {
			return Session{}, forbidden("account is disabled")
		}
		return s.staffSession(*user)
	}
	return Session{}, unauthorized("invalid credentials")
}

// Authenticate turns a raw bearer token into a Principal.
func (s *AuthService) Authenticate(raw string) (auth.Principal, error) {
	p, err := s.tokens.Verify(raw)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, auth.ErrTokenExpired):
		return auth.Principal{}, unauthorized("token expired")
	default:
		return auth.Principal{}, unauthorized("invalid token")
	}
}

// Authorize fails with ErrForbidden unless p holds one of roles.
func Authorize(p auth.Principal, roles ...string) error {
	if p.HasRole(roles...) {
		return nil
	}
	return forbidden("insufficient role")
}

// CreateStaff adds an admin or organizer account.
func (s *AuthService) CreateStaff(ctx context.Context, in StaffInput) (model.UserView, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = model.RoleOrganizer
	}
	if in.Username == "" || in.Password == "" {
		return model.UserView{}, badRequest("username and password are required")
	}
	if !model.IsStaffRole(in.Role) {
		return model.UserView{}, badRequest("role must be admin or organizer")
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.UserView{}, err
	}

	var created model.User
	err = s.store.Update(ctx, func(snap *store.Snapshot) error {
		if snap.UserByUsername(in.Username) != nil {
			return conflict("username already exists")
		}
		if snap.UserByEmail(in.Email) != nil {
			return conflict("email already in use")
		}
		created = model.User{
			ID:           uuid.NewString(),
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			Active:       true,
		}
		snap.Users = append(snap.Users, created)
		return nil
	})
	if err != nil {
		return model.UserView{}, err
	}
	return created.View(), nil
}

// ListStaff returns every staff account without password hashes.
func (s *AuthService) ListStaff(ctx context.Context) ([]model.UserView, error) {
	out := []model.UserView{}
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		for _, u := range snap.Users {
			out = append(out, u.View())
		}
		return nil
	})
	return out, err
}

// UpdateStaff changes the role or active flag of a staff account.
func (s *AuthService) UpdateStaff(ctx context.Context, id string, patch StaffPatch) (model.UserView, error) {
	if patch.Role != nil && !model.IsStaffRole(*patch.Role) {
		return model.UserView{}, badRequest("role must be admin or organizer")
	}
	var updated model.User
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		u := snap.User(id)
		if u == nil {
			return notFound("user not found")
		}
		if patch.Role != nil {
			u.Role = *patch.Role
		}
		if patch.Active != nil {
			u.Active = *patch.Active
		}
		updated = *u
		return nil
	})
	if err != nil {
		return model.UserView{}, err
	}
	return updated.View(), nil
}

func (s *AuthService) attendeeSession(a model.Attendee) (Session, error) {
	tok, err := s.tokens.Issue(auth.Principal{Subject: a.ID, Role: model.RoleAttendee, Email: a.Email})
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, Role: model.RoleAttendee, Principal: a.View()}, nil
}

func (s *AuthService) staffSession(u model.User) (Session, error) {
	tok, err := s.tokens.Issue(auth.Principal{Subject: u.ID, Role: u.Role, Email: u.Email, Username: u.Username})
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, Role: u.Role, Principal: u.View()}, nil
}
