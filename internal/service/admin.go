package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/limiter"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/store"
	"github.com/tavern-tools/register/models"
)

// Users-per-page bounds for administrator listings.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

const recentUsersInStats = 10

// adminClaims is the administrator session token payload.
type adminClaims struct {
	jwt.RegisteredClaims
}

// LoginResult reports a failed or succeeded administrator login together
// with the limiter's view of the client.
type LoginResult struct {
	Token             string
	RemainingAttempts int
	LockUntil         time.Time
}

// UserListEntry is one row of the administrator user listing: the account
// joined with its server's name.
type UserListEntry struct {
	models.User
	ServerName string `json:"serverName,omitempty"`
}

// AdminService implements the administrator panel: the shared-password
// login behind the failure limiter, and the management operations over
// users, servers, invite codes and settings.
type AdminService struct {
	users    store.UserRepository
	servers  store.ServerRepository
	settings store.SettingsRepository

	invites     *InviteService
	provisioner Provisioner
	attempts    *limiter.Limiter

	cfg config.Admin
	log *logger.Logger
	now func() time.Time
}

// AdminDeps carries the panel service's collaborators.
type AdminDeps struct {
	Users    store.UserRepository
	Servers  store.ServerRepository
	Settings store.SettingsRepository

	Invites     *InviteService
	Provisioner Provisioner
	Attempts    *limiter.Limiter

	Config config.Admin
	Log    *logger.Logger
}

// NewAdminService wires the panel service.
func NewAdminService(deps AdminDeps) *AdminService {
	return &AdminService{
		users:       deps.Users,
		servers:     deps.Servers,
		settings:    deps.Settings,
		invites:     deps.Invites,
		provisioner: deps.Provisioner,
		attempts:    deps.Attempts,
		cfg:         deps.Config,
		log:         deps.Log,
		now:         time.Now,
	}
}

// Login checks the shared panel password under the failure limiter and
// issues the signed session token. Failures are counted per client IP; a
// success clears the IP's record.
func (s *AdminService) Login(ctx context.Context, clientIP, password string) (LoginResult, error) {
	check := s.attempts.Check(clientIP)
	if !check.Allowed {
		logger.FromContext(ctx).Warn().Str("ip", clientIP).Time("until", check.LockUntil).Msg("administrator login attempt while locked out")
		return LoginResult{LockUntil: check.LockUntil}, ErrLockedOut
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.PanelPassword)) != 1 {
		s.attempts.RecordFailure(clientIP)
		after := s.attempts.Check(clientIP)
		logger.FromContext(ctx).Warn().Str("ip", clientIP).Int("remaining", after.RemainingAttempts).Msg("failed administrator login")
		return LoginResult{RemainingAttempts: after.RemainingAttempts, LockUntil: after.LockUntil}, ErrAdminAuthFailed
	}

	s.attempts.Clear(clientIP)

	token, err := s.issueToken()
	if err != nil {
		return LoginResult{}, fmt.Errorf("error issuing administrator token: %w", err)
	}

	logger.FromContext(ctx).Info().Str("ip", clientIP).Msg("administrator logged in")

	return LoginResult{Token: token}, nil
}

func (s *AdminService) issueToken() (string, error) {
	now := s.now()
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(s.cfg.TokenSignKey))
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}

	return signed, nil
}

// VerifyToken validates an administrator session token.
func (s *AdminService) VerifyToken(tokenString string) error {
	if tokenString == "" {
		return ErrAdminTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.TokenSignKey), nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %w", ErrAdminTokenInvalid, err)
	}

	return nil
}

// SessionDuration exposes the configured token lifetime for cookie expiry.
func (s *AdminService) SessionDuration() time.Duration {
	return s.cfg.TokenDuration
}

// ListUsers returns one page of accounts joined with their server names,
// newest first. Page numbers start at 1; the limit is clamped to 1..100.
func (s *AdminService) ListUsers(ctx context.Context, page, limit int) ([]UserListEntry, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("error listing users: %w", err)
	}

	serverNames, err := s.serverNames(ctx)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	// Newest first.
	for i, j := 0, len(users)-1; i < j; i, j = i+1, j-1 {
		users[i], users[j] = users[j], users[i]
	}

	total := len(users)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	entries := make([]UserListEntry, 0, end-start)
	for _, user := range users[start:end] {
		entry := UserListEntry{User: user}
		if user.ServerID != nil {
			entry.ServerName = serverNames[*user.ServerID]
		}
		entries = append(entries, entry)
	}

	pagination := models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}

	return entries, pagination, nil
}

func (s *AdminService) serverNames(ctx context.Context) (map[int64]string, error) {
	servers, err := s.servers.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing servers: %w", err)
	}

	names := make(map[int64]string, len(servers))
	for _, server := range servers {
		names[server.ID] = server.Name
	}

	return names, nil
}

// ListServers returns every configured server with its registered-user
// count. Stored credentials are excluded by the view's JSON shape.
func (s *AdminService) ListServers(ctx context.Context) ([]models.AdminServerView, error) {
	servers, err := s.servers.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing servers: %w", err)
	}

	counts, err := s.users.CountByServer(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users per server: %w", err)
	}

	views := make([]models.AdminServerView, 0, len(servers))
	for _, server := range servers {
		views = append(views, models.AdminServerView{
			Server:              server,
			RegisteredUserCount: counts[server.ID],
		})
	}

	return views, nil
}

// CreateServer validates and saves a new backend server. The administrator
// credentials are verified against the live server first; an unreachable or
// non-admin target is rejected outright.
func (s *AdminService) CreateServer(ctx context.Context, server models.Server) (models.Server, error) {
	if err := validateServer(server); err != nil {
		return models.Server{}, err
	}

	if err := s.provisioner.TestConnection(ctx, server); err != nil {
		return models.Server{}, fmt.Errorf("server verification failed: %w", err)
	}

	server.CreatedAt = s.now()

	created, err := s.servers.CreateServer(ctx, server)
	if err != nil {
		return models.Server{}, fmt.Errorf("error saving server: %w", err)
	}

	logger.FromContext(ctx).Info().Str("server", created.Name).Int64("id", created.ID).Msg("server added")

	return created, nil
}

// UpdateServer saves changes to an existing server. When the connection
// fields change the credentials are re-verified; empty credential fields
// keep the stored values.
func (s *AdminService) UpdateServer(ctx context.Context, server models.Server) (models.Server, error) {
	existing, err := s.servers.FindServerByID(ctx, server.ID)
	if err != nil {
		if errors.Is(err, store.ErrNoServerWasFound) {
			return models.Server{}, ErrServerUnavailable
		}
		return models.Server{}, fmt.Errorf("error loading server: %w", err)
	}

	if server.AdminUsername == "" {
		server.AdminUsername = existing.AdminUsername
	}
	if server.AdminPassword == "" {
		server.AdminPassword = existing.AdminPassword
	}
	server.CreatedAt = existing.CreatedAt

	if err := validateServer(server); err != nil {
		return models.Server{}, err
	}

	connectionChanged := server.URL != existing.URL ||
		server.AdminUsername != existing.AdminUsername ||
		server.AdminPassword != existing.AdminPassword
	if connectionChanged {
		if err := s.provisioner.TestConnection(ctx, server); err != nil {
			return models.Server{}, fmt.Errorf("server verification failed: %w", err)
		}
	}

	updated, err := s.servers.UpdateServer(ctx, server)
	if err != nil {
		return models.Server{}, fmt.Errorf("error updating server: %w", err)
	}

	return updated, nil
}

// DeleteServer removes a server record. Accounts already bound to it keep
// their binding; only new selections are affected.
func (s *AdminService) DeleteServer(ctx context.Context, id int64) error {
	if err := s.servers.DeleteServer(ctx, id); err != nil {
		if errors.Is(err, store.ErrNoServerWasFound) {
			return ErrServerUnavailable
		}
		return fmt.Errorf("error deleting server: %w", err)
	}

	return nil
}

// TestServer verifies the stored administrator credentials of a saved
// server against the live target.
func (s *AdminService) TestServer(ctx context.Context, id int64) error {
	server, err := s.servers.FindServerByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoServerWasFound) {
			return ErrServerUnavailable
		}
		return fmt.Errorf("error loading server: %w", err)
	}

	return s.provisioner.TestConnection(ctx, server)
}

// Stats assembles the dashboard summary.
func (s *AdminService) Stats(ctx context.Context) (models.Stats, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("error listing users: %w", err)
	}

	codes, err := s.invites.listAll(ctx)
	if err != nil {
		return models.Stats{}, err
	}

	servers, err := s.servers.ListServers(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("error listing servers: %w", err)
	}

	stats := models.Stats{
		TotalUsers:       len(users),
		TotalInviteCodes: len(codes),
		TotalServers:     len(servers),
	}

	for _, code := range codes {
		if code.IsActive {
			stats.ActiveInviteCodes++
		}
		if code.UsedCount > 0 {
			stats.UsedInviteCodes++
		}
	}
	for _, server := range servers {
		if server.IsActive {
			stats.ActiveServers++
		}
	}

	recent := len(users)
	if recent > recentUsersInStats {
		recent = recentUsersInStats
	}
	stats.RecentUsers = make([]models.User, 0, recent)
	for i := len(users) - 1; i >= len(users)-recent; i-- {
		stats.RecentUsers = append(stats.RecentUsers, users[i])
	}

	return stats, nil
}

// GetSettings returns the runtime settings record.
func (s *AdminService) GetSettings(ctx context.Context) (models.Settings, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("error loading settings: %w", err)
	}

	return settings, nil
}

// UpdateSettings saves the runtime settings record.
func (s *AdminService) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	if settings.DiscordPolicy.MinJoinDays < 0 {
		return models.Settings{}, fmt.Errorf("%w: minJoinDays cannot be negative", ErrValidation)
	}

	updated, err := s.settings.UpdateSettings(ctx, settings)
	if err != nil {
		return models.Settings{}, fmt.Errorf("error saving settings: %w", err)
	}

	return updated, nil
}

func validateServer(server models.Server) error {
	switch {
	case server.Name == "":
		return fmt.Errorf("%w: server name is required", ErrValidation)
	case server.URL == "":
		return fmt.Errorf("%w: server url is required", ErrValidation)
	case server.AdminUsername == "" || server.AdminPassword == "":
		return fmt.Errorf("%w: administrator credentials are required", ErrValidation)
	}

	return nil
}
