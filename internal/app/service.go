// Package app is the service layer: every mutation validates, applies its
// change to the in-memory document, runs side effects, then persists the
// whole document. A failed persist rolls back to the last durable copy.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"watchquest/api/internal/authpw"
	"watchquest/api/internal/catalog"
	"watchquest/api/internal/config"
	"watchquest/api/internal/rbac"
	"watchquest/api/internal/search"
	"watchquest/api/internal/session"
	"watchquest/api/internal/store"
	"watchquest/api/internal/util"
)

type Service struct {
	cfg      config.Config
	store    *store.Store
	sessions session.Store
	catalog  *catalog.Resolver
	search   *search.Service

	// mu serializes all document reads and mutations: single writer.
	mu  sync.Mutex
	now func() time.Time
}

func New(cfg config.Config, st *store.Store, sessions session.Store, resolver *catalog.Resolver) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		catalog:  resolver,
		now:      time.Now,
	}
}

// AttachSearch wires the search facade in after construction. The document
// scan fallback snapshots through the service, so the two reference each
// other.
func (s *Service) AttachSearch(sr *search.Service) {
	s.search = sr
}

func (s *Service) doc() *store.Document {
	return s.store.Doc()
}

// persist writes the document through. On a write failure the in-memory
// document is restored from the last durable copy so callers never observe
// a mutation that did not stick.
func (s *Service) persist() error {
	err := s.store.Persist()
	if err == nil {
		return nil
	}
	if reloadErr := s.store.Reload(); reloadErr != nil {
		return fmt.Errorf("persist failed and reload failed: %v (persist: %w)", reloadErr, err)
	}
	return errStorageFull(err)
}

func (s *Service) requireUser(ctx context.Context) (*store.User, error) {
	userID, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if userID == "" {
		return nil, errUnauthorized("Not logged in")
	}
	user := s.doc().UserByID(userID)
	if user == nil {
		return nil, errUnauthorized("Session user no longer exists")
	}
	if user.IsPermanentlyBanned {
		return nil, errBanned("Account is permanently banned", user.BanReason)
	}
	return user, nil
}

func (s *Service) requireAdmin(ctx context.Context) (*store.User, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !rbac.Can(rbac.Normalize(user.Role), rbac.ActionModerate) {
		return nil, errForbidden("Admin role required")
	}
	return user, nil
}

// viewerID returns the logged-in user id, or "" for anonymous browsing.
func (s *Service) viewerID(ctx context.Context) string {
	userID, err := s.sessions.Current(ctx)
	if err != nil {
		return ""
	}
	return userID
}

type RegisterInput struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and logs it in. Blacklisted emails are
// rejected before any state is touched.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := authpw.NormalizeHandle(input.Handle)
	email := authpw.NormalizeEmail(input.Email)
	if err := authpw.ValidateRegistration(handle, email, input.Password); err != nil {
		return nil, errValidation(err.Error())
	}

	doc := s.doc()
	for _, banned := range doc.Blacklist {
		if banned.Email == email {
			return nil, errBanned("This email address is banned", banned.Reason)
		}
	}
	for _, existing := range doc.Users {
		if authpw.NormalizeHandle(existing.Handle) == handle {
			return nil, errValidation("Handle is already taken")
		}
		if authpw.NormalizeEmail(existing.Email) == email {
			return nil, errValidation("Email is already registered")
		}
	}

	hash, err := authpw.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = handle
	}
	now := s.now()
	user := &store.User{
		ID:                   util.NewID("u"),
		Name:                 name,
		Handle:               handle,
		Email:                email,
		PasswordHash:         hash,
		Role:                 string(rbac.RoleUser),
		Avatar:               defaultAvatar(name),
		Privacy:              store.PrivacyPublic,
		FollowingIDs:         []string{},
		FollowedListIDs:      []string{},
		JoinedAt:             now.UnixMilli(),
		Badges:               []store.Badge{},
		NotificationSettings: store.NotificationSettings{Likes: true, Comments: true, Follows: true, Mentions: true},
		Strikes:              []store.Strike{},
		HiddenPatchIDs:       []string{},
		HiddenBadgeIDs:       []string{},
	}
	doc.Users = append(doc.Users, user)

	if err := s.persist(); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.indexUser(user)
	return user, nil
}

// Login authenticates by handle or email. Banned accounts are rejected with
// the ban reason.
func (s *Service) Login(ctx context.Context, identifier, password string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, errValidation("Identifier and password are required")
	}

	user := s.lookupIdentifier(identifier)
	if user == nil || !authpw.VerifyPassword(user.PasswordHash, password) {
		return nil, errUnauthorized("Invalid credentials")
	}
	if user.IsPermanentlyBanned {
		return nil, errBanned("Account is permanently banned", user.BanReason)
	}

	if err := s.sessions.Save(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return user, nil
}

func (s *Service) lookupIdentifier(identifier string) *store.User {
	email := authpw.NormalizeEmail(identifier)
	handle := authpw.NormalizeHandle(identifier)
	for _, user := range s.doc().Users {
		if authpw.NormalizeEmail(user.Email) == email || authpw.NormalizeHandle(user.Handle) == handle {
			return user
		}
	}
	return nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

func (s *Service) CurrentUser(ctx context.Context) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requireUser(ctx)
}

// ResetAll drops the document, reseeds demo data and clears the session.
// Admin only.
func (s *Service) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.store.Reset(); err != nil {
		return errStorageFull(err)
	}
	if err := s.store.Load(s.now()); err != nil {
		return fmt.Errorf("reseed: %w", err)
	}
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.reindexLocked()
	return nil
}

type ProfileInput struct {
	Name       string             `json:"name"`
	Bio        string             `json:"bio"`
	Country    string             `json:"country"`
	Avatar     string             `json:"avatar"`
	CoverImage string             `json:"coverImage"`
	Privacy    store.PrivacyLevel `json:"privacy"`
}

// UpdateProfile edits the caller's profile and keeps the denormalized
// creator name and avatar on their lists and comments in sync.
func (s *Service) UpdateProfile(ctx context.Context, input ProfileInput) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("Name cannot be empty")
	}
	switch input.Privacy {
	case store.PrivacyPublic, store.PrivacyFollowers, store.PrivacyPrivate:
	default:
		return nil, errValidation("Unknown privacy level")
	}

	user.Name = name
	user.Bio = input.Bio
	user.Country = input.Country
	user.Privacy = input.Privacy
	if strings.TrimSpace(input.Avatar) != "" {
		user.Avatar = input.Avatar
	}
	user.CoverImage = input.CoverImage

	for _, list := range s.doc().Lists {
		if list.CreatorID == user.ID {
			list.CreatorName = user.Name
			list.CreatorAvatar = user.Avatar
		}
		syncCommentAuthor(list.Comments, user)
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.indexUser(user)
	return user, nil
}

func syncCommentAuthor(comments []store.Comment, user *store.User) {
	for i := range comments {
		if comments[i].UserID == user.ID {
			comments[i].UserName = user.Name
			comments[i].UserAvatar = user.Avatar
		}
		syncCommentAuthor(comments[i].Replies, user)
	}
}

func (s *Service) UpdateNotificationSettings(ctx context.Context, settings store.NotificationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireUser(ctx)
	if err != nil {
		return err
	}
	user.NotificationSettings = settings
	return s.persist()
}

// GetUser resolves a profile by id or handle, honoring its privacy level.
func (s *Service) GetUser(ctx context.Context, idOrHandle string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc()
	target := doc.UserByID(idOrHandle)
	if target == nil {
		handle := authpw.NormalizeHandle(idOrHandle)
		for _, user := range doc.Users {
			if authpw.NormalizeHandle(user.Handle) == handle {
				target = user
				break
			}
		}
	}
	if target == nil {
		return nil, errNotFound("User not found")
	}

	viewer := s.viewerID(ctx)
	if !s.canViewProfile(viewer, target) {
		return nil, errForbidden("This profile is private")
	}
	return target, nil
}

func (s *Service) canViewProfile(viewerID string, target *store.User) bool {
	if viewerID == target.ID {
		return true
	}
	if viewer := s.doc().UserByID(viewerID); viewer != nil && rbac.Can(rbac.Normalize(viewer.Role), rbac.ActionModerate) {
		return true
	}
	switch target.Privacy {
	case store.PrivacyPublic:
		return true
	case store.PrivacyFollowers:
		viewer := s.doc().UserByID(viewerID)
		return viewer != nil && containsString(viewer.FollowingIDs, target.ID)
	default:
		return false
	}
}

// Search queries the search facade.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// SearchCatalog queries the catalog resolver: local seed titles merged with
// provider results when the provider is reachable.
func (s *Service) SearchCatalog(ctx context.Context, query string) ([]store.Media, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false, errValidation("Search query is required")
	}
	results, degraded := s.catalog.Search(ctx, query)
	return results, degraded, nil
}

// SearchSnapshot is the document-scan fallback source: public lists and
// unbanned users.
func (s *Service) SearchSnapshot() ([]search.ListRecord, []search.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc()
	lists := make([]search.ListRecord, 0, len(doc.Lists))
	for _, list := range doc.Lists {
		if list.Privacy != store.PrivacyPublic {
			continue
		}
		lists = append(lists, listRecord(list))
	}
	users := make([]search.UserRecord, 0, len(doc.Users))
	for _, user := range doc.Users {
		if user.IsPermanentlyBanned || user.Privacy == store.PrivacyPrivate {
			continue
		}
		users = append(users, userRecord(user))
	}
	return lists, users
}

// Reindex pushes the current document into the search index.
func (s *Service) Reindex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reindexLocked()
}

func (s *Service) reindexLocked() {
	if s.search == nil {
		return
	}
	doc := s.doc()
	var lists []search.ListRecord
	for _, list := range doc.Lists {
		if list.Privacy == store.PrivacyPublic {
			lists = append(lists, listRecord(list))
		}
	}
	var users []search.UserRecord
	for _, user := range doc.Users {
		if !user.IsPermanentlyBanned && user.Privacy != store.PrivacyPrivate {
			users = append(users, userRecord(user))
		}
	}
	s.search.ReindexAll(lists, users)
}

func (s *Service) indexUser(user *store.User) {
	if s.search == nil {
		return
	}
	if user.IsPermanentlyBanned || user.Privacy == store.PrivacyPrivate {
		s.search.DeleteUser(user.ID)
		return
	}
	s.search.IndexUser(userRecord(user))
}

func (s *Service) indexList(list *store.MediaList) {
	if s.search == nil {
		return
	}
	if list.Privacy != store.PrivacyPublic {
		s.search.DeleteList(list.ID)
		return
	}
	s.search.IndexList(listRecord(list))
}

func listRecord(list *store.MediaList) search.ListRecord {
	return search.ListRecord{
		ID:          list.ID,
		Name:        list.Title,
		Description: list.Description,
		Category:    string(list.Category),
		CreatorID:   list.CreatorID,
	}
}

func userRecord(user *store.User) search.UserRecord {
	return search.UserRecord{
		ID:          user.ID,
		Handle:      user.Handle,
		DisplayName: user.Name,
		Bio:         user.Bio,
	}
}

func defaultAvatar(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=0f172a&color=fff"
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func removeString(values []string, target string) []string {
	out := values[:0]
	for _, value := range values {
		if value != target {
			out = append(out, value)
		}
	}
	return out
}
