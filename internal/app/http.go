package app

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"watchquest/api/internal/search"
	"watchquest/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/register" {
		var input RegisterInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.Register(r.Context(), input)
		s.respond(w, sanitizeUser(user), err)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		var body struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.Login(r.Context(), body.Identifier, body.Password)
		s.respond(w, sanitizeUser(user), err)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		s.respond(w, map[string]any{"ok": true}, s.service.Logout(r.Context()))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/auth/me" {
		user, err := s.service.CurrentUser(r.Context())
		s.respond(w, sanitizeUser(user), err)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/feed" {
		writeJSON(w, http.StatusOK, s.service.Feed(r.Context()))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/activity" {
		feed, err := s.service.ActivityFeed(r.Context())
		s.respond(w, feed, err)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		q := search.Query{
			Text:           r.URL.Query().Get("q"),
			FilterType:     search.ResultType(r.URL.Query().Get("type")),
			FilterCategory: r.URL.Query().Get("category"),
			Limit:          queryInt(r, "limit"),
			Offset:         queryInt(r, "offset"),
		}
		writeJSON(w, http.StatusOK, s.service.Search(q))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/catalog/search" {
		results, degraded, err := s.service.SearchCatalog(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			s.respond(w, nil, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results, "degraded": degraded})
		return
	}

	if r.URL.Path == "/api/me/profile" && r.Method == http.MethodPut {
		var input ProfileInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.UpdateProfile(r.Context(), input)
		s.respond(w, sanitizeUser(user), err)
		return
	}

	if r.URL.Path == "/api/me/notifications" && r.Method == http.MethodPut {
		var settings store.NotificationSettings
		if err := decodeBody(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, map[string]any{"ok": true}, s.service.UpdateNotificationSettings(r.Context(), settings))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/notifications" {
		notifications, err := s.service.Notifications(r.Context())
		s.respond(w, notifications, err)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/notifications/unread" {
		count, err := s.service.UnreadCount(r.Context())
		s.respond(w, map[string]any{"count": count}, err)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/notifications/read" {
		s.respond(w, map[string]any{"ok": true}, s.service.MarkAllRead(r.Context()))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/reports" {
		var input ReportInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		report, err := s.service.SubmitReport(r.Context(), input)
		s.respond(w, report, err)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 2 && parts[0] == "api" {
		switch parts[1] {
		case "users":
			s.handleUsers(w, r, parts[2:])
			return
		case "lists":
			s.handleLists(w, r, parts[2:])
			return
		case "admin":
			s.handleAdmin(w, r, parts[2:])
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown route", nil)
}

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 1 && r.Method == http.MethodGet {
		user, err := s.service.GetUser(r.Context(), parts[0])
		s.respond(w, sanitizeUser(user), err)
		return
	}
	if len(parts) == 2 {
		userID := parts[0]
		switch {
		case parts[1] == "lists" && r.Method == http.MethodGet:
			lists, err := s.service.UserLists(r.Context(), userID)
			s.respond(w, lists, err)
			return
		case parts[1] == "followers" && r.Method == http.MethodGet:
			users, err := s.service.Followers(r.Context(), userID)
			s.respond(w, sanitizeUsers(users), err)
			return
		case parts[1] == "following" && r.Method == http.MethodGet:
			users, err := s.service.Following(r.Context(), userID)
			s.respond(w, sanitizeUsers(users), err)
			return
		case parts[1] == "follow" && r.Method == http.MethodPost:
			s.respond(w, map[string]any{"ok": true}, s.service.FollowUser(r.Context(), userID))
			return
		case parts[1] == "follow" && r.Method == http.MethodDelete:
			s.respond(w, map[string]any{"ok": true}, s.service.UnfollowUser(r.Context(), userID))
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown route", nil)
}

func (s *HTTPServer) handleLists(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		lists, err := s.service.MyLists(r.Context())
		s.respond(w, lists, err)
		return
	case len(parts) == 0 && r.Method == http.MethodPost:
		var input CreateListInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		list, err := s.service.CreateList(r.Context(), input)
		s.respond(w, list, err)
		return
	case len(parts) == 1 && parts[0] == "followed" && r.Method == http.MethodGet:
		lists, err := s.service.FollowedLists(r.Context())
		s.respond(w, lists, err)
		return
	}

	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown route", nil)
		return
	}
	listID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			list, err := s.service.GetList(r.Context(), listID)
			s.respond(w, list, err)
		case http.MethodPut:
			var input UpdateListInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			list, err := s.service.UpdateList(r.Context(), listID, input)
			s.respond(w, list, err)
		case http.MethodDelete:
			s.respond(w, map[string]any{"ok": true}, s.service.DeleteList(r.Context(), listID))
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 2 {
		switch {
		case parts[1] == "similar" && r.Method == http.MethodGet:
			lists, err := s.service.SimilarLists(r.Context(), listID)
			s.respond(w, lists, err)
			return
		case parts[1] == "stats" && r.Method == http.MethodGet:
			stats, err := s.service.ListStats(r.Context(), listID)
			s.respond(w, stats, err)
			return
		case parts[1] == "progress" && r.Method == http.MethodGet:
			percent, err := s.service.ListProgress(r.Context(), listID)
			s.respond(w, map[string]any{"progress": percent}, err)
			return
		case parts[1] == "items" && r.Method == http.MethodPost:
			var body struct {
				Media []store.Media `json:"media"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			list, err := s.service.AddItems(r.Context(), listID, body.Media)
			s.respond(w, list, err)
			return
		case parts[1] == "follow" && r.Method == http.MethodPost:
			s.respond(w, map[string]any{"ok": true}, s.service.FollowList(r.Context(), listID))
			return
		case parts[1] == "follow" && r.Method == http.MethodDelete:
			s.respond(w, map[string]any{"ok": true}, s.service.UnfollowList(r.Context(), listID))
			return
		case parts[1] == "reactions" && r.Method == http.MethodPost:
			var body struct {
				Emoji string `json:"emoji"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			reaction, err := s.service.ToggleReaction(r.Context(), listID, body.Emoji)
			s.respond(w, map[string]any{"reaction": reaction}, err)
			return
		case parts[1] == "comments" && r.Method == http.MethodPost:
			var body struct {
				ParentID string `json:"parentId"`
				Text     string `json:"text"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			comment, err := s.service.AddComment(r.Context(), listID, body.ParentID, body.Text)
			s.respond(w, comment, err)
			return
		}
	}

	if len(parts) == 3 {
		switch {
		case parts[1] == "items" && r.Method == http.MethodDelete:
			s.respond(w, map[string]any{"ok": true}, s.service.RemoveItem(r.Context(), listID, parts[2]))
			return
		case parts[1] == "comments" && r.Method == http.MethodDelete:
			s.respond(w, map[string]any{"ok": true}, s.service.DeleteComment(r.Context(), listID, parts[2]))
			return
		}
	}

	// /api/lists/{id}/items/{mediaId}/{op}
	if len(parts) == 4 && parts[1] == "items" && r.Method == http.MethodPost {
		s.handleProgress(w, r, listID, parts[2], parts[3])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown route", nil)
}

func (s *HTTPServer) handleProgress(w http.ResponseWriter, r *http.Request, listID, mediaID, op string) {
	var body struct {
		Status  store.WatchStatus `json:"status"`
		Minutes int               `json:"minutes"`
		Season  int               `json:"season"`
		Episode int               `json:"episode"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	var result ProgressResult
	var err error
	switch op {
	case "status":
		result, err = s.service.SetItemStatus(r.Context(), listID, mediaID, body.Status)
	case "minutes":
		result, err = s.service.SetItemMinutes(r.Context(), listID, mediaID, body.Minutes)
	case "episode":
		result, err = s.service.ToggleItemEpisode(r.Context(), listID, mediaID, body.Season, body.Episode)
	case "episodes-through":
		result, err = s.service.MarkItemThroughEpisode(r.Context(), listID, mediaID, body.Season, body.Episode)
	case "season":
		result, err = s.service.SetItemSeason(r.Context(), listID, mediaID, body.Season)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown route", nil)
		return
	}
	s.respond(w, result, err)
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 1 && parts[0] == "reset" && r.Method == http.MethodPost:
		s.respond(w, map[string]any{"ok": true}, s.service.ResetAll(r.Context()))
		return
	case len(parts) == 1 && parts[0] == "reports" && r.Method == http.MethodGet:
		reports, err := s.service.Reports(r.Context())
		s.respond(w, reports, err)
		return
	case len(parts) == 3 && parts[0] == "reports" && parts[2] == "respond" && r.Method == http.MethodPost:
		var body struct {
			Response string `json:"response"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		report, err := s.service.RespondToReport(r.Context(), parts[1], body.Response)
		s.respond(w, report, err)
		return
	case len(parts) == 1 && parts[0] == "dashboard" && r.Method == http.MethodGet:
		stats, err := s.service.Dashboard(r.Context())
		s.respond(w, stats, err)
		return
	case len(parts) == 1 && parts[0] == "logs" && r.Method == http.MethodGet:
		logs, err := s.service.AdminLogs(r.Context())
		s.respond(w, logs, err)
		return
	case len(parts) == 1 && parts[0] == "badges" && r.Method == http.MethodPost:
		var input GlobalBadgeInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		badge, err := s.service.CreateGlobalBadge(r.Context(), input)
		s.respond(w, badge, err)
		return
	}

	if len(parts) >= 2 && parts[0] == "users" {
		userID := parts[1]
		switch {
		case len(parts) == 2 && r.Method == http.MethodDelete:
			s.respond(w, map[string]any{"ok": true}, s.service.DeleteUser(r.Context(), userID))
			return
		case len(parts) == 3 && parts[2] == "strike" && r.Method == http.MethodPost:
			var body struct {
				Reason string `json:"reason"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			user, err := s.service.IssueStrike(r.Context(), userID, body.Reason)
			s.respond(w, sanitizeUser(user), err)
			return
		case len(parts) == 3 && parts[2] == "ban" && r.Method == http.MethodPost:
			var body struct {
				Reason string `json:"reason"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.respond(w, map[string]any{"ok": true}, s.service.BanUser(r.Context(), userID, body.Reason))
			return
		case len(parts) == 3 && parts[2] == "badges" && r.Method == http.MethodPost:
			var body struct {
				BadgeID string `json:"badgeId"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			s.respond(w, map[string]any{"ok": true}, s.service.GrantBadge(r.Context(), userID, body.BadgeID))
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown route", nil)
}

func (s *HTTPServer) respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// publicUser is a user with credentials stripped.
type publicUser struct {
	*store.User
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

func sanitizeUser(user *store.User) any {
	if user == nil {
		return nil
	}
	return publicUser{User: user}
}

func sanitizeUsers(users []*store.User) []any {
	out := make([]any, 0, len(users))
	for _, user := range users {
		out = append(out, sanitizeUser(user))
	}
	return out
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
