package fakenest

import (
	"net/http"
	"strings"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
)

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	var errs []string
	if strings.TrimSpace(req.Nickname) == "" {
		errs = append(errs, "Nickname is required")
	}
	if !strings.Contains(req.Email, "@") {
		errs = append(errs, "Email is invalid")
	}
	if len(errs) > 0 {
		respondWithErrors(w, errs)
		return
	}
	if req.MemberType == "" {
		req.MemberType = model.MemberHuman
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.user.Email, req.Email) {
			respondWithError(w, http.StatusConflict, "Email is already registered")
			return
		}
	}
	u := &userRecord{user: model.User{
		ID:         s.newID(),
		Nickname:   req.Nickname,
		AvatarID:   req.AvatarID,
		Role:       model.RoleMember,
		MemberType: req.MemberType,
		Email:      req.Email,
	}}
	s.users[u.user.ID] = u
	respondWithJSON(w, http.StatusCreated, u.user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[actorID(r, req.UserID)]
	if u == nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if req.Nickname != nil {
		if strings.TrimSpace(*req.Nickname) == "" {
			respondWithErrors(w, []string{"Nickname is required"})
			return
		}
		u.user.Nickname = *req.Nickname
	}
	if req.AvatarID != nil {
		u.user.AvatarID = *req.AvatarID
	}
	if req.MemberType != nil {
		u.user.MemberType = *req.MemberType
	}
	if u.nestID != 0 {
		s.broadcast(u.nestID, "members", "updated", u.user.ID)
	}
	respondWithJSON(w, http.StatusOK, u.user)
}

func (s *Server) createNest(w http.ResponseWriter, r *http.Request) {
	var req api.NestRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondWithErrors(w, []string{"Name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[actorID(r, req.UserID)]
	if u == nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if u.nestID != 0 {
		respondWithError(w, http.StatusConflict, "You already belong to a nest")
		return
	}
	n := &nestRecord{nest: model.Nest{
		ID:         s.newID(),
		Name:       req.Name,
		ThemeID:    req.ThemeID,
		AvatarID:   req.AvatarID,
		InviteCode: s.newInviteCode(),
		ImageURL:   req.ImageURL,
	}}
	s.nests[n.nest.ID] = n
	s.invites[n.nest.InviteCode] = n.nest.ID
	u.nestID = n.nest.ID
	u.user.Role = model.RoleMaster
	respondWithJSON(w, http.StatusCreated, n.nest)
}

func (s *Server) getNest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nestFromPath(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, n.nest)
}

func (s *Server) updateNest(w http.ResponseWriter, r *http.Request) {
	var req api.NestRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondWithErrors(w, []string{"Name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.master(w, r, req.UserID)
	if !ok {
		return
	}
	n.nest.Name = req.Name
	n.nest.ThemeID = req.ThemeID
	n.nest.AvatarID = req.AvatarID
	n.nest.ImageURL = req.ImageURL
	s.broadcast(n.nest.ID, "nest", "updated", n.nest.ID)
	respondWithJSON(w, http.StatusOK, n.nest)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nestFromPath(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, s.membersOf(n.nest.ID))
}

func (s *Server) joinNest(w http.ResponseWriter, r *http.Request) {
	var req api.JoinNestRequest
	if !decode(w, r, &req) {
		return
	}
	code, err := household.NormalizeInviteCode(req.InviteCode)
	if err != nil {
		respondWithErrors(w, []string{"Invite code is invalid"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[actorID(r, req.UserID)]
	if u == nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	nestID, ok := s.invites[code]
	if !ok {
		respondWithError(w, http.StatusNotFound, "No nest matches that invite code")
		return
	}
	if u.nestID != 0 {
		respondWithError(w, http.StatusConflict, "You already belong to a nest")
		return
	}
	n := s.nests[nestID]
	if i := findIndex(n.joinRequests, func(jr model.JoinRequest) bool { return jr.User.ID == u.user.ID }); i >= 0 {
		respondWithJSON(w, http.StatusOK, n.joinRequests[i])
		return
	}
	jr := model.JoinRequest{
		ID:        s.newID(),
		NestID:    nestID,
		User:      u.user,
		Status:    model.JoinPending,
		CreatedAt: s.now().UTC(),
	}
	n.joinRequests = append(n.joinRequests, jr)
	s.broadcast(nestID, "join_requests", "created", jr.ID)
	respondWithJSON(w, http.StatusCreated, jr)
}

func (s *Server) listJoinRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nestFromPath(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, listOf(n.joinRequests))
}

type actorBody struct {
	UserID int64 `json:"user_id"`
}

// pendingRequest resolves a join request for the master routes. Callers hold s.mu.
func (s *Server) pendingRequest(w http.ResponseWriter, r *http.Request) (*nestRecord, int, bool) {
	var req actorBody
	if !decode(w, r, &req) {
		return nil, 0, false
	}
	n, _, ok := s.master(w, r, req.UserID)
	if !ok {
		return nil, 0, false
	}
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return nil, 0, false
	}
	i := findIndex(n.joinRequests, func(jr model.JoinRequest) bool { return jr.ID == id })
	if i < 0 {
		respondWithError(w, http.StatusNotFound, "Join request not found")
		return nil, 0, false
	}
	return n, i, true
}

func (s *Server) approveJoinRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, i, ok := s.pendingRequest(w, r)
	if !ok {
		return
	}
	jr := n.joinRequests[i]
	n.joinRequests = without(n.joinRequests, i)

	u := s.users[jr.User.ID]
	if u == nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if u.nestID != 0 && u.nestID != n.nest.ID {
		respondWithError(w, http.StatusConflict, "User already belongs to another nest")
		return
	}
	u.nestID = n.nest.ID
	u.user.Role = model.RoleMember

	s.broadcast(n.nest.ID, "join_requests", "deleted", jr.ID)
	s.broadcast(n.nest.ID, "members", "created", u.user.ID)
	respondWithJSON(w, http.StatusOK, u.user)
}

func (s *Server) rejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, i, ok := s.pendingRequest(w, r)
	if !ok {
		return
	}
	jr := n.joinRequests[i]
	n.joinRequests = without(n.joinRequests, i)
	s.broadcast(n.nest.ID, "join_requests", "deleted", jr.ID)
	w.WriteHeader(http.StatusNoContent)
}
