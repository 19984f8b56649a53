package action

import (
	"context"
	"fmt"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

type NestInput struct {
	Name     string `validate:"required,max=30"`
	ThemeID  int    `validate:"gte=0"`
	AvatarID int    `validate:"gte=0"`
	ImageURL string `validate:"omitempty,url"`
}

// CreateNest creates a nest with the signed-in user as its master.
func (a *Actions) CreateNest(ctx context.Context, in NestInput) (*model.Nest, error) {
	me, err := a.currentUser()
	if err != nil {
		return nil, err
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var nest *model.Nest
	err = a.confirmed(state.ResourceNest, "create_nest", func() error {
		n, err := a.api.CreateNest(ctx, api.NestRequest{
			Name:     in.Name,
			ThemeID:  in.ThemeID,
			AvatarID: in.AvatarID,
			ImageURL: in.ImageURL,
			UserID:   me.ID,
		})
		if err != nil {
			return fmt.Errorf("create nest: %w", err)
		}
		master := *me
		master.Role = model.RoleMaster
		a.state.SetUser(&master)
		a.state.SetNest(n)
		a.state.UpsertMember(master)
		nest = n
		return nil
	})
	return nest, err
}

// JoinNest asks to join the nest owning code. The nest is only set in state
// once a master approves; see ConfirmMembership.
func (a *Actions) JoinNest(ctx context.Context, code string) (*model.JoinRequest, error) {
	me, err := a.currentUser()
	if err != nil {
		return nil, err
	}
	normalized, err := household.NormalizeInviteCode(code)
	if err != nil {
		return nil, &InputError{Fields: []string{err.Error()}, err: err}
	}

	var jr *model.JoinRequest
	err = a.confirmed(state.ResourceNest, "join_nest", func() error {
		r, err := a.api.JoinNest(ctx, api.JoinNestRequest{InviteCode: normalized, UserID: me.ID})
		if err != nil {
			return fmt.Errorf("join nest: %w", err)
		}
		jr = r
		return nil
	})
	return jr, err
}

// ConfirmMembership checks whether the user has been admitted to nestID. On
// success the nest and its members are loaded into state.
func (a *Actions) ConfirmMembership(ctx context.Context, nestID int64) (bool, error) {
	me, err := a.currentUser()
	if err != nil {
		return false, err
	}

	members, err := a.api.ListMembers(ctx, nestID)
	if err != nil {
		if api.IsKind(err, api.KindForbidden) {
			return false, nil
		}
		return false, fmt.Errorf("confirm membership: %w", err)
	}
	var admitted *model.User
	for _, m := range members {
		if m.ID == me.ID {
			admitted = &m
			break
		}
	}
	if admitted == nil {
		return false, nil
	}

	n, err := a.api.GetNest(ctx, nestID)
	if err != nil {
		return false, fmt.Errorf("confirm membership: %w", err)
	}
	a.state.SetUser(admitted)
	a.state.SetNest(n)
	for _, m := range members {
		a.state.UpsertMember(m)
	}
	return true, nil
}

func (a *Actions) UpdateNest(ctx context.Context, in NestInput) (*model.Nest, error) {
	me, nest, err := a.master()
	if err != nil {
		return nil, err
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var updated *model.Nest
	err = a.confirmed(state.ResourceNest, "update_nest", func() error {
		n, err := a.api.UpdateNest(ctx, nest.ID, api.NestRequest{
			Name:     in.Name,
			ThemeID:  in.ThemeID,
			AvatarID: in.AvatarID,
			ImageURL: in.ImageURL,
			UserID:   me.ID,
		})
		if err != nil {
			return fmt.Errorf("update nest: %w", err)
		}
		a.state.SetNest(n)
		updated = n
		return nil
	})
	return updated, err
}

func (a *Actions) ApproveJoinRequest(ctx context.Context, requestID int64) (*model.User, error) {
	me, nest, err := a.master()
	if err != nil {
		return nil, err
	}

	var member *model.User
	err = a.confirmed(state.ResourceJoinRequests, "approve_join_request", func() error {
		u, err := a.api.ApproveJoinRequest(ctx, nest.ID, requestID, me.ID)
		if err != nil {
			return fmt.Errorf("approve join request: %w", err)
		}
		a.state.RemoveJoinRequest(requestID)
		a.state.UpsertMember(*u)
		member = u
		return nil
	})
	return member, err
}

func (a *Actions) RejectJoinRequest(ctx context.Context, requestID int64) error {
	me, nest, err := a.master()
	if err != nil {
		return err
	}
	return a.confirmed(state.ResourceJoinRequests, "reject_join_request", func() error {
		if err := a.api.RejectJoinRequest(ctx, nest.ID, requestID, me.ID); err != nil {
			return fmt.Errorf("reject join request: %w", err)
		}
		a.state.RemoveJoinRequest(requestID)
		return nil
	})
}
