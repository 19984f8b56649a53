package action

import (
	"context"
	"fmt"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

type ProfileInput struct {
	Nickname   string           `validate:"required,max=20"`
	AvatarID   int              `validate:"gte=0"`
	MemberType model.MemberType `validate:"member_type"`
	Email      string           `validate:"required,email"`
}

// ProfileUpdate changes only the non-nil fields.
type ProfileUpdate struct {
	Nickname   *string           `validate:"omitnil,min=1,max=20"`
	AvatarID   *int              `validate:"omitnil,gte=0"`
	MemberType *model.MemberType `validate:"omitnil,member_type"`
}

// CreateProfile registers the device user with the backend.
func (a *Actions) CreateProfile(ctx context.Context, in ProfileInput) (*model.User, error) {
	if in.MemberType == "" {
		in.MemberType = model.MemberHuman
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var user *model.User
	err := a.confirmed(state.ResourceUser, "create_profile", func() error {
		u, err := a.api.CreateUser(ctx, api.CreateUserRequest{
			Nickname:   in.Nickname,
			AvatarID:   in.AvatarID,
			MemberType: in.MemberType,
			Email:      in.Email,
		})
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		a.state.SetUser(u)
		user = u
		return nil
	})
	return user, err
}

func (a *Actions) UpdateProfile(ctx context.Context, in ProfileUpdate) (*model.User, error) {
	me, err := a.currentUser()
	if err != nil {
		return nil, err
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var user *model.User
	err = a.confirmed(state.ResourceUser, "update_profile", func() error {
		u, err := a.api.UpdateProfile(ctx, api.UpdateProfileRequest{
			UserID:     me.ID,
			Nickname:   in.Nickname,
			AvatarID:   in.AvatarID,
			MemberType: in.MemberType,
		})
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		a.state.SetUser(u)
		if _, ok := a.state.Snapshot().Member(u.ID); ok {
			a.state.UpsertMember(*u)
		}
		user = u
		return nil
	})
	return user, err
}
