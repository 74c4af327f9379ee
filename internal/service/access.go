package service

import (
	"context"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// AccessChecker decides hotel-scoped authorization. A GLOBAL_ADMIN may
// act on every hotel; everyone else needs an explicit hotel_admins row
// for the hotel in question.
type AccessChecker struct {
	admins HotelAdminStore
}

func NewAccessChecker(admins HotelAdminStore) *AccessChecker {
	return &AccessChecker{admins: admins}
}

// CheckHotel returns ErrForbidden when the user may not administer the
// hotel.
func (a *AccessChecker) CheckHotel(ctx context.Context, user model.User, hotelID uint64) error {
	if user.Role == model.RoleGlobalAdmin {
		return nil
	}
	ok, err := a.admins.IsAdmin(ctx, hotelID, user.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
