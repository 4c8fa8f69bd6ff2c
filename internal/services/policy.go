package services

import "github.com/senyabanana/order-bidding/internal/models"

// BidPolicy собирает правила, по которым спорное поведение предложений может
// быть ужесточено без изменения вызывающего кода.
type BidPolicy struct {
	// RejectAnyStatus - rejectBid не проверяет текущий статус предложения.
	RejectAnyStatus bool
	// RejectWithdrawnSiblings - при принятии предложения отозванные
	// предложения по заказу тоже переводятся в rejected.
	RejectWithdrawnSiblings bool
	// RebidAfterWithdraw - производитель может снова предложить цену после отзыва.
	RebidAfterWithdraw bool
}

// DefaultBidPolicy сохраняет исходное поведение площадки.
var DefaultBidPolicy = BidPolicy{
	RejectAnyStatus:         true,
	RejectWithdrawnSiblings: true,
	RebidAfterWithdraw:      false,
}

// siblingKeepStatuses - статусы соседних предложений, которые не трогаются при принятии.
func (p BidPolicy) siblingKeepStatuses() []models.BidStatus {
	if p.RejectWithdrawnSiblings {
		return nil
	}
	return []models.BidStatus{models.WithdrawnBid}
}

// AccessPolicy отвечает, владеет ли пользователь ресурсом и есть ли у него
// повышенные права.
type AccessPolicy interface {
	IsOwner(principal models.Principal, ownerId string) bool
	IsAdmin(principal models.Principal) bool
}

// OwnershipPolicy - AccessPolicy по совпадению ID и роли admin.
type OwnershipPolicy struct{}

// IsOwner сравнивает ID пользователя с владельцем ресурса.
func (OwnershipPolicy) IsOwner(principal models.Principal, ownerId string) bool {
	return principal.ID != "" && principal.ID == ownerId
}

// IsAdmin проверяет роль администратора.
func (OwnershipPolicy) IsAdmin(principal models.Principal) bool {
	return principal.Role == models.AdminRole
}
