package bot

import (
	"errors"

	"barberbot/internal/booking"
	"barberbot/internal/database"
	"barberbot/internal/service"
)

// userMessage maps a handler error to the text shown to the user.
func (b *Bot) userMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, database.ErrSlotTaken):
		return textSlotTaken
	case errors.Is(err, database.ErrBarberPaused):
		return textBarberPaused
	case errors.Is(err, booking.ErrMalformedPayload):
		return textReselect
	case errors.Is(err, database.ErrNotFound):
		return "⚠️ Ma'lumot topilmadi. U allaqachon o'chirilgan bo'lishi mumkin."
	case errors.Is(err, database.ErrDuplicate):
		return "⚠️ Bunday nomli yozuv allaqachon mavjud."
	case errors.Is(err, database.ErrConflict):
		return "⚠️ Avval kelgusi buyurtmalarni bekor qiling."
	case errors.Is(err, service.ErrIdentityMissing):
		return "⚠️ Ism yoki telefon raqamingiz topilmadi. /start bosib qaytadan boshlang."
	case errors.Is(err, service.ErrForbidden):
		return textNoPermission
	case errors.Is(err, service.ErrOutOfScope):
		return "⚠️ Bu buyurtma tanlangan ro'yxatga kirmaydi."
	case errors.Is(err, service.ErrPastSlot):
		return "⚠️ Bu vaqt allaqachon o'tib ketgan. Boshqa vaqtni tanlang."
	case errors.Is(err, service.ErrInvalidSlot):
		return "⚠️ Bu vaqtga yozilib bo'lmaydi. Boshqa vaqtni tanlang."
	case errors.Is(err, service.ErrInvalidPhone):
		return textBadPhone
	case errors.Is(err, service.ErrInvalidName):
		return textBadName
	case errors.Is(err, service.ErrTextTooShort):
		return "⚠️ Matn juda qisqa."
	case errors.Is(err, service.ErrInvalidInput):
		return "⚠️ Buyruq formati noto'g'ri: " + err.Error()
	case errors.Is(err, booking.ErrSessionTerminal), errors.Is(err, booking.ErrIllegalTransition):
		return textSessionExpired
	}

	if b.metrics != nil {
		b.metrics.ErrorsTotal.Inc()
	}
	return textGenericError
}
