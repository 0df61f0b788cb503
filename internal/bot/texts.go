package bot

// Main menu buttons.
const (
	btnBook       = "✂️ Navbat olish"
	btnServices   = "💈 Xizmatlar"
	btnBarbers    = "👨‍🦱 Sartaroshlar"
	btnOrders     = "📋 Buyurtmalarim"
	btnContact    = "📞 Aloqa"
	btnCancel     = "❌ Bekor qilish"
	btnSharePhone = "📱 Raqamni yuborish"
)

const (
	textWelcome          = "Assalomu alaykum, <b>%s</b> sartaroshxonasiga xush kelibsiz!\nQuyidagi menyudan kerakli bo'limni tanlang."
	textMainMenu         = "Asosiy menyu:"
	textAskName          = "Ismingiz va familiyangizni kiriting:"
	textAskPhone         = "Telefon raqamingizni yuboring (masalan, +998 90 123 45 67) yoki pastdagi tugmani bosing:"
	textBadName          = "⚠️ Ism kamida 2 ta harfdan iborat bo'lishi kerak. Qaytadan kiriting:"
	textBadPhone         = "⚠️ Telefon raqami noto'g'ri. +998XXXXXXXXX ko'rinishida yuboring:"
	textChooseService    = "💈 Xizmatni tanlang:"
	textNoServices       = "Hozircha xizmatlar mavjud emas."
	textChooseBarber     = "✂️ <b>%s</b>\n\nSartaroshni tanlang:"
	textNoBarbers        = "Bu xizmat uchun sartarosh topilmadi."
	textChooseDate       = "👨‍🦱 Sartarosh: <b>%s</b>\n\n📅 Kunni tanlang:"
	textChooseTime       = "📅 %s\n\n⏰ Bo'sh vaqtni tanlang:"
	textFullyBooked      = "📅 %s\n\n😔 Bu kunga bo'sh vaqt qolmagan. Boshqa kunni tanlang."
	textConfirm          = "Buyurtmani tasdiqlang:\n\n👤 %s\n📞 %s\n💈 %s\n✂️ %s\n📅 %s ⏰ %s"
	textBooked           = "✅ Buyurtmangiz qabul qilindi!\n\n💈 %s\n✂️ %s\n📅 %s ⏰ %s\n\nSizni kutib qolamiz!"
	textSlotTaken        = "⚠️ Afsuski, bu vaqt hozirgina band qilindi. Boshqa vaqtni tanlang."
	textReselect         = "⚠️ Tanlov ma'lumotlari buzilgan. Iltimos, menyudan qaytadan tanlang."
	textSessionExpired   = "⌛ Sessiya muddati tugagan. Menyudan qaytadan boshlang."
	textStaleButton      = "Bu tugma eskirgan"
	textBookingCancelled = "❌ Navbat olish bekor qilindi."
	textBarberPaused     = "⏸ Bu sartarosh hozir mijoz qabul qilmayapti. Boshqa sartaroshni tanlang."
	textChooseScope      = "Qaysi buyurtmalarni ko'rmoqchisiz?"
	textNoOrders         = "Buyurtmalar topilmadi."
	textOrderCancelled   = "✅ Buyurtma bekor qilindi."
	textRateLimited      = "⚠️ Juda tez xabar yuboryapsiz. Biroz kuting."
	textNoPermission     = "⛔ Sizda bu amal uchun ruxsat yo'q."
	textNotBarber        = "Siz sartarosh sifatida ro'yxatdan o'tmagansiz."
	textUnknown          = "Tushunmadim. Menyudan tanlang yoki /start bosing."
	textGenericError     = "❌ Xatolik yuz berdi. Birozdan so'ng qayta urinib ko'ring."
)

// Inline buttons.
const (
	btnBack        = "⬅️ Orqaga"
	btnConfirm     = "✅ Tasdiqlash"
	btnToday       = "Bugungi"
	btnFuture      = "Kelgusi"
	btnAll         = "Barchasi"
	btnPausePanel  = "⏸ Bugun dam olaman"
	btnResumePanel = "▶️ Ishni davom ettirish"
	btnRefresh     = "🔄 Yangilash"
)
