package domain

import "errors"

// Доменные ошибки магазина.
// Используются для передачи бизнес-ошибок между слоями приложения.
var (
	// ErrOrderNotFound возвращается, когда заказ не найден в базе данных.
	ErrOrderNotFound = errors.New("заказ не найден")

	// ErrProductNotFound возвращается, когда товар не найден в каталоге.
	ErrProductNotFound = errors.New("товар не найден")

	// ErrCouponNotFound возвращается, когда купон с указанным кодом не существует.
	ErrCouponNotFound = errors.New("купон не найден")

	// ErrUserNotFound возвращается, когда пользователь не найден.
	ErrUserNotFound = errors.New("пользователь не найден")

	// ErrForbidden возвращается, когда у вызывающего нет требуемой роли.
	ErrForbidden = errors.New("недостаточно прав для выполнения операции")

	// ErrEmptyOrderItems возвращается при попытке оформить заказ без позиций.
	ErrEmptyOrderItems = errors.New("заказ должен содержать хотя бы одну позицию")

	// ErrInvalidUserID возвращается при пустом или некорректном идентификаторе пользователя.
	ErrInvalidUserID = errors.New("некорректный идентификатор пользователя")

	// ErrInvalidProductID возвращается при пустом или некорректном идентификаторе товара.
	ErrInvalidProductID = errors.New("некорректный идентификатор товара")

	// ErrInvalidProductName возвращается при пустом названии товара.
	ErrInvalidProductName = errors.New("название товара не может быть пустым")

	// ErrInvalidQuantity возвращается, когда количество товара меньше единицы.
	ErrInvalidQuantity = errors.New("количество должно быть больше нуля")

	// ErrInvalidPrice возвращается при отрицательной цене позиции.
	ErrInvalidPrice = errors.New("цена не может быть отрицательной")

	// ErrInvalidPaymentMethod возвращается при неизвестном способе оплаты.
	ErrInvalidPaymentMethod = errors.New("неизвестный способ оплаты")

	// ErrInvalidShippingCost возвращается при отрицательной стоимости доставки.
	ErrInvalidShippingCost = errors.New("стоимость доставки не может быть отрицательной")

	// ErrOrderTerminal возвращается при попытке изменить заказ в терминальном статусе.
	ErrOrderTerminal = errors.New("заказ в терминальном статусе, изменение невозможно")

	// ErrOrderAlreadyDispatched возвращается при повторном назначении доставки.
	ErrOrderAlreadyDispatched = errors.New("доставка по заказу уже назначена")

	// ErrRiderRequired возвращается, когда для внутренней доставки не указан райдер.
	ErrRiderRequired = errors.New("не указан райдер для внутренней доставки")

	// ErrNotAssignedRider возвращается, когда райдер пытается закрыть чужой заказ.
	ErrNotAssignedRider = errors.New("заказ назначен другому райдеру")

	// ErrRefundNotPaid возвращается при попытке возврата средств по неоплаченному заказу.
	ErrRefundNotPaid = errors.New("возврат возможен только для оплаченного заказа")

	// ErrCouponInactive возвращается для деактивированного купона.
	ErrCouponInactive = errors.New("купон недействителен")

	// ErrCouponNotStarted возвращается, когда срок действия купона ещё не начался.
	ErrCouponNotStarted = errors.New("срок действия купона ещё не начался")

	// ErrCouponExpired возвращается для просроченного купона.
	ErrCouponExpired = errors.New("срок действия купона истёк")

	// ErrCouponUsageLimit возвращается при исчерпании лимита использований купона.
	ErrCouponUsageLimit = errors.New("лимит использований купона исчерпан")

	// ErrPaymentVerification возвращается, когда шлюз не подтвердил оплату.
	ErrPaymentVerification = errors.New("оплата не подтверждена платёжным шлюзом")
)
