package domain

import "time"

// Role — роль пользователя в системе.
// Авторизация привилегированных операций выполняется по набору ролей.
type Role string

const (
	// RoleAdmin — администратор, полный доступ.
	RoleAdmin Role = "ADMIN"

	// RoleStaff — сотрудник, управление заказами и доставкой.
	RoleStaff Role = "STAFF"

	// RoleRider — райдер собственной доставки.
	RoleRider Role = "RIDER"

	// RoleUser — покупатель.
	RoleUser Role = "USER"
)

// User — пользователь магазина.
// Гостевому покупателю аккаунт создаётся автоматически при оформлении заказа.
type User struct {
	ID           string    // Уникальный идентификатор (UUID)
	Name         string    // Имя
	Email        string    // Email (уникальный)
	Phone        string    // Телефон
	PasswordHash string    // bcrypt хеш пароля
	Role         Role      // Роль
	CreatedAt    time.Time // Дата регистрации
	UpdatedAt    time.Time // Дата последнего изменения
}

// Address — адрес из адресной книги пользователя.
// Первый адрес гостевого покупателя сохраняется как адрес по умолчанию.
type Address struct {
	ID            string    // Уникальный идентификатор (UUID)
	UserID        string    // Владелец адреса
	RecipientName string    // Имя получателя
	Phone         string    // Телефон получателя
	CityID        int       // ID города (справочник курьера)
	CityName      string    // Название города
	ZoneID        int       // ID зоны (справочник курьера)
	ZoneName      string    // Название зоны
	AreaName      string    // Район / улица
	AddressLine   string    // Полный адрес текстом
	IsDefault     bool      // Адрес по умолчанию
	CreatedAt     time.Time // Дата добавления
}

// ToShippingAddress создаёт снимок адреса для заказа.
// Снимок не зависит от дальнейших изменений адресной книги.
func (a *Address) ToShippingAddress() ShippingAddress {
	return ShippingAddress{
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		CityID:        a.CityID,
		CityName:      a.CityName,
		ZoneID:        a.ZoneID,
		ZoneName:      a.ZoneName,
		AreaName:      a.AreaName,
		AddressLine:   a.AddressLine,
	}
}
