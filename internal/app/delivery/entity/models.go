package entity

import (
	"time"

	"github.com/google/uuid"
)

// ParcelType представляет неизменяемый справочник типов посылок
// Набор фиксированный, заполняется один раз при старте сервиса
type ParcelType struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы для GORM
func (ParcelType) TableName() string {
	return "parcel_types"
}

// DefaultParcelTypes - фиксированный набор типов, сидится при старте API
var DefaultParcelTypes = []ParcelType{
	{Name: "clothes", Description: "одежда"},
	{Name: "electronics", Description: "электроника"},
	{Name: "another", Description: "другое"},
}

// User представляет владельца посылок
// Идентификатор приходит извне (claim в токене), пользователь создаётся
// лениво при первом обращении и никогда не удаляется
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	Parcels   []Parcel  `json:"parcels,omitempty" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName указывает имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// Parcel представляет зарегистрированную посылку
// RequestID - ключ идемпотентности: повторная регистрация с тем же ключом
// возвращает уже сохранённую посылку, а не создаёт дубликат
type Parcel struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255)"`
	Weight      float64   `json:"weight" gorm:"not null;check:weight >= 0"`
	DollarPrice float64   `json:"dollar_price" gorm:"type:decimal(10,2);not null;check:dollar_price >= 0"`
	// DeliveryPrice остаётся NULL, пока стоимость доставки не рассчитана
	DeliveryPrice *float64   `json:"delivery_price" gorm:"type:decimal(10,2);check:delivery_price IS NULL OR delivery_price >= 0"`
	RequestID     uuid.UUID  `json:"request_id" gorm:"type:uuid;uniqueIndex;not null"`
	ParcelTypeID  uuid.UUID  `json:"parcel_type_id" gorm:"type:uuid;not null"`
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	ParcelType    ParcelType `json:"-" gorm:"foreignKey:ParcelTypeID"`
}

// TableName указывает имя таблицы для GORM
func (Parcel) TableName() string {
	return "parcels"
}

// ParcelQueuedMessage представляет тело сообщения отложенной регистрации
// Публикуется API в Kafka и обрабатывается воркером; доставка at-least-once,
// поэтому все поля, включая ключ идемпотентности, фиксируются при публикации
type ParcelQueuedMessage struct {
	RequestID    uuid.UUID `json:"request_id"`
	Weight       float64   `json:"weight"`
	DollarPrice  float64   `json:"dollar_price"`
	ParcelTypeID uuid.UUID `json:"parcel_type_id"`
	Name         string    `json:"name"`
	UserID       uuid.UUID `json:"user_id"`
}

// CBCurrency представляет курс одной валюты в ответе ЦБ
type CBCurrency struct {
	ID       string  `json:"ID"`
	NumCode  string  `json:"NumCode"`
	CharCode string  `json:"CharCode"`
	Nominal  int     `json:"Nominal"`
	Name     string  `json:"Name"`
	Value    float64 `json:"Value"`
	Previous float64 `json:"Previous"`
}

// CBResponse представляет ответ ежедневного JSON ЦБ с таблицей курсов
type CBResponse struct {
	Date        time.Time             `json:"Date"`
	PreviousURL string                `json:"PreviousURL"`
	Timestamp   string                `json:"Timestamp"`
	Valute      map[string]CBCurrency `json:"Valute"`
}
