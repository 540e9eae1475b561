package entity

import "github.com/google/uuid"

// RegisterParcelRequest - тело запроса регистрации посылки
// RequestID опционален: если клиент не прислал ключ идемпотентности,
// сервис сгенерирует его сам (повторные ретраи в этом случае не дедуплицируются)
type RegisterParcelRequest struct {
	RequestID    *uuid.UUID `json:"request_id"`
	Name         string     `json:"name"`
	Weight       float64    `json:"weight" validate:"gte=0"`
	DollarPrice  float64    `json:"dollar_price" validate:"gte=0"`
	ParcelTypeID uuid.UUID  `json:"parcel_type_id" validate:"required"`
}

// ParcelFilter - параметры выборки посылок пользователя
type ParcelFilter struct {
	ParcelTypeID *uuid.UUID `form:"type_id"`
	// WithDeliveryPrice == true: только посылки с рассчитанной доставкой,
	// false: только без неё, nil: без фильтра
	WithDeliveryPrice *bool `form:"with_delivery_price"`
	Offset            int   `form:"offset" validate:"gte=0"`
	Limit             int   `form:"limit" validate:"gte=0,lte=1000"`
}

// DefaultParcelLimit - лимит страницы по умолчанию
const DefaultParcelLimit = 100

// ParcelAcceptedResponse - ответ асинхронного эндпоинта регистрации
// Подтверждает только постановку в очередь, не факт обработки
type ParcelAcceptedResponse struct {
	Status    string    `json:"status"`
	RequestID uuid.UUID `json:"request_id"`
}

// ParcelListResponse - ответ на запрос списка посылок
type ParcelListResponse struct {
	Parcels []Parcel `json:"parcels"`
	Total   int      `json:"total"`
}

// CurrencyResponse - ответ эндпоинта курса валюты
type CurrencyResponse struct {
	CurrencyName string  `json:"currency_name"`
	Value        float64 `json:"value"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
