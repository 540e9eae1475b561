package service

import "errors"

// Доменные ошибки бизнес-логики для обработки в handlers и воркере
// Им сознательно не присваиваются HTTP статусы: маппинг в коды ответов -
// обязанность тонкого адаптера на HTTP границе, воркер работает с теми же
// ошибками без какого-либо HTTP контекста
var (
	ErrParcelNotFound        = errors.New("parcel not found")
	ErrParcelTypeNotFound    = errors.New("parcel type not found")
	ErrCurrencyNotFound      = errors.New("currency not found in rate feed")
	ErrRateSourceUnavailable = errors.New("exchange rate source unavailable")
	ErrRegistrationFailed    = errors.New("parcel registration failed")
	ErrPublishFailed         = errors.New("failed to enqueue parcel registration")
)
